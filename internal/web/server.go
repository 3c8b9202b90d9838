// Package web exposes read-only HTTP endpoints serving the dashboard UI and
// SSE streams of notifications, balances and purchases.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/poodlabs/junosale/internal/entity"
)

const journalPollInterval = 2 * time.Second

type journalReader interface {
	SnapshotsAfter(index uint64) ([]entity.SnapshotRecordEntry, error)
	PurchasesAfter(index uint64) ([]entity.PurchaseRecordEntry, error)
}

type notificationSource interface {
	Subscribe() chan entity.Notification
	Unsubscribe(ch chan entity.Notification)
}

// StateView is the read-only core state served to the UI.
type StateView struct {
	Address     string `json:"address"`
	Status      string `json:"status"`
	LastError   string `json:"last_error,omitempty"`
	Price       string `json:"price,omitempty"`
	PriceDenom  string `json:"price_denom,omitempty"`
	Native      string `json:"native,omitempty"`
	NativeDenom string `json:"native_denom,omitempty"`
	Token       string `json:"token,omitempty"`
	TokenSymbol string `json:"token_symbol,omitempty"`
	InFlight    bool   `json:"in_flight"`
}

// QuoteView previews how many sale tokens a native amount buys.
type QuoteView struct {
	Amount     string `json:"amount"`
	Tokens     string `json:"tokens"`
	Price      string `json:"price"`
	PriceDenom string `json:"price_denom"`
}

// Server serves the dashboard and its event streams.
type Server struct {
	Addr     string
	Journal  journalReader
	Notifier notificationSource
	State    func() StateView
	Purchase func(ctx context.Context, amountInput string) (entity.PurchaseResult, error)
	Quote    func(ctx context.Context, amountInput string) (QuoteView, error)
}

// NewServer creates a new web server instance.
func NewServer(addr string, journal journalReader, notifier notificationSource, state func() StateView) *Server {
	return &Server{Addr: addr, Journal: journal, Notifier: notifier, State: state}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/quote", s.handleQuote)
	mux.HandleFunc("/purchase", s.handlePurchase)
	mux.HandleFunc("/notifications/stream", s.handleNotificationStream)
	mux.HandleFunc("/balance/stream", s.handleBalanceStream)
	mux.HandleFunc("/purchases/stream", s.handlePurchaseStream)

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if s.State == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.State()); err != nil {
		log.Printf("state encode: %v", err)
	}
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if s.Quote == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	view, err := s.Quote(r.Context(), r.URL.Query().Get("amount"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		log.Printf("quote encode: %v", err)
	}
}

type purchaseResponse struct {
	Status string `json:"status"`
	TxHash string `json:"tx_hash,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	if s.Purchase == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	result, err := s.Purchase(r.Context(), req.Amount)

	resp := purchaseResponse{
		Status: string(result.Status),
		TxHash: result.TxHash,
		Reason: result.Reason,
	}
	if resp.Reason == "" && err != nil {
		resp.Reason = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(purchaseErrorStatus(err))
	}
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		log.Printf("purchase encode: %v", encErr)
	}
}

func purchaseErrorStatus(err error) int {
	switch {
	case errors.Is(err, entity.ErrAlreadyInFlight):
		return http.StatusConflict
	case errors.Is(err, entity.ErrTransactionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	if s.Notifier == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "notifier not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Notifier.Subscribe()
	defer s.Notifier.Unsubscribe(ch)

	// comment heartbeat every 30s so proxies keep the connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case note, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(note)
			if err != nil {
				log.Printf("notification stream marshal: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: notification\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (s *Server) handleBalanceStream(w http.ResponseWriter, r *http.Request) {
	s.streamJournal(w, r, "balance", func(lastIndex uint64) ([]uint64, [][]byte, error) {
		entries, err := s.Journal.SnapshotsAfter(lastIndex)
		if err != nil {
			return nil, nil, err
		}
		return marshalEntries(len(entries), func(i int) (uint64, any) {
			return entries[i].Index, entries[i].Record
		})
	})
}

func (s *Server) handlePurchaseStream(w http.ResponseWriter, r *http.Request) {
	s.streamJournal(w, r, "purchase", func(lastIndex uint64) ([]uint64, [][]byte, error) {
		entries, err := s.Journal.PurchasesAfter(lastIndex)
		if err != nil {
			return nil, nil, err
		}
		return marshalEntries(len(entries), func(i int) (uint64, any) {
			return entries[i].Index, entries[i].Record
		})
	})
}

func marshalEntries(n int, at func(i int) (uint64, any)) ([]uint64, [][]byte, error) {
	indexes := make([]uint64, 0, n)
	payloads := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		idx, v := at(i)
		payload, err := json.Marshal(v)
		if err != nil {
			return nil, nil, err
		}
		indexes = append(indexes, idx)
		payloads = append(payloads, payload)
	}
	return indexes, payloads, nil
}

func (s *Server) streamJournal(w http.ResponseWriter, r *http.Request, event string,
	fetch func(lastIndex uint64) ([]uint64, [][]byte, error)) {
	if s.Journal == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "journal not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(journalPollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	send := func() error {
		indexes, payloads, err := fetch(lastIndex)
		if err != nil {
			return err
		}
		for i, payload := range payloads {
			fmt.Fprintf(w, "event: %s\n", event)
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = indexes[i]
		}
		return nil
	}

	if err := send(); err != nil {
		http.Error(w, "failed to load journal", http.StatusInternalServerError)
		log.Printf("%s stream initial load: %v", event, err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := send(); err != nil {
				log.Printf("%s stream poll err: %v", event, err)
			}
		}
	}
}
