package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poodlabs/junosale/internal/entity"
)

func TestHandlePurchase(t *testing.T) {
	var gotAmount string
	s := &Server{
		Purchase: func(ctx context.Context, amountInput string) (entity.PurchaseResult, error) {
			gotAmount = amountInput
			return entity.PurchaseResult{Status: entity.PurchaseSuccess, TxHash: "ABC123"}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/purchase", strings.NewReader(`{"amount":"1.5"}`))
	rec := httptest.NewRecorder()
	s.handlePurchase(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1.5", gotAmount)
	require.JSONEq(t, `{"status":"success","tx_hash":"ABC123"}`, rec.Body.String())
}

func TestHandlePurchaseRejected(t *testing.T) {
	t.Run("already in flight", func(t *testing.T) {
		s := &Server{
			Purchase: func(ctx context.Context, amountInput string) (entity.PurchaseResult, error) {
				return entity.PurchaseResult{
					Status: entity.PurchaseRejected,
					Reason: entity.ErrAlreadyInFlight.Error(),
				}, entity.ErrAlreadyInFlight
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/purchase", strings.NewReader(`{"amount":"1"}`))
		rec := httptest.NewRecorder()
		s.handlePurchase(rec, req)

		require.Equal(t, http.StatusConflict, rec.Code)
		require.Contains(t, rec.Body.String(), "rejected")
	})

	t.Run("validation failure", func(t *testing.T) {
		s := &Server{
			Purchase: func(ctx context.Context, amountInput string) (entity.PurchaseResult, error) {
				return entity.PurchaseResult{Status: entity.PurchaseRejected}, entity.ErrEmptyAmount
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/purchase", strings.NewReader(`{"amount":""}`))
		rec := httptest.NewRecorder()
		s.handlePurchase(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandlePurchaseMethodAndBody(t *testing.T) {
	s := &Server{
		Purchase: func(ctx context.Context, amountInput string) (entity.PurchaseResult, error) {
			t.Fatal("purchase must not be called")
			return entity.PurchaseResult{}, nil
		},
	}

	rec := httptest.NewRecorder()
	s.handlePurchase(rec, httptest.NewRequest(http.MethodGet, "/purchase", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	s.handlePurchase(rec, httptest.NewRequest(http.MethodPost, "/purchase", strings.NewReader("not json")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQuote(t *testing.T) {
	s := &Server{
		Quote: func(ctx context.Context, amountInput string) (QuoteView, error) {
			require.Equal(t, "0.002", amountInput)
			return QuoteView{Amount: "0.002", Tokens: "2", Price: "1000", PriceDenom: "ujuno"}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/quote?amount=0.002", nil)
	rec := httptest.NewRecorder()
	s.handleQuote(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"amount":"0.002","tokens":"2","price":"1000","price_denom":"ujuno"}`, rec.Body.String())
}

func TestHandleQuoteBadAmount(t *testing.T) {
	s := &Server{
		Quote: func(ctx context.Context, amountInput string) (QuoteView, error) {
			return QuoteView{}, entity.ErrEmptyAmount
		},
	}

	rec := httptest.NewRecorder()
	s.handleQuote(rec, httptest.NewRequest(http.MethodGet, "/quote?amount=abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlersUnavailableWhenUnwired(t *testing.T) {
	s := &Server{}

	rec := httptest.NewRecorder()
	s.handlePurchase(rec, httptest.NewRequest(http.MethodPost, "/purchase", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	s.handleQuote(rec, httptest.NewRequest(http.MethodGet, "/quote", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
