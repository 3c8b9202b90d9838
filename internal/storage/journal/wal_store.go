// Package journal persists purchase results and balance snapshots in a WAL
// for recovery and dashboard streaming.
package journal

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/poodlabs/junosale/internal/entity"
)

const (
	defaultJournalDir   = "./wal/journal"
	journalSegmentLimit = 1000
	journalMaxSegments  = 100
	purchaseKeyPrefix   = "purchase_"
	snapshotKeyPrefix   = "balance_snapshot_"
)

// WALStore persists purchase records and balance snapshots in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed journal under the provided directory.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultJournalDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "journal_",
		SegmentThreshold: journalSegmentLimit,
		MaxSegments:      journalMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init journal WAL")
	}

	return &WALStore{wal: wal}, nil
}

// SavePurchase writes a resolved purchase to the journal.
func (s *WALStore) SavePurchase(record entity.PurchaseRecord) error {
	if s == nil || s.wal == nil {
		return errors.New("journal store is not initialized")
	}
	if record.RequestID == "" {
		return errors.New("purchase record request id is required")
	}

	return s.write(purchaseKeyPrefix+record.RequestID, record)
}

// SaveSnapshot writes a balance snapshot to the journal.
func (s *WALStore) SaveSnapshot(record entity.SnapshotRecord) error {
	if s == nil || s.wal == nil {
		return errors.New("journal store is not initialized")
	}
	if record.Address == "" {
		return errors.New("balance snapshot address is required")
	}

	return s.write(snapshotKeyPrefix+record.Address, record)
}

func (s *WALStore) write(key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal journal record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// PurchasesAfter returns all purchase records written after the given index.
func (s *WALStore) PurchasesAfter(index uint64) ([]entity.PurchaseRecordEntry, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("journal store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []entity.PurchaseRecordEntry
	for idx := index + 1; idx <= s.wal.CurrentIndex(); idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, purchaseKeyPrefix) {
			continue
		}
		var record entity.PurchaseRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, errors.Wrap(err, "decode purchase record")
		}
		entries = append(entries, entity.PurchaseRecordEntry{Index: idx, Record: record})
	}

	return entries, nil
}

// SnapshotsAfter returns all balance snapshots written after the given index.
func (s *WALStore) SnapshotsAfter(index uint64) ([]entity.SnapshotRecordEntry, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("journal store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []entity.SnapshotRecordEntry
	for idx := index + 1; idx <= s.wal.CurrentIndex(); idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, snapshotKeyPrefix) {
			continue
		}
		var record entity.SnapshotRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, errors.Wrap(err, "decode balance snapshot")
		}
		entries = append(entries, entity.SnapshotRecordEntry{Index: idx, Record: record})
	}

	return entries, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("journal store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
