package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	"github.com/bazcar/bazcar-backend/pkg/logger"
)

const (
	cartKeyPrefix   = "bazcar_cart:"
	qrCodeKeyPrefix = "bazcar_qr_code:"

	snapshotWriteTimeout = 5 * time.Second
)

func cartKey(sessionID string) string   { return cartKeyPrefix + sessionID }
func qrCodeKey(sessionID string) string { return qrCodeKeyPrefix + sessionID }

// SessionStore is a byte-oriented key/value store for session data.
// Get reports found=false for a missing key.
type SessionStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// CartSnapshot loads and saves whole carts. Saves are queued and written by a
// single goroutine; only the latest snapshot per session is written.
// Storage failures are logged and never reach the caller.
type CartSnapshot struct {
	store SessionStore

	mu      sync.Mutex
	pending map[string][]byte
	writing map[string][]byte

	wake    chan struct{}
	flush   chan chan struct{}
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func NewCartSnapshot(store SessionStore) *CartSnapshot {
	s := &CartSnapshot{
		store:   store,
		pending: make(map[string][]byte),
		wake:    make(chan struct{}, 1),
		flush:   make(chan chan struct{}),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

// Load returns the persisted cart of a session. Missing, unreadable or
// malformed data all yield an empty cart.
func (s *CartSnapshot) Load(ctx context.Context, sessionID string) []model.CartItem {
	key := cartKey(sessionID)

	s.mu.Lock()
	data, queued := s.pending[key]
	if !queued {
		data, queued = s.writing[key]
	}
	s.mu.Unlock()

	if !queued {
		var (
			found bool
			err   error
		)
		data, found, err = s.store.Get(ctx, key)
		if err != nil {
			logger.Warn("Cart snapshot unreadable, starting empty", logger.Fields{
				"session_id": sessionID,
				"error":      err.Error(),
			})
			return []model.CartItem{}
		}
		if !found {
			return []model.CartItem{}
		}
	}

	var items []model.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		logger.Warn("Cart snapshot malformed, starting empty", logger.Fields{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return []model.CartItem{}
	}
	if items == nil {
		items = []model.CartItem{}
	}
	return items
}

// Save queues a snapshot of items for sessionID and returns immediately.
func (s *CartSnapshot) Save(sessionID string, items []model.CartItem) {
	if items == nil {
		items = []model.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		logger.Error("Failed to encode cart snapshot", err, logger.Fields{"session_id": sessionID})
		return
	}

	s.mu.Lock()
	s.pending[cartKey(sessionID)] = data
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Flush blocks until every snapshot queued before the call has been written.
func (s *CartSnapshot) Flush(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case s.flush <- done:
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes what is still queued and stops the writer.
func (s *CartSnapshot) Close() {
	s.once.Do(func() { close(s.stop) })
	<-s.stopped
}

func (s *CartSnapshot) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.wake:
			s.drain()
		case done := <-s.flush:
			s.drain()
			close(done)
		case <-s.stop:
			s.drain()
			return
		}
	}
}

func (s *CartSnapshot) drain() {
	s.mu.Lock()
	batch := s.pending
	s.pending = make(map[string][]byte)
	s.writing = batch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.writing = nil
		s.mu.Unlock()
	}()

	for key, data := range batch {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotWriteTimeout)
		if err := s.store.Set(ctx, key, data); err != nil {
			logger.Warn("Cart snapshot write failed", logger.Fields{
				"key":   key,
				"error": err.Error(),
			})
		}
		cancel()
	}
}
