package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/danielmv21/fitpulse/internal/config"
	pkglogger "github.com/danielmv21/fitpulse/pkg/logger"
)

// AttemptRecord tracks failed attempts for one key inside a fixed window.
type AttemptRecord struct {
	Attempts     int
	FirstAttempt time.Time
	BlockedUntil time.Time // zero when no block is active
}

// AttemptStore abstracts the rate-limit record storage so the in-process map
// can later be swapped for a shared store without touching the algorithm.
type AttemptStore interface {
	Get(key string) (AttemptRecord, bool)
	Set(key string, record AttemptRecord)
	Delete(key string)
	Keys() []string
}

// memoryAttemptStore is the default process-local store. A single mutex
// guards every read-modify-write: two concurrent failures must not both
// observe the same count.
type memoryAttemptStore struct {
	mu      sync.Mutex
	records map[string]AttemptRecord
}

// NewMemoryAttemptStore creates the default in-memory attempt store
func NewMemoryAttemptStore() AttemptStore {
	return &memoryAttemptStore{records: make(map[string]AttemptRecord)}
}

func (s *memoryAttemptStore) Get(key string) (AttemptRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[key]
	return record, ok
}

func (s *memoryAttemptStore) Set(key string, record AttemptRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = record
}

func (s *memoryAttemptStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
}

func (s *memoryAttemptStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	return keys
}

// RateLimitResult reports the limiter decision for an attempt or status query
type RateLimitResult struct {
	Blocked    bool
	Attempts   int
	RetryAfter time.Duration
}

// RateLimitService penalizes repeated failed credential checks per key with
// a fixed-window counter and a temporary block. Fixed windows keep memory
// and update cost at O(1) per key; a burst straddling a window boundary can
// briefly exceed maxAttempts, which is an accepted trade-off.
//
// The store is process-local by default and is not a security boundary
// across horizontally scaled instances.
type RateLimitService struct {
	store  AttemptStore
	logger *slog.Logger
	// mu serializes the check-then-update sequence in RecordFailedAttempt
	// even when the injected store has no internal locking.
	mu sync.Mutex
}

// NewRateLimitService creates a RateLimitService over the given store
func NewRateLimitService(store AttemptStore, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{store: store, logger: logger}
}

// RecordFailedAttempt counts a failed attempt for key under the given policy
// and reports whether the key is now blocked.
func (s *RateLimitService) RecordFailedAttempt(key string, policy config.RateLimitPolicy) RateLimitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	record, ok := s.store.Get(key)

	// An active block short-circuits; counters stay untouched.
	if ok && !record.BlockedUntil.IsZero() && now.Before(record.BlockedUntil) {
		return RateLimitResult{
			Blocked:    true,
			Attempts:   record.Attempts,
			RetryAfter: record.BlockedUntil.Sub(now),
		}
	}

	// No record, or the counting window has elapsed: fresh window.
	if !ok || now.Sub(record.FirstAttempt) > policy.Window {
		s.store.Set(key, AttemptRecord{Attempts: 1, FirstAttempt: now})
		return RateLimitResult{Blocked: false, Attempts: 1}
	}

	record.Attempts++

	if record.Attempts >= policy.MaxAttempts {
		record.BlockedUntil = now.Add(policy.BlockDuration)
		s.store.Set(key, record)
		s.logger.Warn("rate limit exceeded",
			slog.String("key", pkglogger.SanitizedEmail(key)),
			slog.Int("attempts", record.Attempts),
			slog.Duration("block_duration", policy.BlockDuration))
		return RateLimitResult{
			Blocked:    true,
			Attempts:   record.Attempts,
			RetryAfter: policy.BlockDuration,
		}
	}

	s.store.Set(key, record)
	return RateLimitResult{Blocked: false, Attempts: record.Attempts}
}

// RecordSuccessfulAttempt forgives prior failures for key.
func (s *RateLimitService) RecordSuccessfulAttempt(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Delete(key)
}

// Status is a read-only projection of the limiter state for a key.
func (s *RateLimitService) Status(key string) RateLimitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.store.Get(key)
	if !ok {
		return RateLimitResult{}
	}

	now := time.Now()
	if !record.BlockedUntil.IsZero() && now.Before(record.BlockedUntil) {
		return RateLimitResult{
			Blocked:    true,
			Attempts:   record.Attempts,
			RetryAfter: record.BlockedUntil.Sub(now),
		}
	}

	return RateLimitResult{Attempts: record.Attempts}
}

// CleanupExpiredRecords evicts records whose window started before the
// retention horizon, regardless of block state, and returns the number
// removed. Keys are snapshotted first and deleted one by one so a full
// sweep never holds the lock across the whole table.
func (s *RateLimitService) CleanupExpiredRecords(retention time.Duration) int {
	horizon := time.Now().Add(-retention)
	cleaned := 0

	for _, key := range s.store.Keys() {
		record, ok := s.store.Get(key)
		if !ok {
			continue
		}
		if record.FirstAttempt.Before(horizon) {
			s.store.Delete(key)
			cleaned++
		}
	}

	if cleaned > 0 {
		s.logger.Debug("rate limit records swept", slog.Int("cleaned", cleaned))
	}

	return cleaned
}
