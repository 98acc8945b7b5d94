// internal/services/follower_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/agentmarket-backend/internal/config"
	"github.com/javajoker/agentmarket-backend/internal/ledger"
	"github.com/javajoker/agentmarket-backend/internal/models"
)

// EventSource is the slice of the ledger the follower consumes.
type EventSource interface {
	FinalizedEventsAfter(seq uint64, limit int) []ledger.Event
	HeadSeq() uint64
}

// poisonRetryLimit bounds how often a malformed event is retried before it
// is skipped and surfaced as an operational alert, so a permanently broken
// event cannot block independent events behind it. Only event-intrinsic
// failures count toward the limit; transient store faults retry forever.
const poisonRetryLimit = 5

// FollowerService tails the ledger event log from a durable cursor and
// projects each finalized event into the mirror store. The cursor row is
// advanced in the same database transaction as the projection it guards:
// a crash between the two replays the event, and replays are safe because
// every projection is idempotent.
type FollowerService struct {
	db          *gorm.DB
	chain       EventSource
	projections *ProjectionService
	interval    time.Duration
	batchSize   int

	failingSeq   uint64
	failingCount int
}

func NewFollowerService(db *gorm.DB, chain EventSource, projections *ProjectionService, cfg config.FollowerConfig) *FollowerService {
	interval := time.Duration(cfg.PollIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &FollowerService{
		db:          db,
		chain:       chain,
		projections: projections,
		interval:    interval,
		batchSize:   batchSize,
	}
}

// Run polls until the context is cancelled. Projection failures are retried
// on the next tick without advancing the cursor.
func (s *FollowerService) Run(ctx context.Context) error {
	if _, err := s.loadCursor(); err != nil {
		return err
	}

	logrus.WithField("interval", s.interval).Info("Chain event follower started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Chain event follower stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sync(); err != nil {
				logrus.WithError(err).Warn("Follower sync incomplete; will retry")
			}
		}
	}
}

// Sync drains every currently finalized event past the cursor and returns
// how many projections were applied. It stops early on the first failure so
// the cursor never skips an unapplied event.
func (s *FollowerService) Sync() (int, error) {
	applied := 0
	for {
		cursor, err := s.loadCursor()
		if err != nil {
			return applied, err
		}

		events := s.chain.FinalizedEventsAfter(cursor, s.batchSize)
		if len(events) == 0 {
			return applied, nil
		}

		for _, ev := range events {
			if err := s.applyAndAdvance(ev); err != nil {
				if s.recordFailure(ev, err) {
					continue
				}
				return applied, err
			}
			s.clearFailure()
			applied++
		}
	}
}

// Lag reports how many ledger events the mirror is behind, for health
// reporting.
func (s *FollowerService) Lag() (uint64, error) {
	cursor, err := s.loadCursor()
	if err != nil {
		return 0, err
	}
	head := s.chain.HeadSeq()
	if head <= cursor {
		return 0, nil
	}
	return head - cursor, nil
}

func (s *FollowerService) applyAndAdvance(ev ledger.Event) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.projections.Apply(tx, ev, models.IngestSourceFollower); err != nil {
			return err
		}
		return tx.Model(&models.FollowerCursor{}).
			Where("id = ?", 1).
			Update("last_seq", ev.Seq).Error
	})
}

func (s *FollowerService) loadCursor() (uint64, error) {
	var cursor models.FollowerCursor
	if err := s.db.Where(models.FollowerCursor{ID: 1}).FirstOrCreate(&cursor).Error; err != nil {
		return 0, err
	}
	return cursor.LastSeq, nil
}

// recordFailure decides whether a failed projection may ever be skipped.
// Transient faults (store unavailable, constraint hiccups) never advance the
// cursor: the event is retried on the next tick, indefinitely, because the
// cursor is the only replay path. Only a malformed event — one the
// projection itself can never apply — counts toward the retry limit; once
// the limit is hit it is skipped by advancing the cursor without a
// projection, and the alert is logged for operators. Returning true tells
// the sync loop to continue with the next event.
func (s *FollowerService) recordFailure(ev ledger.Event, err error) bool {
	if !errors.Is(err, ErrMalformedEvent) {
		s.clearFailure()
		return false
	}

	if s.failingSeq != ev.Seq {
		s.failingSeq = ev.Seq
		s.failingCount = 0
	}
	s.failingCount++

	if s.failingCount < poisonRetryLimit {
		return false
	}

	logrus.WithError(err).WithFields(logrus.Fields{
		"seq":    ev.Seq,
		"kind":   ev.Kind,
		"tx_ref": ev.TxRef,
	}).Error("Skipping poison event after repeated projection failures")

	skipErr := s.db.Model(&models.FollowerCursor{}).
		Where("id = ?", 1).
		Update("last_seq", ev.Seq).Error
	if skipErr != nil {
		logrus.WithError(skipErr).Error("Failed to advance cursor past poison event")
		return false
	}
	s.clearFailure()
	return true
}

func (s *FollowerService) clearFailure() {
	s.failingSeq = 0
	s.failingCount = 0
}
