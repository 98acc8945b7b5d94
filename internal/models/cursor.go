// internal/models/cursor.go
package models

import "time"

// FollowerCursor is the follower's durable position in the ledger event log.
// A single row (ID 1) is updated in the same database transaction as the
// projection it guards, so a crash between apply and advance replays the
// event instead of skipping it.
type FollowerCursor struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	LastSeq   uint64    `json:"last_seq" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}
