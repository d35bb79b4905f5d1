package model

import (
	"time"

	"gorm.io/datatypes"
)

// Battle lifecycle statuses as persisted.
const (
	BattleActive   = "ACTIVE"
	BattleFinished = "FINISHED"
	BattleFled     = "FLED"
)

// Battle is the persisted record of one combat session. The in-memory
// session is destroyed after settlement; this row and its log survive.
type Battle struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string         `gorm:"uniqueIndex;size:36;not null" json:"session_id"`
	Kind      string         `gorm:"size:8;not null" json:"kind"` // PVP | PVE
	CharAID   int64          `gorm:"index;not null" json:"char_a_id"`
	CharBID   int64          `gorm:"index;not null" json:"char_b_id"`
	Status    string         `gorm:"size:16;not null" json:"status"`
	WinnerID  *int64         `json:"winner_id"` // nil on flee or active
	Turns     int            `gorm:"default:0" json:"turns"`
	Log       datatypes.JSON `json:"log"` // append-only chronological event log
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
