package model

import "time"

// Character represents a player's in-game character.
//
// Exp is the cumulative historical experience counter; LevelExp is the
// within-level progression counter. Settlement keeps both in sync when it
// grants rewards.
type Character struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID  int64     `gorm:"index:idx_account;not null" json:"account_id"`
	Name       string    `gorm:"uniqueIndex;size:32;not null" json:"name"`
	ClassID    int64     `gorm:"not null" json:"class_id"`
	RaceID     int64     `gorm:"not null" json:"race_id"`
	Level      int       `gorm:"default:1" json:"level"`
	Exp        int64     `gorm:"default:0" json:"exp"`
	LevelExp   int64     `gorm:"default:0" json:"level_exp"`
	HP         int       `gorm:"not null" json:"hp"`
	MaxHP      int       `gorm:"not null" json:"max_hp"`
	MP         int       `gorm:"not null" json:"mp"`
	MaxMP      int       `gorm:"not null" json:"max_mp"`
	Atk        int       `gorm:"default:10" json:"atk"`
	Def        int       `gorm:"default:5" json:"def"`
	MagicOff   int       `gorm:"default:10" json:"magic_off"`
	MagicDef   int       `gorm:"default:5" json:"magic_def"`
	Speed      int       `gorm:"default:10" json:"speed"`
	Luck       int       `gorm:"default:10" json:"luck"`
	Gold       int64     `gorm:"default:0" json:"gold"`
	LimitGauge int       `gorm:"default:0" json:"limit_gauge"` // 0-100
	BreakTier  int       `gorm:"default:0" json:"break_tier"`
	Wins       int       `gorm:"default:0" json:"wins"`
	Losses     int       `gorm:"default:0" json:"losses"`
	NPC        bool      `gorm:"default:false" json:"npc"` // automated combatant
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CharacterStatus is a status effect active on a character outside of (or
// carried into) battle. TurnsLeft < 0 means permanent.
type CharacterStatus struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CharID    int64     `gorm:"index:idx_char_status;not null" json:"char_id"`
	StatusID  int64     `gorm:"not null" json:"status_id"`
	TurnsLeft int       `gorm:"default:0" json:"turns_left"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
