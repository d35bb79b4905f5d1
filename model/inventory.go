package model

import "time"

// Equipment slot indices. -1 = not equipped.
const (
	SlotMainHand  = 0
	SlotOffHand   = 1
	SlotHead      = 2
	SlotBody      = 3
	SlotAccessory = 4
)

// Inventory represents a single item stack in a character's bag.
type Inventory struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CharID    int64     `gorm:"index:idx_char_inventory;not null" json:"char_id"`
	ItemID    int64     `gorm:"not null" json:"item_id"`
	Qty       int       `gorm:"default:1" json:"qty"`
	Equipped  bool      `gorm:"default:false" json:"equipped"`
	SlotIndex int       `gorm:"default:-1" json:"slot_index"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
