package model

import "gorm.io/datatypes"

// Content tables hold designer-authored combat definitions. The combat core
// never reads these rows directly; the content package ingests and validates
// them at startup.

// BattleCommand is a basic battle menu command (attack, defend, flee, ...).
type BattleCommand struct {
	ID     int64          `gorm:"primaryKey" json:"id"`
	Name   string         `gorm:"size:32;not null" json:"name"`
	Effect datatypes.JSON `json:"effect"`
}

// Skill is a class-usable combat skill.
type Skill struct {
	ID     int64          `gorm:"primaryKey" json:"id"`
	Name   string         `gorm:"size:32;not null" json:"name"`
	MPCost int            `gorm:"default:0" json:"mp_cost"`
	Effect datatypes.JSON `json:"effect"`
}

// SkillClassCost overrides a skill's mana cost (and optionally its display
// name) for one class.
type SkillClassCost struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SkillID int64  `gorm:"index:idx_skill_class,unique;not null" json:"skill_id"`
	ClassID int64  `gorm:"index:idx_skill_class,unique;not null" json:"class_id"`
	MPCost  int    `gorm:"not null" json:"mp_cost"`
	AltName string `gorm:"size:32" json:"alt_name"`
}

// Status is a status effect definition.
type Status struct {
	ID        int64          `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:32;not null" json:"name"`
	Permanent bool           `gorm:"default:false" json:"permanent"`
	Effect    datatypes.JSON `json:"effect"`
}

// Element is a damage element with a flat bonus percentage.
type Element struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:32;not null" json:"name"`
	BonusPct int    `gorm:"default:0" json:"bonus_pct"`
}

// Item kinds.
const (
	ItemKindConsumable = "consumable"
	ItemKindWeapon     = "weapon"
	ItemKindArmor      = "armor"
)

// Item is any obtainable item: consumables carry an effect blob, weapons
// carry elements and on-hit statuses, armor carries blocked statuses.
type Item struct {
	ID       int64          `gorm:"primaryKey" json:"id"`
	Name     string         `gorm:"size:32;not null" json:"name"`
	Kind     string         `gorm:"size:16;not null" json:"kind"`
	Price    int64          `gorm:"default:0" json:"price"`
	Bonus    datatypes.JSON `json:"bonus"`    // flat stat bonuses when equipped
	Elements datatypes.JSON `json:"elements"` // weapon: carried offensive element ids
	Inflicts datatypes.JSON `json:"inflicts"` // weapon: on-hit status ids
	Blocks   datatypes.JSON `json:"blocks"`   // armor: blocked status ids
	Effect   datatypes.JSON `json:"effect"`   // consumable: heal/cure blob
}

// LimitBreak is an ultimate ability gated by level and break tier.
type LimitBreak struct {
	ID       int64          `gorm:"primaryKey" json:"id"`
	Name     string         `gorm:"size:32;not null" json:"name"`
	Tier     int            `gorm:"default:0" json:"tier"`
	MinLevel int            `gorm:"default:1" json:"min_level"`
	Effect   datatypes.JSON `json:"effect"`
}

// LevelReward is the experience/currency granted for defeating a combatant
// of the given level.
type LevelReward struct {
	Level int   `gorm:"primaryKey" json:"level"`
	Exp   int64 `gorm:"not null" json:"exp"`
	Gold  int64 `gorm:"not null" json:"gold"`
}
