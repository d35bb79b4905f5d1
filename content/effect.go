package content

import (
	"encoding/json"
	"fmt"
)

// Target kinds for sub-effects.
const (
	TargetSelf     = "self"
	TargetOpponent = "opponent"
)

// DisableAllCommands is the sentinel in a status's disabled-commands list
// that disables every command regardless of any other entry.
const DisableAllCommands = int64(-1)

// Effect is the decoded, validated form of a command/skill/item/limit-break
// effect descriptor. Exactly the sub-effects present in the source blob are
// non-nil; resolution code presence-checks pointers instead of re-parsing
// loosely-typed maps.
type Effect struct {
	OpenMenu  bool         `json:"open_menu,omitempty"`
	Flee      *FleeSpec    `json:"flee,omitempty"`
	Damage    *DamageSpec  `json:"damage,omitempty"`
	Heal      *HealSpec    `json:"heal,omitempty"`
	SetStatus *StatusApply `json:"set_status,omitempty"`
	Cure      []int64      `json:"cure,omitempty"`
}

// FleeSpec describes a flee attempt. The formula's nominal inputs are the
// actor's and target's speed and luck; a positive result always succeeds.
type FleeSpec struct {
	Formula string `json:"formula"`
}

// DamageSpec describes a damage sub-effect.
type DamageSpec struct {
	Formula        string  `json:"formula,omitempty"`   // empty = category default
	Randomize      float64 `json:"randomize,omitempty"` // symmetric factor, 0 = none
	Elements       []int64 `json:"elements,omitempty"`
	WeaponElements bool    `json:"weapon_elements,omitempty"` // include weapon-carried elements
	WeaponStatuses bool    `json:"weapon_statuses,omitempty"` // roll weapon on-hit statuses
}

// HealSpec describes a heal sub-effect. Either formula may be empty.
type HealSpec struct {
	HPFormula string `json:"hp_formula,omitempty"`
	MPFormula string `json:"mp_formula,omitempty"`
	Target    string `json:"target,omitempty"` // default self
}

// StatusApply describes a status-infliction sub-effect.
type StatusApply struct {
	Statuses []int64 `json:"statuses"`
	Chance   float64 `json:"chance,omitempty"` // 0 = 100%
	Target   string  `json:"target,omitempty"` // default opponent
}

// StatusEffect is the decoded descriptor of a status definition.
type StatusEffect struct {
	Multipliers      map[string]float64 `json:"multipliers,omitempty"` // stat name → multiplier
	SkipTurn         bool               `json:"skip_turn,omitempty"`
	SkipText         string             `json:"skip_text,omitempty"`
	Defending        bool               `json:"defending,omitempty"` // halves incoming damage
	DamagePerTurn    string             `json:"damage_per_turn,omitempty"`
	HealPerTurn      string             `json:"heal_per_turn,omitempty"`
	Duration         int                `json:"duration,omitempty"` // rounds; ignored if permanent
	DisabledCommands []int64            `json:"disabled_commands,omitempty"`
}

// Stat names accepted in status multiplier maps.
var statNames = map[string]bool{
	"atk": true, "def": true, "mo": true, "md": true,
	"speed": true, "luck": true, "maxhp": true, "maxmp": true,
}

func decodeEffect(raw []byte, where string) (*Effect, error) {
	e := &Effect{}
	if len(raw) == 0 {
		return e, nil
	}
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, fmt.Errorf("%s: decode effect: %w", where, err)
	}
	if err := e.validate(where); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Effect) validate(where string) error {
	if e.Heal != nil {
		if err := validTarget(e.Heal.Target); err != nil {
			return fmt.Errorf("%s: heal: %w", where, err)
		}
		if e.Heal.HPFormula == "" && e.Heal.MPFormula == "" {
			return fmt.Errorf("%s: heal with no formula", where)
		}
	}
	if e.SetStatus != nil {
		if len(e.SetStatus.Statuses) == 0 {
			return fmt.Errorf("%s: set_status with no statuses", where)
		}
		if err := validTarget(e.SetStatus.Target); err != nil {
			return fmt.Errorf("%s: set_status: %w", where, err)
		}
		if e.SetStatus.Chance < 0 || e.SetStatus.Chance > 1 {
			return fmt.Errorf("%s: set_status chance %v out of [0,1]", where, e.SetStatus.Chance)
		}
	}
	if e.Damage != nil && (e.Damage.Randomize < 0 || e.Damage.Randomize > 1) {
		return fmt.Errorf("%s: damage randomize %v out of [0,1]", where, e.Damage.Randomize)
	}
	return nil
}

func validTarget(t string) error {
	if t != "" && t != TargetSelf && t != TargetOpponent {
		return fmt.Errorf("unknown target %q", t)
	}
	return nil
}

func decodeStatusEffect(raw []byte, where string) (*StatusEffect, error) {
	se := &StatusEffect{}
	if len(raw) == 0 {
		return se, nil
	}
	if err := json.Unmarshal(raw, se); err != nil {
		return nil, fmt.Errorf("%s: decode effect: %w", where, err)
	}
	for name := range se.Multipliers {
		if !statNames[name] {
			return nil, fmt.Errorf("%s: unknown stat %q in multipliers", where, name)
		}
	}
	if se.Duration < 0 {
		return nil, fmt.Errorf("%s: negative duration", where)
	}
	return se, nil
}

func decodeIDList(raw []byte, where string) ([]int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("%s: decode id list: %w", where, err)
	}
	return ids, nil
}

// StatBonus is the flat equipment bonus block on weapons and armor.
type StatBonus struct {
	Atk   int `json:"atk,omitempty"`
	Def   int `json:"def,omitempty"`
	MO    int `json:"mo,omitempty"`
	MD    int `json:"md,omitempty"`
	Speed int `json:"speed,omitempty"`
	Luck  int `json:"luck,omitempty"`
	MaxHP int `json:"maxhp,omitempty"`
	MaxMP int `json:"maxmp,omitempty"`
}

func decodeBonus(raw []byte, where string) (StatBonus, error) {
	var b StatBonus
	if len(raw) == 0 {
		return b, nil
	}
	if err := json.Unmarshal(raw, &b); err != nil {
		return b, fmt.Errorf("%s: decode bonus: %w", where, err)
	}
	return b, nil
}
