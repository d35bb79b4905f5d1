package battle

import (
	"fmt"
	"math"

	"github.com/minako-h/duelgate/server/content"
	"github.com/minako-h/duelgate/server/model"
	"gorm.io/gorm"
)

// StatusInstance is one active status effect on a combatant: a reference
// into the definition store plus the remaining duration in rounds.
// TurnsLeft < 0 means permanent.
type StatusInstance struct {
	Def       *content.StatusDef
	TurnsLeft int
}

func (si *StatusInstance) Permanent() bool {
	return si.TurnsLeft < 0 || si.Def.Permanent
}

// Combatant is the per-battle snapshot of one participant's effective stats.
// It is built once at session creation by folding equipment bonuses and
// status multipliers into the base character, mutated for the battle's
// duration, and flushed back to the character row at settlement. A snapshot
// is owned exclusively by its session and never shared.
type Combatant struct {
	CharID    int64
	AccountID int64
	Name      string
	ClassID   int64
	RaceID    int64
	Level     int
	NPC       bool

	HP    int
	MaxHP int
	MP    int
	MaxMP int

	Atk      int
	Def      int
	MagicOff int
	MagicDef int
	Speed    int
	Luck     int

	LimitGauge int // 0-100, filled by taking damage
	BreakTier  int

	// Equipment-derived caches, fixed for the battle's duration.
	WeaponElements []int64
	WeaponInflicts []int64
	ArmorBlocks    map[int64]bool

	Statuses []*StatusInstance
}

// LoadCombatant builds a snapshot for the given character id. An unknown id
// is an error and the caller must abort session creation.
func LoadCombatant(db *gorm.DB, store *content.Store, charID int64) (*Combatant, error) {
	var ch model.Character
	if err := db.First(&ch, charID).Error; err != nil {
		return nil, fmt.Errorf("combatant %d: %w", charID, err)
	}

	var active []model.CharacterStatus
	if err := db.Where("char_id = ?", charID).Find(&active).Error; err != nil {
		return nil, fmt.Errorf("combatant %d statuses: %w", charID, err)
	}

	var equipped []model.Inventory
	if err := db.Where("char_id = ? AND equipped = ?", charID, true).Find(&equipped).Error; err != nil {
		return nil, fmt.Errorf("combatant %d equipment: %w", charID, err)
	}
	items := make([]*content.ItemDef, 0, len(equipped))
	for _, inv := range equipped {
		if it, ok := store.Item(inv.ItemID); ok {
			items = append(items, it)
		}
	}

	return BuildCombatant(ch, active, items, store), nil
}

// BuildCombatant assembles a snapshot from already-loaded parts: base stats,
// flat equipment bonuses, weapon element/on-hit caches, armor block list,
// then status multipliers (floor of stat x multiplier), then resource clamp.
func BuildCombatant(ch model.Character, active []model.CharacterStatus, equipped []*content.ItemDef, store *content.Store) *Combatant {
	c := &Combatant{
		CharID:    ch.ID,
		AccountID: ch.AccountID,
		Name:      ch.Name,
		ClassID:   ch.ClassID,
		RaceID:    ch.RaceID,
		Level:     ch.Level,
		NPC:       ch.NPC,

		HP:    ch.HP,
		MaxHP: ch.MaxHP,
		MP:    ch.MP,
		MaxMP: ch.MaxMP,

		Atk:      ch.Atk,
		Def:      ch.Def,
		MagicOff: ch.MagicOff,
		MagicDef: ch.MagicDef,
		Speed:    ch.Speed,
		Luck:     ch.Luck,

		LimitGauge: ch.LimitGauge,
		BreakTier:  ch.BreakTier,

		ArmorBlocks: make(map[int64]bool),
	}

	for _, it := range equipped {
		c.Atk += it.Bonus.Atk
		c.Def += it.Bonus.Def
		c.MagicOff += it.Bonus.MO
		c.MagicDef += it.Bonus.MD
		c.Speed += it.Bonus.Speed
		c.Luck += it.Bonus.Luck
		c.MaxHP += it.Bonus.MaxHP
		c.MaxMP += it.Bonus.MaxMP

		switch it.Kind {
		case model.ItemKindWeapon:
			c.WeaponElements = append(c.WeaponElements, it.Elements...)
			c.WeaponInflicts = append(c.WeaponInflicts, it.Inflicts...)
		case model.ItemKindArmor:
			for _, id := range it.Blocks {
				c.ArmorBlocks[id] = true
			}
		}
	}

	for _, row := range active {
		def, ok := store.Status(row.StatusID)
		if !ok {
			continue
		}
		c.Statuses = append(c.Statuses, &StatusInstance{Def: def, TurnsLeft: row.TurnsLeft})
		c.applyMultipliers(def.Effect.Multipliers)
	}

	c.clampResources()
	return c
}

func (c *Combatant) applyMultipliers(mults map[string]float64) {
	for name, m := range mults {
		if p := c.statPtr(name); p != nil {
			*p = int(math.Floor(float64(*p) * m))
		}
	}
}

func (c *Combatant) statPtr(name string) *int {
	switch name {
	case "atk":
		return &c.Atk
	case "def":
		return &c.Def
	case "mo":
		return &c.MagicOff
	case "md":
		return &c.MagicDef
	case "speed":
		return &c.Speed
	case "luck":
		return &c.Luck
	case "maxhp":
		return &c.MaxHP
	case "maxmp":
		return &c.MaxMP
	}
	return nil
}

func (c *Combatant) clampResources() {
	if c.HP > c.MaxHP {
		c.HP = c.MaxHP
	}
	if c.HP < 0 {
		c.HP = 0
	}
	if c.MP > c.MaxMP {
		c.MP = c.MaxMP
	}
	if c.MP < 0 {
		c.MP = 0
	}
}

func (c *Combatant) Alive() bool {
	return c.HP > 0
}

// ApplyDamage subtracts hp, flooring at 0.
func (c *Combatant) ApplyDamage(hp int) {
	c.HP -= hp
	if c.HP < 0 {
		c.HP = 0
	}
}

// HealHP restores health, clamped to max. Returns the amount applied.
func (c *Combatant) HealHP(hp int) int {
	if hp < 0 {
		hp = 0
	}
	before := c.HP
	c.HP += hp
	if c.HP > c.MaxHP {
		c.HP = c.MaxHP
	}
	return c.HP - before
}

// HealMP restores mana, clamped to max. Returns the amount applied.
func (c *Combatant) HealMP(mp int) int {
	if mp < 0 {
		mp = 0
	}
	before := c.MP
	c.MP += mp
	if c.MP > c.MaxMP {
		c.MP = c.MaxMP
	}
	return c.MP - before
}

// SpendMP deducts mana; the caller has already checked sufficiency.
func (c *Combatant) SpendMP(mp int) {
	c.MP -= mp
	if c.MP < 0 {
		c.MP = 0
	}
}

// FillLimit adds to the limit gauge, clamped to 100.
func (c *Combatant) FillLimit(gain int) {
	if gain <= 0 {
		return
	}
	c.LimitGauge += gain
	if c.LimitGauge > 100 {
		c.LimitGauge = 100
	}
}

// Status returns the active instance of the given status id, if any.
func (c *Combatant) Status(id int64) *StatusInstance {
	for _, si := range c.Statuses {
		if si.Def.ID == id {
			return si
		}
	}
	return nil
}

// AddStatus applies a status instance, refreshing the duration of an
// existing one rather than stacking. Returns the instance and whether it
// was newly applied.
func (c *Combatant) AddStatus(def *content.StatusDef, turns int) (*StatusInstance, bool) {
	if si := c.Status(def.ID); si != nil {
		si.TurnsLeft = turns
		return si, false
	}
	si := &StatusInstance{Def: def, TurnsLeft: turns}
	c.Statuses = append(c.Statuses, si)
	return si, true
}

// RemoveStatus drops the instance of the given status id. Returns whether
// an instance was present.
func (c *Combatant) RemoveStatus(id int64) bool {
	for i, si := range c.Statuses {
		if si.Def.ID == id {
			c.Statuses = append(c.Statuses[:i], c.Statuses[i+1:]...)
			return true
		}
	}
	return false
}

// Defending reports whether any active status halves incoming damage.
func (c *Combatant) Defending() bool {
	for _, si := range c.Statuses {
		if si.Def.Effect.Defending {
			return true
		}
	}
	return false
}

// SkipTurn returns the first active status that forces the holder to skip
// their turn, or nil.
func (c *Combatant) SkipTurn() *content.StatusDef {
	for _, si := range c.Statuses {
		if si.Def.Effect.SkipTurn {
			return si.Def
		}
	}
	return nil
}

// CommandDisabled reports whether any active status disables the command.
// The disable-all sentinel takes precedence over explicit entries.
func (c *Combatant) CommandDisabled(commandID int64) bool {
	for _, si := range c.Statuses {
		for _, id := range si.Def.Effect.DisabledCommands {
			if id == content.DisableAllCommands || id == commandID {
				return true
			}
		}
	}
	return false
}
