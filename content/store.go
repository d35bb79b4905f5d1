package content

import (
	"fmt"
	"sort"

	"github.com/minako-h/duelgate/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Command is a validated battle command definition.
type Command struct {
	ID     int64
	Name   string
	Effect *Effect
}

// Skill is a validated skill definition with per-class cost overrides.
type Skill struct {
	ID     int64
	Name   string
	MPCost int
	Effect *Effect

	classCost map[int64]int
	altName   map[int64]string
}

// CostFor returns the mana cost of the skill for the given class. Costs are
// keyed strictly per class: a class with no override row casts for free.
func (s *Skill) CostFor(classID int64) int {
	return s.classCost[classID]
}

// NameFor returns the class-specific display name, if any.
func (s *Skill) NameFor(classID int64) string {
	if n, ok := s.altName[classID]; ok && n != "" {
		return n
	}
	return s.Name
}

// StatusDef is a validated status definition.
type StatusDef struct {
	ID        int64
	Name      string
	Permanent bool
	Effect    *StatusEffect
}

// ElementDef is an element with its bonus-damage percentage.
type ElementDef struct {
	ID       int64
	Name     string
	BonusPct int
}

// ItemDef is a validated item definition.
type ItemDef struct {
	ID       int64
	Name     string
	Kind     string
	Bonus    StatBonus
	Elements []int64 // weapon
	Inflicts []int64 // weapon
	Blocks   []int64 // armor
	Effect   *Effect // consumable
}

// LimitDef is a validated limit-break definition.
type LimitDef struct {
	ID       int64
	Name     string
	Tier     int
	MinLevel int
	Effect   *Effect
}

// RewardRow is the settlement reward for defeating a combatant of Level.
type RewardRow struct {
	Level int
	Exp   int64
	Gold  int64
}

// Store is the immutable in-memory definition store. It is loaded once at
// startup and safe for concurrent reads from any number of sessions.
type Store struct {
	commands map[int64]*Command
	skills   map[int64]*Skill
	statuses map[int64]*StatusDef
	elements map[int64]*ElementDef
	items    map[int64]*ItemDef
	limits   map[int64]*LimitDef
	rewards  map[int]*RewardRow
}

// Load reads every content category from the database, decodes and validates
// the effect blobs, and returns the assembled store. Malformed content fails
// the load; a battle must never discover bad data mid-resolution.
func Load(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	tables := resolveTables(db, logger)
	s := &Store{
		commands: make(map[int64]*Command),
		skills:   make(map[int64]*Skill),
		statuses: make(map[int64]*StatusDef),
		elements: make(map[int64]*ElementDef),
		items:    make(map[int64]*ItemDef),
		limits:   make(map[int64]*LimitDef),
		rewards:  make(map[int]*RewardRow),
	}

	if tables.commands != "" {
		var rows []model.BattleCommand
		if err := db.Table(tables.commands).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("content: load commands: %w", err)
		}
		for _, r := range rows {
			eff, err := decodeEffect(r.Effect, fmt.Sprintf("command %d (%s)", r.ID, r.Name))
			if err != nil {
				return nil, err
			}
			s.commands[r.ID] = &Command{ID: r.ID, Name: r.Name, Effect: eff}
		}
	}

	if tables.skills != "" {
		var rows []model.Skill
		if err := db.Table(tables.skills).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("content: load skills: %w", err)
		}
		for _, r := range rows {
			eff, err := decodeEffect(r.Effect, fmt.Sprintf("skill %d (%s)", r.ID, r.Name))
			if err != nil {
				return nil, err
			}
			s.skills[r.ID] = &Skill{
				ID: r.ID, Name: r.Name, MPCost: r.MPCost, Effect: eff,
				classCost: make(map[int64]int),
				altName:   make(map[int64]string),
			}
		}
	}

	if tables.skillCosts != "" {
		var rows []model.SkillClassCost
		if err := db.Table(tables.skillCosts).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("content: load skill costs: %w", err)
		}
		for _, r := range rows {
			sk, ok := s.skills[r.SkillID]
			if !ok {
				logger.Warn("skill cost override for unknown skill",
					zap.Int64("skill_id", r.SkillID), zap.Int64("class_id", r.ClassID))
				continue
			}
			sk.classCost[r.ClassID] = r.MPCost
			if r.AltName != "" {
				sk.altName[r.ClassID] = r.AltName
			}
		}
	}

	if tables.statuses != "" {
		var rows []model.Status
		if err := db.Table(tables.statuses).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("content: load statuses: %w", err)
		}
		for _, r := range rows {
			eff, err := decodeStatusEffect(r.Effect, fmt.Sprintf("status %d (%s)", r.ID, r.Name))
			if err != nil {
				return nil, err
			}
			s.statuses[r.ID] = &StatusDef{ID: r.ID, Name: r.Name, Permanent: r.Permanent, Effect: eff}
		}
	}

	if tables.elements != "" {
		var rows []model.Element
		if err := db.Table(tables.elements).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("content: load elements: %w", err)
		}
		for _, r := range rows {
			s.elements[r.ID] = &ElementDef{ID: r.ID, Name: r.Name, BonusPct: r.BonusPct}
		}
	}

	if tables.items != "" {
		var rows []model.Item
		if err := db.Table(tables.items).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("content: load items: %w", err)
		}
		for _, r := range rows {
			where := fmt.Sprintf("item %d (%s)", r.ID, r.Name)
			bonus, err := decodeBonus(r.Bonus, where)
			if err != nil {
				return nil, err
			}
			elems, err := decodeIDList(r.Elements, where)
			if err != nil {
				return nil, err
			}
			inflicts, err := decodeIDList(r.Inflicts, where)
			if err != nil {
				return nil, err
			}
			blocks, err := decodeIDList(r.Blocks, where)
			if err != nil {
				return nil, err
			}
			eff, err := decodeEffect(r.Effect, where)
			if err != nil {
				return nil, err
			}
			s.items[r.ID] = &ItemDef{
				ID: r.ID, Name: r.Name, Kind: r.Kind,
				Bonus: bonus, Elements: elems, Inflicts: inflicts, Blocks: blocks,
				Effect: eff,
			}
		}
	}

	if tables.limitBreaks != "" {
		var rows []model.LimitBreak
		if err := db.Table(tables.limitBreaks).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("content: load limit breaks: %w", err)
		}
		for _, r := range rows {
			eff, err := decodeEffect(r.Effect, fmt.Sprintf("limit %d (%s)", r.ID, r.Name))
			if err != nil {
				return nil, err
			}
			s.limits[r.ID] = &LimitDef{ID: r.ID, Name: r.Name, Tier: r.Tier, MinLevel: r.MinLevel, Effect: eff}
		}
	}

	if tables.levelRewards != "" {
		var rows []model.LevelReward
		if err := db.Table(tables.levelRewards).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("content: load level rewards: %w", err)
		}
		for _, r := range rows {
			s.rewards[r.Level] = &RewardRow{Level: r.Level, Exp: r.Exp, Gold: r.Gold}
		}
	}

	logger.Info("content loaded",
		zap.Int("commands", len(s.commands)),
		zap.Int("skills", len(s.skills)),
		zap.Int("statuses", len(s.statuses)),
		zap.Int("elements", len(s.elements)),
		zap.Int("items", len(s.items)),
		zap.Int("limit_breaks", len(s.limits)),
		zap.Int("level_rewards", len(s.rewards)))
	return s, nil
}

// StoreData seeds a Store directly; used by tests and fixtures.
type StoreData struct {
	Commands []*Command
	Skills   []*Skill
	Statuses []*StatusDef
	Elements []*ElementDef
	Items    []*ItemDef
	Limits   []*LimitDef
	Rewards  []*RewardRow
}

// NewStore builds a Store from in-memory definitions.
func NewStore(d StoreData) *Store {
	s := &Store{
		commands: make(map[int64]*Command),
		skills:   make(map[int64]*Skill),
		statuses: make(map[int64]*StatusDef),
		elements: make(map[int64]*ElementDef),
		items:    make(map[int64]*ItemDef),
		limits:   make(map[int64]*LimitDef),
		rewards:  make(map[int]*RewardRow),
	}
	for _, c := range d.Commands {
		if c.Effect == nil {
			c.Effect = &Effect{}
		}
		s.commands[c.ID] = c
	}
	for _, sk := range d.Skills {
		if sk.Effect == nil {
			sk.Effect = &Effect{}
		}
		if sk.classCost == nil {
			sk.classCost = make(map[int64]int)
		}
		if sk.altName == nil {
			sk.altName = make(map[int64]string)
		}
		s.skills[sk.ID] = sk
	}
	for _, st := range d.Statuses {
		if st.Effect == nil {
			st.Effect = &StatusEffect{}
		}
		s.statuses[st.ID] = st
	}
	for _, e := range d.Elements {
		s.elements[e.ID] = e
	}
	for _, it := range d.Items {
		s.items[it.ID] = it
	}
	for _, l := range d.Limits {
		if l.Effect == nil {
			l.Effect = &Effect{}
		}
		s.limits[l.ID] = l
	}
	for _, r := range d.Rewards {
		s.rewards[r.Level] = r
	}
	return s
}

// SetClassCost registers a per-class mana cost override; test helper.
func (s *Skill) SetClassCost(classID int64, cost int) {
	if s.classCost == nil {
		s.classCost = make(map[int64]int)
	}
	s.classCost[classID] = cost
}

func (s *Store) Command(id int64) (*Command, bool) {
	c, ok := s.commands[id]
	return c, ok
}

func (s *Store) Skill(id int64) (*Skill, bool) {
	sk, ok := s.skills[id]
	return sk, ok
}

func (s *Store) Status(id int64) (*StatusDef, bool) {
	st, ok := s.statuses[id]
	return st, ok
}

func (s *Store) Element(id int64) (*ElementDef, bool) {
	e, ok := s.elements[id]
	return e, ok
}

func (s *Store) Item(id int64) (*ItemDef, bool) {
	it, ok := s.items[id]
	return it, ok
}

func (s *Store) LimitBreak(id int64) (*LimitDef, bool) {
	l, ok := s.limits[id]
	return l, ok
}

// LevelReward returns the reward row keyed by the defeated side's level.
func (s *Store) LevelReward(level int) (*RewardRow, bool) {
	r, ok := s.rewards[level]
	return r, ok
}

// Commands returns all command definitions ordered by id, for menu building.
func (s *Store) Commands() []*Command {
	out := make([]*Command, 0, len(s.commands))
	for _, c := range s.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
