package battle

import (
	"context"

	"github.com/minako-h/duelgate/server/config"
	"github.com/minako-h/duelgate/server/content"
)

// Content ids shared across battle tests.
const (
	cmdAttack   int64 = 1
	cmdDefend   int64 = 2
	cmdFlee     int64 = 3
	cmdItemMenu int64 = 4
	cmdNoop     int64 = 5

	stDefend int64 = 10
	stPoison int64 = 11
	stStun   int64 = 12
	stRegen  int64 = 13
	stCurse  int64 = 14
	stWeak   int64 = 15

	skFire  int64 = 20
	skHeal  int64 = 21
	skCure  int64 = 22
	skFlame int64 = 23
	skWild  int64 = 24
	skGraze int64 = 25

	elFire int64 = 30

	itPotion int64 = 40
	itSword  int64 = 41
	itArmor  int64 = 42

	lbMeteor int64 = 50
)

// testClassID is the class every fixture fighter belongs to; mana costs are
// registered per class, so the store pins each costed skill to it.
const testClassID int64 = 1

func testStore() *content.Store {
	store := content.NewStore(content.StoreData{
		Commands: []*content.Command{
			{ID: cmdAttack, Name: "Attack", Effect: &content.Effect{
				Damage: &content.DamageSpec{WeaponElements: true, WeaponStatuses: true},
			}},
			{ID: cmdDefend, Name: "Defend", Effect: &content.Effect{
				SetStatus: &content.StatusApply{Statuses: []int64{stDefend}, Target: content.TargetSelf},
			}},
			{ID: cmdFlee, Name: "Flee", Effect: &content.Effect{
				Flee: &content.FleeSpec{Formula: "SPEED - ENEMY_SPEED"},
			}},
			{ID: cmdItemMenu, Name: "Item", Effect: &content.Effect{OpenMenu: true}},
			{ID: cmdNoop, Name: "Taunt", Effect: &content.Effect{}},
		},
		Skills: []*content.Skill{
			{ID: skFire, Name: "Fire", MPCost: 10, Effect: &content.Effect{
				Damage: &content.DamageSpec{Formula: "MO * 2 - ENEMY_MD"},
			}},
			{ID: skHeal, Name: "Heal", MPCost: 5, Effect: &content.Effect{
				Heal: &content.HealSpec{HPFormula: "30"},
			}},
			{ID: skCure, Name: "Purify", Effect: &content.Effect{
				Cure: []int64{stPoison},
			}},
			{ID: skFlame, Name: "Flame Burst", MPCost: 10, Effect: &content.Effect{
				Damage: &content.DamageSpec{Formula: "10", Elements: []int64{elFire}},
			}},
			{ID: skWild, Name: "Wild Swing", Effect: &content.Effect{
				Damage: &content.DamageSpec{Formula: "ATK * 2 - ENEMY_DEF", Randomize: 0.2},
			}},
			{ID: skGraze, Name: "Graze", Effect: &content.Effect{
				Damage: &content.DamageSpec{Formula: "1", Randomize: 1},
			}},
		},
		Statuses: []*content.StatusDef{
			{ID: stDefend, Name: "Defending", Effect: &content.StatusEffect{Defending: true, Duration: 1}},
			{ID: stPoison, Name: "Poison", Effect: &content.StatusEffect{DamagePerTurn: "5", Duration: 3}},
			{ID: stStun, Name: "Stun", Effect: &content.StatusEffect{SkipTurn: true, SkipText: "Stunned and unable to act!", Duration: 2}},
			{ID: stRegen, Name: "Regen", Effect: &content.StatusEffect{HealPerTurn: "4", Duration: 2}},
			{ID: stCurse, Name: "Curse", Effect: &content.StatusEffect{DisabledCommands: []int64{content.DisableAllCommands}, Duration: 2}},
			{ID: stWeak, Name: "Weakness", Effect: &content.StatusEffect{Multipliers: map[string]float64{"atk": 0.5}, Duration: 3}},
		},
		Elements: []*content.ElementDef{
			{ID: elFire, Name: "Fire", BonusPct: 50},
		},
		Items: []*content.ItemDef{
			{ID: itPotion, Name: "Potion", Kind: "consumable", Effect: &content.Effect{
				Heal: &content.HealSpec{HPFormula: "25"},
			}},
			{ID: itSword, Name: "Flame Sword", Kind: "weapon",
				Bonus: content.StatBonus{Atk: 5}, Elements: []int64{elFire}, Inflicts: []int64{stPoison}},
			{ID: itArmor, Name: "Warded Mail", Kind: "armor",
				Bonus: content.StatBonus{Def: 3}, Blocks: []int64{stPoison}},
		},
		Limits: []*content.LimitDef{
			{ID: lbMeteor, Name: "Meteor", Tier: 1, MinLevel: 3, Effect: &content.Effect{
				Damage: &content.DamageSpec{Formula: "100"},
			}},
		},
		Rewards: []*content.RewardRow{
			{Level: 3, Exp: 50, Gold: 25},
		},
	})
	for id, cost := range map[int64]int{skFire: 10, skHeal: 5, skFlame: 10} {
		sk, _ := store.Skill(id)
		sk.SetClassCost(testClassID, cost)
	}
	return store
}

func testCfg() config.BattleConfig {
	return config.BattleConfig{
		AIDelayMs:       1,
		AIDefendChance:  0.2,
		BaseFleeChance:  0.3,
		CritMultiplier:  1.5,
		WeaponStatusPct: 0.25,
		LimitFillRate:   0.5,
	}
}

// newFighter builds a snapshot with the baseline test stats: the attacker
// side of the end-to-end scenarios (ATK 20 vs DEF 5).
func newFighter(id int64, name string) *Combatant {
	return &Combatant{
		CharID:      id,
		Name:        name,
		ClassID:     testClassID,
		Level:       3,
		HP:          100,
		MaxHP:       100,
		MP:          50,
		MaxMP:       50,
		Atk:         20,
		Def:         5,
		MagicOff:    12,
		MagicDef:    8,
		Speed:       10,
		Luck:        0,
		ArmorBlocks: make(map[int64]bool),
	}
}

func testSession(a, b *Combatant) *Session {
	return NewSession("test-session", 1, KindPVP, a, b)
}

// testResolver returns a resolver with the random seam pinned high: no
// crits below luck 100, no base-chance flee, no weapon procs.
func testResolver(bag ItemBag) *Resolver {
	r := NewResolver(testStore(), NewEvaluator(nil), testCfg(), bag, nil)
	r.rnd = func() float64 { return 0.99 }
	return r
}

// memBag is an in-memory ItemBag.
type memBag struct {
	counts map[int64]int // itemID -> qty, single owner
}

func newMemBag() *memBag {
	return &memBag{counts: make(map[int64]int)}
}

func (b *memBag) Count(_ context.Context, _ int64, itemID int64) (int, error) {
	return b.counts[itemID], nil
}

func (b *memBag) Consume(_ context.Context, _ int64, itemID int64) error {
	if b.counts[itemID] > 0 {
		b.counts[itemID]--
	}
	return nil
}
