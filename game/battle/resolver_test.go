package battle

import (
	"context"
	"testing"

	"github.com/minako-h/duelgate/server/model"
)

func TestAttackDealsFormulaDamage(t *testing.T) {
	// ATK 20 vs DEF 5, default formula, no randomize, no crit: 20*2-5 = 35.
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	sess := testSession(a, b)

	res := r.Resolve(context.Background(), sess, a, Action{CommandID: cmdAttack})

	if res.Rejected || !res.Consumed {
		t.Fatalf("attack rejected: %+v", res)
	}
	if b.HP != 65 {
		t.Errorf("target HP = %d, want 65 (100 - 35)", b.HP)
	}
	var dmg *SubEffect
	for i := range res.Effects {
		if res.Effects[i].Kind == EffectDamage {
			dmg = &res.Effects[i]
		}
	}
	if dmg == nil || dmg.HP != 35 {
		t.Errorf("damage effect = %+v, want 35", dmg)
	}
}

func TestAttackAgainstDefendingIsHalved(t *testing.T) {
	// 35 raw, halved and floored: 17.
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	def, _ := r.store.Status(stDefend)
	b.AddStatus(def, 1)
	sess := testSession(a, b)

	r.Resolve(context.Background(), sess, a, Action{CommandID: cmdAttack})

	if b.HP != 83 {
		t.Errorf("target HP = %d, want 83 (100 - 17)", b.HP)
	}
}

func TestDamageFloorsAtOne(t *testing.T) {
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	b.Def = 1000 // formula goes deeply negative
	sess := testSession(a, b)

	r.Resolve(context.Background(), sess, a, Action{CommandID: cmdAttack})

	if b.HP != 99 {
		t.Errorf("target HP = %d, want 99 (minimum damage 1)", b.HP)
	}
}

func TestCriticalHitMultiplier(t *testing.T) {
	// Luck above 100 crits on any roll: floor(35 * 1.5) = 52.
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	a.Luck = 1000
	sess := testSession(a, b)

	res := r.Resolve(context.Background(), sess, a, Action{CommandID: cmdAttack})

	if b.HP != 48 {
		t.Errorf("target HP = %d, want 48 (100 - 52)", b.HP)
	}
	found := false
	for _, e := range res.Effects {
		if e.Kind == EffectDamage && e.Crit {
			found = true
		}
	}
	if !found {
		t.Error("expected a crit-flagged damage effect")
	}
}

func TestElementBonusMultiplier(t *testing.T) {
	// Flame Burst: flat 10, fire element +50% -> 15.
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	sess := testSession(a, b)

	r.Resolve(context.Background(), sess, a, Action{SkillID: skFlame})

	if b.HP != 85 {
		t.Errorf("target HP = %d, want 85 (100 - 15)", b.HP)
	}
}

func TestLimitGaugeFillsFromDamageTaken(t *testing.T) {
	// 35 damage against 100 max HP: floor(35/100 * 100 * 0.5) = 17.
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	sess := testSession(a, b)

	r.Resolve(context.Background(), sess, a, Action{CommandID: cmdAttack})

	if b.LimitGauge != 17 {
		t.Errorf("LimitGauge = %d, want 17", b.LimitGauge)
	}
}

func TestInsufficientManaIsFullRejection(t *testing.T) {
	// A rejected action mutates nothing; the turn is not consumed.
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	a.MP = 0
	sess := testSession(a, b)

	res := r.Resolve(context.Background(), sess, a, Action{SkillID: skFire})

	if !res.Rejected || res.Consumed {
		t.Fatalf("want full rejection, got %+v", res)
	}
	if a.MP != 0 || b.HP != 100 {
		t.Errorf("state mutated on rejection: MP=%d targetHP=%d", a.MP, b.HP)
	}
	if !sess.IsTurn(a.CharID) {
		t.Error("turn must be retained on rejection")
	}
}

func TestSkillDeductsManaAndDealsDamage(t *testing.T) {
	// Fire: MO 12 * 2 - ENEMY_MD 8 = 16.
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	sess := testSession(a, b)

	res := r.Resolve(context.Background(), sess, a, Action{SkillID: skFire})

	if res.Rejected {
		t.Fatalf("skill rejected: %+v", res)
	}
	if a.MP != 40 {
		t.Errorf("MP = %d, want 40", a.MP)
	}
	if b.HP != 84 {
		t.Errorf("target HP = %d, want 84", b.HP)
	}
}

func TestSkillWithoutClassCostRowIsFree(t *testing.T) {
	// Mana costs are strictly per class: no row for the caster's class
	// means a free cast, even at 0 MP.
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	a.ClassID = 99
	a.MP = 0
	sess := testSession(a, b)

	res := r.Resolve(context.Background(), sess, a, Action{SkillID: skFire})

	if res.Rejected || !res.Consumed {
		t.Fatalf("free cast rejected: %+v", res)
	}
	if a.MP != 0 {
		t.Errorf("MP = %d, want 0 (no cost row for class 99)", a.MP)
	}
	if b.HP != 84 {
		t.Errorf("target HP = %d, want 84", b.HP)
	}
}

func TestDamageRandomizationScalesWithRoll(t *testing.T) {
	// Wild Swing: ATK 20 * 2 - ENEMY_DEF 5 = 35 base, randomize 0.2.
	// High roll: 35 * (1 + 0.98*0.2) = 41.86 -> 41.
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	sess := testSession(a, b)

	r.Resolve(context.Background(), sess, a, Action{SkillID: skWild})
	if b.HP != 59 {
		t.Errorf("target HP = %d, want 59 (100 - 41)", b.HP)
	}

	// Low roll: 35 * (1 - 0.2) = 28.
	r2 := testResolver(nil)
	r2.rnd = func() float64 { return 0 }
	c, d := newFighter(3, "C"), newFighter(4, "D")
	sess2 := testSession(c, d)

	r2.Resolve(context.Background(), sess2, c, Action{SkillID: skWild})
	if d.HP != 72 {
		t.Errorf("target HP = %d, want 72 (100 - 28)", d.HP)
	}
}

func TestRandomizationLowExtremeFloorsAtOne(t *testing.T) {
	// Graze: base 1, randomize 1, lowest roll scales to 0; the floor
	// still lands 1 point.
	r := testResolver(nil)
	r.rnd = func() float64 { return 0 }
	a, b := newFighter(1, "A"), newFighter(2, "B")
	sess := testSession(a, b)

	r.Resolve(context.Background(), sess, a, Action{SkillID: skGraze})

	if b.HP != 99 {
		t.Errorf("target HP = %d, want 99 (minimum damage 1)", b.HP)
	}
}

func TestHealSkillRestoresSelf(t *testing.T) {
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	a.HP = 50
	sess := testSession(a, b)

	r.Resolve(context.Background(), sess, a, Action{SkillID: skHeal})

	if a.HP != 80 {
		t.Errorf("HP = %d, want 80 (50 + 30)", a.HP)
	}
	if a.MP != 45 {
		t.Errorf("MP = %d, want 45", a.MP)
	}
}

func TestCureStripsStatus(t *testing.T) {
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	poison, _ := r.store.Status(stPoison)
	a.AddStatus(poison, 3)
	sess := testSession(a, b)

	r.Resolve(context.Background(), sess, a, Action{SkillID: skCure})

	if a.Status(stPoison) != nil {
		t.Error("poison should be cured")
	}
}

func TestDefendCommandAppliesStatusToSelf(t *testing.T) {
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	sess := testSession(a, b)

	res := r.Resolve(context.Background(), sess, a, Action{CommandID: cmdDefend})

	if !res.Consumed {
		t.Fatalf("defend not consumed: %+v", res)
	}
	if !a.Defending() {
		t.Error("actor should hold the Defending status")
	}
	if b.Defending() {
		t.Error("target must not hold the Defending status")
	}
}

func TestArmorBlocksStatusApplication(t *testing.T) {
	r := testResolver(nil)
	_, b := newFighter(1, "A"), newFighter(2, "B")
	b.ArmorBlocks[stPoison] = true

	res := &ActionResult{}
	r.applyStatuses(b, []int64{stPoison}, 1, res)

	if b.Status(stPoison) != nil {
		t.Error("blocked status must not be applied")
	}
	blocked := false
	for _, e := range res.Effects {
		if e.Kind == EffectStatus && e.Blocked {
			blocked = true
		}
	}
	if !blocked {
		t.Error("expected a blocked status effect entry")
	}
}

func TestStatusChanceRollPrecedesArmorBlock(t *testing.T) {
	// A missed infliction roll is silent; armor only wards off a status
	// that would otherwise land.
	r := testResolver(nil) // rnd 0.99 >= 0.5: the roll misses
	b := newFighter(2, "B")
	b.ArmorBlocks[stPoison] = true

	res := &ActionResult{}
	r.applyStatuses(b, []int64{stPoison}, 0.5, res)

	if len(res.Effects) != 0 || len(res.Lines) != 0 {
		t.Errorf("missed roll must not narrate a block: effects=%+v lines=%v", res.Effects, res.Lines)
	}

	r.rnd = func() float64 { return 0 } // the roll hits, armor blocks
	res = &ActionResult{}
	r.applyStatuses(b, []int64{stPoison}, 0.5, res)

	if b.Status(stPoison) != nil {
		t.Error("blocked status must not be applied")
	}
	if len(res.Effects) != 1 || !res.Effects[0].Blocked {
		t.Errorf("want one blocked effect, got %+v", res.Effects)
	}
}

func TestWeaponOnHitStatusProc(t *testing.T) {
	r := testResolver(nil)
	r.rnd = func() float64 { return 0 } // every roll hits
	a, b := newFighter(1, "A"), newFighter(2, "B")
	a.WeaponInflicts = []int64{stPoison}
	sess := testSession(a, b)

	r.Resolve(context.Background(), sess, a, Action{CommandID: cmdAttack})

	if b.Status(stPoison) == nil {
		t.Error("weapon on-hit status should have been applied")
	}
}

func TestFleeFormulaPositiveAlwaysSucceeds(t *testing.T) {
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	a.Speed = 20 // SPEED - ENEMY_SPEED > 0
	sess := testSession(a, b)

	res := r.Resolve(context.Background(), sess, a, Action{CommandID: cmdFlee})

	if !res.Fled {
		t.Fatal("positive flee formula must always succeed")
	}
	if sess.Status() != model.BattleFled {
		t.Errorf("status = %s, want FLED", sess.Status())
	}
	if sess.Winner() != nil {
		t.Error("fled session must have no winner")
	}
}

func TestFleeFailureStillConsumesTurn(t *testing.T) {
	r := testResolver(nil) // rnd 0.99 >= base chance 0.3
	a, b := newFighter(1, "A"), newFighter(2, "B")
	a.Speed = 1 // formula negative
	sess := testSession(a, b)

	res := r.Resolve(context.Background(), sess, a, Action{CommandID: cmdFlee})

	if res.Fled {
		t.Fatal("flee must fail when formula is negative and base chance misses")
	}
	if !res.Consumed {
		t.Error("a failed flee still consumes the turn")
	}
	if sess.Terminated() {
		t.Error("session must stay active")
	}
}

func TestFleeBaseChanceBranch(t *testing.T) {
	r := testResolver(nil)
	r.rnd = func() float64 { return 0 } // base chance always hits
	a, b := newFighter(1, "A"), newFighter(2, "B")
	a.Speed = 1
	sess := testSession(a, b)

	res := r.Resolve(context.Background(), sess, a, Action{CommandID: cmdFlee})

	if !res.Fled {
		t.Fatal("base-chance flee branch must succeed")
	}
}

func TestOpenMenuCommandDoesNotConsumeTurn(t *testing.T) {
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	sess := testSession(a, b)

	res := r.Resolve(context.Background(), sess, a, Action{CommandID: cmdItemMenu})

	if res.Rejected || res.Consumed {
		t.Fatalf("open-menu should be accepted but not consume: %+v", res)
	}
	if b.HP != 100 {
		t.Error("open-menu must not mutate state")
	}
}

func TestEmptyEffectNoOpsWithNarration(t *testing.T) {
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	sess := testSession(a, b)

	res := r.Resolve(context.Background(), sess, a, Action{CommandID: cmdNoop})

	if !res.Consumed {
		t.Fatal("accepted command with empty effect still consumes the turn")
	}
	if len(res.Lines) < 2 {
		t.Errorf("want flavor narration, got %v", res.Lines)
	}
	if b.HP != 100 {
		t.Error("no-op must not mutate state")
	}
}

func TestUnknownReferencesAreRejected(t *testing.T) {
	r := testResolver(newMemBag())
	a, b := newFighter(1, "A"), newFighter(2, "B")
	sess := testSession(a, b)

	cases := []Action{
		{CommandID: 999},
		{SkillID: 999},
		{ItemID: 999},
		{LimitID: 999},
		{},
	}
	for _, act := range cases {
		res := r.Resolve(context.Background(), sess, a, act)
		if !res.Rejected {
			t.Errorf("action %+v should be rejected", act)
		}
	}
	if b.HP != 100 || sess.Turn() != 1 {
		t.Error("rejections must not mutate state")
	}
}

func TestStunnedActorSkipsTurn(t *testing.T) {
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	stun, _ := r.store.Status(stStun)
	a.AddStatus(stun, 2)
	sess := testSession(a, b)

	res := r.Resolve(context.Background(), sess, a, Action{CommandID: cmdAttack})

	if res.Rejected || !res.Consumed {
		t.Fatalf("stun skip must consume the turn: %+v", res)
	}
	if b.HP != 100 {
		t.Error("stunned actor must deal no damage")
	}
	if len(res.Lines) == 0 || res.Lines[0] != "Stunned and unable to act!" {
		t.Errorf("want configured skip narration, got %v", res.Lines)
	}
}

func TestItemHealsAndConsumes(t *testing.T) {
	bag := newMemBag()
	bag.counts[itPotion] = 2
	r := testResolver(bag)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	a.HP = 40
	sess := testSession(a, b)

	res := r.Resolve(context.Background(), sess, a, Action{ItemID: itPotion})

	if res.Rejected {
		t.Fatalf("item rejected: %+v", res)
	}
	if a.HP != 65 {
		t.Errorf("HP = %d, want 65 (40 + 25)", a.HP)
	}
	if bag.counts[itPotion] != 1 {
		t.Errorf("potion count = %d, want 1", bag.counts[itPotion])
	}
}

func TestItemRejections(t *testing.T) {
	bag := newMemBag()
	r := testResolver(bag)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	sess := testSession(a, b)

	// none held
	if res := r.Resolve(context.Background(), sess, a, Action{ItemID: itPotion}); !res.Rejected {
		t.Error("item with zero quantity must be rejected")
	}
	// not consumable
	bag.counts[itSword] = 1
	if res := r.Resolve(context.Background(), sess, a, Action{ItemID: itSword}); !res.Rejected {
		t.Error("non-consumable item must be rejected")
	}
	if b.HP != 100 {
		t.Error("rejections must not mutate state")
	}
}

func TestLimitBreakGating(t *testing.T) {
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	a.BreakTier = 1
	sess := testSession(a, b)

	// gauge not full
	a.LimitGauge = 99
	if res := r.Resolve(context.Background(), sess, a, Action{LimitID: lbMeteor}); !res.Rejected {
		t.Error("limit break below full gauge must be rejected")
	}

	// tier too low
	a.LimitGauge = 100
	a.BreakTier = 0
	if res := r.Resolve(context.Background(), sess, a, Action{LimitID: lbMeteor}); !res.Rejected {
		t.Error("limit break above the actor's tier must be rejected")
	}

	// level too low
	a.BreakTier = 1
	a.Level = 1
	if res := r.Resolve(context.Background(), sess, a, Action{LimitID: lbMeteor}); !res.Rejected {
		t.Error("limit break above the actor's level must be rejected")
	}
	if a.LimitGauge != 100 {
		t.Error("rejected limit break must not drain the gauge")
	}
}

func TestLimitBreakFiresAndResetsGauge(t *testing.T) {
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	a.LimitGauge = 100
	a.BreakTier = 1
	sess := testSession(a, b)

	res := r.Resolve(context.Background(), sess, a, Action{LimitID: lbMeteor})

	if res.Rejected {
		t.Fatalf("limit break rejected: %+v", res)
	}
	if a.LimitGauge != 0 {
		t.Errorf("LimitGauge = %d, want reset to 0", a.LimitGauge)
	}
	if b.HP != 0 {
		t.Errorf("target HP = %d, want 0 (100 damage)", b.HP)
	}
	if sess.Status() != model.BattleFinished {
		t.Errorf("status = %s, want FINISHED", sess.Status())
	}
	if w := sess.Winner(); w == nil || *w != a.CharID {
		t.Errorf("winner = %v, want %d", w, a.CharID)
	}
}

func TestDisabledCommandIsRejected(t *testing.T) {
	r := testResolver(nil)
	a, b := newFighter(1, "A"), newFighter(2, "B")
	curse, _ := r.store.Status(stCurse)
	a.AddStatus(curse, 2)
	sess := testSession(a, b)

	// Curse disables commands but is not a skip-turn status, so the
	// submission is rejected rather than skipped.
	res := r.Resolve(context.Background(), sess, a, Action{CommandID: cmdAttack})
	if !res.Rejected {
		t.Fatalf("disabled command should be rejected: %+v", res)
	}
	if b.HP != 100 {
		t.Error("rejection must not mutate state")
	}
}
