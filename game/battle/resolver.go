package battle

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/minako-h/duelgate/server/config"
	"github.com/minako-h/duelgate/server/content"
	"github.com/minako-h/duelgate/server/model"
	"go.uber.org/zap"
)

// Default damage formulas when an effect descriptor supplies none.
const (
	defaultAttackFormula = "ATK * 2 - ENEMY_DEF"
	defaultSkillFormula  = "MO * 2 - ENEMY_MD"
)

// ItemBag is the inventory seam the resolver consumes items through.
type ItemBag interface {
	Count(ctx context.Context, charID, itemID int64) (int, error)
	Consume(ctx context.Context, charID, itemID int64) error
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// Resolver applies one submitted action to a session, mutating both
// snapshots and the session's termination state. One resolver serves all
// sessions; its only mutable state is the guarded random source, which
// tests replace through the rnd seam.
type Resolver struct {
	store  *content.Store
	eval   *Evaluator
	cfg    config.BattleConfig
	bag    ItemBag
	logger *zap.Logger

	rnd func() float64 // uniform [0,1)
}

// NewResolver creates a resolver. bag may be nil, in which case item
// actions are rejected.
func NewResolver(store *content.Store, eval *Evaluator, cfg config.BattleConfig, bag ItemBag, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	lr := &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
	return &Resolver{
		store:  store,
		eval:   eval,
		cfg:    cfg,
		bag:    bag,
		logger: logger,
		rnd:    lr.Float64,
	}
}

// Resolve dispatches the submitted action for the acting snapshot. The
// caller has already verified turn ownership and holds the session lock.
//
// A rejected result means nothing was mutated and the turn was not
// consumed. An accepted action always produces some outcome; failed
// sub-effects degrade to no-ops rather than aborting the action.
func (r *Resolver) Resolve(ctx context.Context, sess *Session, actor *Combatant, act Action) *ActionResult {
	target := sess.Opponent(actor.CharID)

	// Skip-turn statuses (stun, paralysis) pre-empt every action type. The
	// turn is consumed; the actor simply does nothing.
	if def := actor.SkipTurn(); def != nil {
		res := &ActionResult{Consumed: true}
		text := def.Effect.SkipText
		if text == "" {
			text = fmt.Sprintf("%s cannot move!", actor.Name)
		}
		res.addLine(text)
		return res
	}

	switch {
	case act.CommandID != 0:
		return r.resolveCommand(sess, actor, target, act.CommandID)
	case act.SkillID != 0:
		return r.resolveSkill(sess, actor, target, act.SkillID)
	case act.ItemID != 0:
		return r.resolveItem(ctx, sess, actor, target, act.ItemID)
	case act.LimitID != 0:
		return r.resolveLimit(sess, actor, target, act.LimitID)
	}
	return reject("No action specified")
}

func (r *Resolver) resolveCommand(sess *Session, actor, target *Combatant, id int64) *ActionResult {
	cmd, ok := r.store.Command(id)
	if !ok {
		return reject("Unknown command")
	}
	if actor.CommandDisabled(id) {
		return reject(fmt.Sprintf("%s cannot be used right now", cmd.Name))
	}

	// Open-menu commands are a client-side concern; the server takes no
	// combat action and the turn is not consumed.
	if cmd.Effect.OpenMenu {
		return &ActionResult{Lines: []string{fmt.Sprintf("%s opens the %s menu.", actor.Name, cmd.Name)}}
	}

	res := &ActionResult{Consumed: true}
	if cmd.Effect.Flee != nil {
		res.addLine(fmt.Sprintf("%s tries to run away...", actor.Name))
		r.resolveFlee(sess, actor, target, cmd.Effect.Flee, res)
		return res
	}

	res.addLine(fmt.Sprintf("%s uses %s!", actor.Name, cmd.Name))
	if !r.applyEffect(sess, actor, target, cmd.Effect, defaultAttackFormula, res) {
		// Unrecognized descriptor: the turn is already accepted, so this
		// no-ops with flavor narration instead of rejecting.
		res.addLine("...but nothing happens.")
	}
	return res
}

func (r *Resolver) resolveSkill(sess *Session, actor, target *Combatant, id int64) *ActionResult {
	sk, ok := r.store.Skill(id)
	if !ok {
		return reject("Unknown skill")
	}
	cost := sk.CostFor(actor.ClassID)
	if actor.MP < cost {
		return reject("Not enough MP")
	}

	res := &ActionResult{Consumed: true}
	actor.SpendMP(cost)
	res.addLine(fmt.Sprintf("%s casts %s!", actor.Name, sk.NameFor(actor.ClassID)))
	if !r.applyEffect(sess, actor, target, sk.Effect, defaultSkillFormula, res) {
		res.addLine("...but nothing happens.")
	}
	return res
}

func (r *Resolver) resolveItem(ctx context.Context, sess *Session, actor, target *Combatant, id int64) *ActionResult {
	it, ok := r.store.Item(id)
	if !ok || it.Kind != model.ItemKindConsumable {
		return reject("That item cannot be used")
	}
	if r.bag == nil {
		return reject("That item cannot be used")
	}
	n, err := r.bag.Count(ctx, actor.CharID, id)
	if err != nil {
		r.logger.Error("inventory count failed",
			zap.Int64("char_id", actor.CharID), zap.Int64("item_id", id), zap.Error(err))
		return reject("That item cannot be used")
	}
	if n < 1 {
		return reject(fmt.Sprintf("No %s left", it.Name))
	}

	res := &ActionResult{Consumed: true}
	res.addLine(fmt.Sprintf("%s uses a %s!", actor.Name, it.Name))
	if !r.applyEffect(sess, actor, target, it.Effect, defaultAttackFormula, res) {
		res.addLine("...but nothing happens.")
	}
	if err := r.bag.Consume(ctx, actor.CharID, id); err != nil {
		r.logger.Error("inventory consume failed",
			zap.Int64("char_id", actor.CharID), zap.Int64("item_id", id), zap.Error(err))
	}
	return res
}

func (r *Resolver) resolveLimit(sess *Session, actor, target *Combatant, id int64) *ActionResult {
	lb, ok := r.store.LimitBreak(id)
	if !ok {
		return reject("Unknown limit break")
	}
	if actor.LimitGauge < 100 {
		return reject("Limit gauge is not full")
	}
	if actor.Level < lb.MinLevel || actor.BreakTier < lb.Tier {
		return reject(fmt.Sprintf("%s is beyond your reach", lb.Name))
	}

	res := &ActionResult{Consumed: true}
	actor.LimitGauge = 0
	res.addLine(fmt.Sprintf("LIMIT BREAK! %s unleashes %s!", actor.Name, lb.Name))
	res.addEffect(SubEffect{Kind: EffectLimit, TargetID: target.CharID})
	if !r.applyEffect(sess, actor, target, lb.Effect, defaultSkillFormula, res) {
		res.addLine("...but nothing happens.")
	}
	return res
}

// applyEffect runs the shared sub-effect pipeline: damage, heal, status
// infliction, cure, in that order. Reports whether any sub-effect existed.
func (r *Resolver) applyEffect(sess *Session, actor, target *Combatant, eff *content.Effect, defaultFormula string, res *ActionResult) bool {
	any := false
	if eff.Damage != nil {
		any = true
		r.dealDamage(sess, actor, target, eff.Damage, defaultFormula, res)
	}
	if eff.Heal != nil {
		any = true
		r.applyHeal(actor, target, eff.Heal, res)
	}
	if eff.SetStatus != nil {
		any = true
		tgt := target
		if eff.SetStatus.Target == content.TargetSelf {
			tgt = actor
		}
		r.applyStatuses(tgt, eff.SetStatus.Statuses, eff.SetStatus.Chance, res)
	}
	if len(eff.Cure) > 0 {
		any = true
		r.applyCure(actor, eff.Cure, res)
	}
	return any
}

// dealDamage runs the damage pipeline: formula, randomization, crit,
// element bonuses, defend halving, floor with a minimum of 1, limit fill,
// weapon on-hit rolls, death check.
func (r *Resolver) dealDamage(sess *Session, actor, target *Combatant, spec *content.DamageSpec, defaultFormula string, res *ActionResult) {
	formula := spec.Formula
	if formula == "" {
		formula = defaultFormula
	}
	amt := r.eval.Eval(formula, CombatVars(actor, target))

	if spec.Randomize > 0 {
		amt *= 1 + (r.rnd()*2-1)*spec.Randomize
	}

	// Crit probability is the attacker's luck as a percentage, unclamped:
	// luck above 100 crits more often, never harder.
	crit := r.rnd()*100 < float64(actor.Luck)
	if crit {
		amt *= r.cfg.CritMultiplier
	}

	elems := spec.Elements
	if spec.WeaponElements && len(actor.WeaponElements) > 0 {
		elems = append(append([]int64{}, elems...), actor.WeaponElements...)
	}
	for _, id := range elems {
		if e, ok := r.store.Element(id); ok {
			amt *= 1 + float64(e.BonusPct)/100
		}
	}

	if target.Defending() {
		amt *= 0.5
	}

	dmg := int(math.Floor(amt))
	if dmg < 1 {
		dmg = 1
	}
	target.ApplyDamage(dmg)
	if target.MaxHP > 0 {
		target.FillLimit(int(math.Floor(float64(dmg) / float64(target.MaxHP) * 100 * r.cfg.LimitFillRate)))
	}

	if crit {
		res.addLine("Critical hit!")
	}
	res.addLine(fmt.Sprintf("%s takes %d damage!", target.Name, dmg))
	res.addEffect(SubEffect{Kind: EffectDamage, TargetID: target.CharID, HP: dmg, Crit: crit})

	if spec.WeaponStatuses {
		for _, sid := range actor.WeaponInflicts {
			if r.rnd() < r.cfg.WeaponStatusPct {
				r.applyStatuses(target, []int64{sid}, 1, res)
			}
		}
	}

	if !target.Alive() && sess.finish(actor.CharID) {
		res.addLine(fmt.Sprintf("%s is defeated!", target.Name))
	}
}

func (r *Resolver) applyHeal(actor, target *Combatant, spec *content.HealSpec, res *ActionResult) {
	tgt := actor
	if spec.Target == content.TargetOpponent {
		tgt = target
	}
	if spec.HPFormula != "" {
		n := tgt.HealHP(int(math.Floor(r.eval.Eval(spec.HPFormula, CombatVars(actor, target)))))
		res.addLine(fmt.Sprintf("%s recovers %d HP.", tgt.Name, n))
		res.addEffect(SubEffect{Kind: EffectHeal, TargetID: tgt.CharID, HP: n})
	}
	if spec.MPFormula != "" {
		n := tgt.HealMP(int(math.Floor(r.eval.Eval(spec.MPFormula, CombatVars(actor, target)))))
		res.addLine(fmt.Sprintf("%s recovers %d MP.", tgt.Name, n))
		res.addEffect(SubEffect{Kind: EffectHeal, TargetID: tgt.CharID, MP: n})
	}
}

// applyStatuses is the shared status-application routine: per status, roll
// the chance (0 means 100%), honor armor blocks, refresh instead of stack,
// and narrate only a first application. The chance roll comes first: a miss
// is silent, armor only wards off a status that would otherwise land.
func (r *Resolver) applyStatuses(target *Combatant, ids []int64, chance float64, res *ActionResult) {
	if chance <= 0 {
		chance = 1
	}
	for _, id := range ids {
		def, ok := r.store.Status(id)
		if !ok {
			r.logger.Warn("status id does not resolve", zap.Int64("status_id", id))
			continue
		}
		if chance < 1 && r.rnd() >= chance {
			continue
		}
		if target.ArmorBlocks[id] {
			res.addLine(fmt.Sprintf("%s's armor wards off %s!", target.Name, def.Name))
			res.addEffect(SubEffect{Kind: EffectStatus, TargetID: target.CharID, StatusID: id, Blocked: true})
			continue
		}
		turns := statusDuration(def)
		_, isNew := target.AddStatus(def, turns)
		if isNew {
			res.addLine(fmt.Sprintf("%s is afflicted with %s!", target.Name, def.Name))
		}
		res.addEffect(SubEffect{Kind: EffectStatus, TargetID: target.CharID, StatusID: id})
	}
}

func (r *Resolver) applyCure(holder *Combatant, ids []int64, res *ActionResult) {
	for _, id := range ids {
		if !holder.RemoveStatus(id) {
			continue
		}
		name := fmt.Sprintf("status %d", id)
		if def, ok := r.store.Status(id); ok {
			name = def.Name
		}
		res.addLine(fmt.Sprintf("%s recovers from %s.", holder.Name, name))
		res.addEffect(SubEffect{Kind: EffectCure, TargetID: holder.CharID, StatusID: id})
	}
}

// resolveFlee succeeds when the formula comes out positive or the
// independent base chance hits. Failure still consumes the turn.
func (r *Resolver) resolveFlee(sess *Session, actor, target *Combatant, spec *content.FleeSpec, res *ActionResult) {
	v := r.eval.Eval(spec.Formula, CombatVars(actor, target))
	if v > 0 || r.rnd() < r.cfg.BaseFleeChance {
		if sess.flee() {
			res.Fled = true
			res.addLine(fmt.Sprintf("%s fled from battle!", actor.Name))
			res.addEffect(SubEffect{Kind: EffectFlee, TargetID: actor.CharID})
		}
		return
	}
	res.addLine(fmt.Sprintf("%s couldn't escape!", actor.Name))
}

func statusDuration(def *content.StatusDef) int {
	if def.Permanent {
		return -1
	}
	if def.Effect.Duration <= 0 {
		return 1
	}
	return def.Effect.Duration
}
