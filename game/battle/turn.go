package battle

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/minako-h/duelgate/server/config"
	"github.com/minako-h/duelgate/server/content"
	"go.uber.org/zap"
)

// Controller advances a session after each resolved action: it counts the
// half-round, runs end-of-round status ticks at full-round boundaries,
// detects tick-sourced termination, and picks automated actions for NPC
// participants.
type Controller struct {
	eval   *Evaluator
	cfg    config.BattleConfig
	logger *zap.Logger

	rnd func() float64

	attackCmdID int64
	defendCmdID int64
}

// NewController creates a controller. The automated policy's attack and
// defend commands are resolved from the store once: the first command
// carrying a damage descriptor and the first carrying a self-targeted
// status descriptor.
func NewController(store *content.Store, eval *Evaluator, cfg config.BattleConfig, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	tc := &Controller{
		eval:   eval,
		cfg:    cfg,
		logger: logger,
		rnd:    (&lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}).Float64,
	}
	for _, cmd := range store.Commands() {
		if tc.attackCmdID == 0 && cmd.Effect.Damage != nil {
			tc.attackCmdID = cmd.ID
		}
		if tc.defendCmdID == 0 && cmd.Effect.SetStatus != nil && cmd.Effect.SetStatus.Target == content.TargetSelf {
			tc.defendCmdID = cmd.ID
		}
	}
	if tc.attackCmdID == 0 {
		logger.Warn("no damage-dealing command in content, automated participants will concede")
	}
	return tc
}

// Advance runs post-action processing after a consumed action by actor.
// Returns the round-tick event, if the completed half-round closed a full
// round and the ticks produced any output.
//
// Ticks run for both combatants, not just the one who acted, and are a
// second source of termination independent of the action-level death check.
// On a double defeat in one tick the acting participant wins: their
// opponent is checked first and the terminal state latches exactly once.
func (tc *Controller) Advance(sess *Session, actor *Combatant) *Event {
	if sess.Terminated() {
		return nil
	}
	roundDone := sess.advance()
	if !roundDone {
		return nil
	}
	return tc.roundTick(sess, actor)
}

func (tc *Controller) roundTick(sess *Session, actor *Combatant) *Event {
	ev := &Event{}
	for _, c := range []*Combatant{sess.A, sess.B} {
		tc.tickStatuses(c, ev)
	}

	opp := sess.Opponent(actor.CharID)
	if !opp.Alive() && sess.finish(actor.CharID) {
		ev.Lines = append(ev.Lines, fmt.Sprintf("%s is defeated!", opp.Name))
	}
	if !actor.Alive() && sess.finish(opp.CharID) {
		ev.Lines = append(ev.Lines, fmt.Sprintf("%s is defeated!", actor.Name))
	}

	if len(ev.Lines) == 0 && len(ev.Effects) == 0 {
		return nil
	}
	sess.appendEvent(*ev)
	return ev
}

// tickStatuses applies per-turn damage and healing for each of the
// holder's statuses, then decrements durations and drops expired,
// non-permanent instances in the same pass.
func (tc *Controller) tickStatuses(c *Combatant, ev *Event) {
	kept := c.Statuses[:0]
	for _, si := range c.Statuses {
		eff := si.Def.Effect
		if eff.DamagePerTurn != "" {
			dmg := int(math.Floor(tc.eval.Eval(eff.DamagePerTurn, SelfVars(c))))
			if dmg > 0 {
				c.ApplyDamage(dmg)
				ev.Lines = append(ev.Lines, fmt.Sprintf("%s suffers %d damage from %s!", c.Name, dmg, si.Def.Name))
				ev.Effects = append(ev.Effects, SubEffect{Kind: EffectDamage, TargetID: c.CharID, HP: dmg, StatusID: si.Def.ID})
			}
		}
		if eff.HealPerTurn != "" {
			heal := c.HealHP(int(math.Floor(tc.eval.Eval(eff.HealPerTurn, SelfVars(c)))))
			if heal > 0 {
				ev.Lines = append(ev.Lines, fmt.Sprintf("%s recovers %d HP from %s.", c.Name, heal, si.Def.Name))
				ev.Effects = append(ev.Effects, SubEffect{Kind: EffectHeal, TargetID: c.CharID, HP: heal, StatusID: si.Def.ID})
			}
		}
		if !si.Permanent() {
			si.TurnsLeft--
			if si.TurnsLeft <= 0 {
				ev.Lines = append(ev.Lines, fmt.Sprintf("%s's %s wore off.", c.Name, si.Def.Name))
				continue
			}
		}
		kept = append(kept, si)
	}
	c.Statuses = kept
}

// PickAutoAction selects the automated participant's action: the basic
// attack, with a fixed chance to defend instead. A placeholder policy, not
// adaptive AI.
func (tc *Controller) PickAutoAction() Action {
	if tc.defendCmdID != 0 && tc.rnd() < tc.cfg.AIDefendChance {
		return Action{CommandID: tc.defendCmdID}
	}
	return Action{CommandID: tc.attackCmdID}
}

// AIDelay is the think-time before an automated turn fires.
func (tc *Controller) AIDelay() time.Duration {
	return time.Duration(tc.cfg.AIDelayMs) * time.Millisecond
}
