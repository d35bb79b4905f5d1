package battle

import "time"

// Action is a submitted battle action. At most one reference id is set; the
// resolver dispatches on whichever is present, command first, then skill,
// item, limit break.
type Action struct {
	CommandID int64 `json:"command_id,omitempty"`
	SkillID   int64 `json:"skill_id,omitempty"`
	ItemID    int64 `json:"item_id,omitempty"`
	LimitID   int64 `json:"limit_id,omitempty"`
	TargetID  int64 `json:"target_id,omitempty"`
}

// Sub-effect kinds recorded in action results and the session log.
const (
	EffectDamage = "damage"
	EffectHeal   = "heal"
	EffectStatus = "status"
	EffectCure   = "cure"
	EffectFlee   = "flee"
	EffectLimit  = "limit"
)

// SubEffect is one structured outcome inside an action result.
type SubEffect struct {
	Kind     string `json:"kind"`
	TargetID int64  `json:"target_id,omitempty"`
	HP       int    `json:"hp,omitempty"` // damage dealt or health restored
	MP       int    `json:"mp,omitempty"`
	StatusID int64  `json:"status_id,omitempty"`
	Blocked  bool   `json:"blocked,omitempty"`
	Crit     bool   `json:"crit,omitempty"`
}

// ActionResult is the transient outcome of one submitted action.
//
// Rejected means the submission never became a turn: nothing was mutated and
// the turn pointer must not move. Consumed distinguishes accepted actions
// from ones that resolve to a client-side concern (open-menu commands).
type ActionResult struct {
	Rejected bool        `json:"rejected,omitempty"`
	Reason   string      `json:"reason,omitempty"`
	Consumed bool        `json:"consumed"`
	Lines    []string    `json:"lines,omitempty"`
	Effects  []SubEffect `json:"effects,omitempty"`
	Fled     bool        `json:"fled,omitempty"`
}

func (r *ActionResult) addLine(line string) {
	r.Lines = append(r.Lines, line)
}

func (r *ActionResult) addEffect(e SubEffect) {
	r.Effects = append(r.Effects, e)
}

func reject(reason string) *ActionResult {
	return &ActionResult{Rejected: true, Reason: reason, Lines: []string{reason}}
}

// Event is one entry in a session's append-only chronological log. Events
// drive client replay and are persisted verbatim at settlement.
type Event struct {
	Turn    int         `json:"turn"`
	ActorID int64       `json:"actor_id,omitempty"`
	Lines   []string    `json:"lines,omitempty"`
	Effects []SubEffect `json:"effects,omitempty"`
	At      time.Time   `json:"at"`
}
