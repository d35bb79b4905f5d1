package battle

// SideView is one combatant as seen by a viewer. Resource totals beyond
// health are zeroed in public views.
type SideView struct {
	CharID     int64   `json:"char_id"`
	Name       string  `json:"name"`
	Level      int     `json:"level"`
	HP         int     `json:"hp"`
	MaxHP      int     `json:"max_hp"`
	MP         int     `json:"mp,omitempty"`
	MaxMP      int     `json:"max_mp,omitempty"`
	LimitGauge int     `json:"limit_gauge,omitempty"`
	Statuses   []int64 `json:"statuses,omitempty"`
}

// StateView is a session state push. Personalized views carry IsMyTurn for
// the receiving participant; public views omit it.
type StateView struct {
	SessionID string   `json:"session_id"`
	Kind      string   `json:"kind"`
	Status    string   `json:"status"`
	Turn      int      `json:"turn"`
	IsMyTurn  bool     `json:"is_my_turn,omitempty"`
	Me        SideView `json:"me,omitempty"`
	Opponent  SideView `json:"opponent,omitempty"`
}

// PublicStateView is the reduced, symmetric view for spectators and
// unauthenticated viewers.
type PublicStateView struct {
	SessionID string   `json:"session_id"`
	Kind      string   `json:"kind"`
	Status    string   `json:"status"`
	Turn      int      `json:"turn"`
	SideA     SideView `json:"side_a"`
	SideB     SideView `json:"side_b"`
}

func statusIDs(c *Combatant) []int64 {
	if len(c.Statuses) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(c.Statuses))
	for _, si := range c.Statuses {
		ids = append(ids, si.Def.ID)
	}
	return ids
}

func fullSide(c *Combatant) SideView {
	return SideView{
		CharID:     c.CharID,
		Name:       c.Name,
		Level:      c.Level,
		HP:         c.HP,
		MaxHP:      c.MaxHP,
		MP:         c.MP,
		MaxMP:      c.MaxMP,
		LimitGauge: c.LimitGauge,
		Statuses:   statusIDs(c),
	}
}

func publicSide(c *Combatant) SideView {
	return SideView{
		CharID:   c.CharID,
		Name:     c.Name,
		Level:    c.Level,
		HP:       c.HP,
		MaxHP:    c.MaxHP,
		Statuses: statusIDs(c),
	}
}

// PersonalView builds the state push for one participant: their own full
// resources, the opponent's full resources, and the per-viewer turn flag.
//
// The caller must hold the session lock. Notifier callbacks run with the
// lock already held by the manager; any other reader takes it first.
func PersonalView(sess *Session, viewerCharID int64) StateView {
	me := sess.ByChar(viewerCharID)
	opp := sess.Opponent(viewerCharID)
	return StateView{
		SessionID: sess.ID,
		Kind:      sess.Kind,
		Status:    sess.Status(),
		Turn:      sess.Turn(),
		IsMyTurn:  sess.IsTurn(viewerCharID),
		Me:        fullSide(me),
		Opponent:  fullSide(opp),
	}
}

// PublicView builds the spectator view: names, health, and status icons for
// both sides, nothing personalized.
//
// The caller must hold the session lock, same as PersonalView.
func PublicView(sess *Session) PublicStateView {
	return PublicStateView{
		SessionID: sess.ID,
		Kind:      sess.Kind,
		Status:    sess.Status(),
		Turn:      sess.Turn(),
		SideA:     publicSide(sess.A),
		SideB:     publicSide(sess.B),
	}
}
