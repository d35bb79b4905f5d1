package ws

import (
	"encoding/json"

	"github.com/minako-h/duelgate/server/content"
	"github.com/minako-h/duelgate/server/game/battle"
	"github.com/minako-h/duelgate/server/game/player"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Hub routes inbound packets to their handlers and fans battle lifecycle
// pushes out to connected participants. It is the battle manager's Notifier.
type Hub struct {
	db      *gorm.DB
	store   *content.Store
	battles *battle.Manager
	players *player.Manager
	logger  *zap.Logger

	handlers map[string]func(*player.Session, json.RawMessage)
}

func NewHub(db *gorm.DB, store *content.Store, battles *battle.Manager, players *player.Manager, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		db:      db,
		store:   store,
		battles: battles,
		players: players,
		logger:  logger,
	}
	h.handlers = map[string]func(*player.Session, json.RawMessage){
		"battle_challenge": h.handleChallenge,
		"battle_encounter": h.handleEncounter,
		"battle_action":    h.handleAction,
		"battle_view":      h.handleView,
	}
	battles.SetNotifier(h)
	return h
}

// Dispatch handles one inbound packet.
func (h *Hub) Dispatch(s *player.Session, pkt *player.Packet) {
	handler, ok := h.handlers[pkt.Type]
	if !ok {
		h.sendError(s, "unknown message type: "+pkt.Type)
		return
	}
	handler(s, pkt.Data)
}

func (h *Hub) sendError(s *player.Session, msg string) {
	s.Send("error", map[string]string{"message": msg})
}

// ---- battle.Notifier ----

type battleStartPayload struct {
	State battle.StateView   `json:"state"`
	Menu  []battle.MenuEntry `json:"menu"`
	Log   []string           `json:"log"`
}

type battleUpdatePayload struct {
	State  battle.StateView     `json:"state"`
	Result *battle.ActionResult `json:"result,omitempty"`
	Tick   *battle.Event        `json:"tick,omitempty"`
	Log    []string             `json:"log"`
}

type battleEndPayload struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	WinnerID  *int64 `json:"winner_id,omitempty"`
}

// BattleStarted pushes each participant their personalized initial state
// plus their computed action menu.
func (h *Hub) BattleStarted(sess *battle.Session, menus map[int64][]battle.MenuEntry) {
	for _, c := range []*battle.Combatant{sess.A, sess.B} {
		ps := h.players.ByChar(c.CharID)
		if ps == nil {
			continue
		}
		ps.Send("battle_start", battleStartPayload{
			State: battle.PersonalView(sess, c.CharID),
			Menu:  menus[c.CharID],
			Log:   sess.LogTail(10),
		})
	}
}

// BattleUpdated pushes each participant a personalized state view paired
// with the resolved action and the narration log tail.
func (h *Hub) BattleUpdated(sess *battle.Session, tick *battle.Event, res *battle.ActionResult) {
	for _, c := range []*battle.Combatant{sess.A, sess.B} {
		ps := h.players.ByChar(c.CharID)
		if ps == nil {
			continue
		}
		ps.Send("battle_update", battleUpdatePayload{
			State:  battle.PersonalView(sess, c.CharID),
			Result: res,
			Tick:   tick,
			Log:    sess.LogTail(10),
		})
	}
}

// BattleEnded pushes the terminal outcome to both participants.
func (h *Hub) BattleEnded(sess *battle.Session) {
	payload := battleEndPayload{
		SessionID: sess.ID,
		Status:    sess.Status(),
		WinnerID:  sess.Winner(),
	}
	for _, c := range []*battle.Combatant{sess.A, sess.B} {
		if ps := h.players.ByChar(c.CharID); ps != nil {
			ps.Send("battle_end", payload)
		}
	}
}
