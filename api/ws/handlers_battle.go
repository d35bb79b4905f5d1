package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/minako-h/duelgate/server/game/battle"
	"github.com/minako-h/duelgate/server/game/player"
	"github.com/minako-h/duelgate/server/model"
	"go.uber.org/zap"
)

const battleOpTimeout = 5 * time.Second

type challengeRequest struct {
	TargetCharID int64 `json:"target_char_id"`
}

type encounterRequest struct {
	NPCCharID int64 `json:"npc_char_id"`
}

type viewRequest struct {
	SessionID string `json:"session_id"`
}

// handleChallenge starts a PvP session between the sender's character and
// the challenged one. The challenged side must be online; the original
// accept step is collapsed into the challenge here.
func (h *Hub) handleChallenge(s *player.Session, raw json.RawMessage) {
	var req challengeRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.TargetCharID == 0 {
		h.sendError(s, "invalid challenge")
		return
	}
	if s.CharID == 0 {
		h.sendError(s, "no character selected")
		return
	}
	if s.CharID == req.TargetCharID {
		h.sendError(s, "cannot challenge yourself")
		return
	}
	if h.players.ByChar(req.TargetCharID) == nil {
		h.sendError(s, "opponent is not online")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), battleOpTimeout)
	defer cancel()
	if _, err := h.battles.CreateSession(ctx, battle.KindPVP, s.CharID, req.TargetCharID); err != nil {
		h.logger.Warn("challenge failed",
			zap.Int64("char_id", s.CharID),
			zap.Int64("target_char_id", req.TargetCharID),
			zap.Error(err))
		h.sendError(s, "could not start battle")
	}
}

// handleEncounter starts a PvE session against an NPC character.
func (h *Hub) handleEncounter(s *player.Session, raw json.RawMessage) {
	var req encounterRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.NPCCharID == 0 {
		h.sendError(s, "invalid encounter")
		return
	}
	if s.CharID == 0 {
		h.sendError(s, "no character selected")
		return
	}

	var npc model.Character
	if err := h.db.First(&npc, req.NPCCharID).Error; err != nil || !npc.NPC {
		h.sendError(s, "no such opponent")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), battleOpTimeout)
	defer cancel()
	if _, err := h.battles.CreateSession(ctx, battle.KindPVE, s.CharID, req.NPCCharID); err != nil {
		h.logger.Warn("encounter failed",
			zap.Int64("char_id", s.CharID),
			zap.Int64("npc_char_id", req.NPCCharID),
			zap.Error(err))
		h.sendError(s, "could not start battle")
	}
}

// handleAction submits the sender's battle action. Rejections go back to
// the sender only; accepted actions reach both sides through the notifier.
func (h *Hub) handleAction(s *player.Session, raw json.RawMessage) {
	var act battle.Action
	if err := json.Unmarshal(raw, &act); err != nil {
		h.sendError(s, "invalid action")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), battleOpTimeout)
	defer cancel()
	res, err := h.battles.Submit(ctx, s.CharID, act)
	if err != nil {
		h.logger.Error("action submit failed",
			zap.Int64("char_id", s.CharID), zap.Error(err))
		h.sendError(s, "could not resolve action")
		return
	}
	if res.Rejected {
		s.Send("battle_reject", map[string]string{"reason": res.Reason})
		return
	}
	if !res.Consumed {
		// Open-menu style results concern only the sender.
		s.Send("battle_update", battleUpdatePayload{Result: res})
	}
}

// handleView serves the reduced public view of any live session to
// spectators.
func (h *Hub) handleView(s *player.Session, raw json.RawMessage) {
	var req viewRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.SessionID == "" {
		h.sendError(s, "invalid view request")
		return
	}
	sess := h.battles.Registry().Get(req.SessionID)
	if sess == nil {
		h.sendError(s, "no such battle")
		return
	}
	sess.Lock()
	view := battle.PublicView(sess)
	sess.Unlock()
	s.Send("battle_view", view)
}
