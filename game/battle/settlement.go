package battle

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/minako-h/duelgate/server/cache"
	"github.com/minako-h/duelgate/server/content"
	"github.com/minako-h/duelgate/server/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LeaderboardKey is the sorted set of win counts keyed by character id.
const LeaderboardKey = "leaderboard:wins"

// ResultsChannel carries settled battle results for spectator feeds.
const ResultsChannel = "battle_results"

// ArtifactHook is the optional transfer callback fired on a finished PvP
// match. Errors are logged, never propagated into settlement.
type ArtifactHook interface {
	Transfer(ctx context.Context, winnerID, loserID int64, location string) error
}

// BattleResult is the payload published on ResultsChannel.
type BattleResult struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	CharAID   int64  `json:"char_a_id"`
	CharBID   int64  `json:"char_b_id"`
	WinnerID  *int64 `json:"winner_id,omitempty"`
	Turns     int    `json:"turns"`
}

// Settler runs end-of-battle persistence: snapshot flush, outcome row,
// reward grants, counters, leaderboard, result publication.
//
// Reward grants are deliberately a sequence of independent updates, not one
// transaction: partial application is an acceptable, recoverable
// inconsistency and each update is idempotent-on-retry in effect terms.
type Settler struct {
	db     *gorm.DB
	cache  cache.Cache
	pubsub cache.PubSub
	store  *content.Store
	hook   ArtifactHook
	logger *zap.Logger
}

// NewSettler creates a settler. cache, pubsub, and hook may each be nil;
// the corresponding step is skipped.
func NewSettler(db *gorm.DB, c cache.Cache, ps cache.PubSub, store *content.Store, hook ArtifactHook, logger *zap.Logger) *Settler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Settler{db: db, cache: c, pubsub: ps, store: store, hook: hook, logger: logger}
}

// Settle persists a terminated session. The caller removes the session from
// the registry afterwards; the persisted row and log survive.
func (s *Settler) Settle(ctx context.Context, sess *Session) error {
	if !sess.Terminated() {
		return fmt.Errorf("settle active session %s", sess.ID)
	}

	for _, c := range []*Combatant{sess.A, sess.B} {
		if err := s.flush(ctx, c); err != nil {
			s.logger.Error("snapshot flush failed",
				zap.Int64("char_id", c.CharID), zap.Error(err))
		}
	}

	if err := s.persistOutcome(ctx, sess); err != nil {
		return err
	}

	s.fireArtifactHook(ctx, sess)

	if w := sess.Winner(); w != nil {
		s.grantRewards(ctx, sess, *w)
	}

	s.publishResult(ctx, sess)
	return nil
}

// flush writes a snapshot's final resources, limit gauge, and remaining
// statuses back to the character's durable records.
func (s *Settler) flush(ctx context.Context, c *Combatant) error {
	err := s.db.WithContext(ctx).Model(&model.Character{}).
		Where("id = ?", c.CharID).
		Updates(map[string]interface{}{
			"hp":          c.HP,
			"mp":          c.MP,
			"limit_gauge": c.LimitGauge,
		}).Error
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).
		Where("char_id = ?", c.CharID).
		Delete(&model.CharacterStatus{}).Error; err != nil {
		return err
	}
	for _, si := range c.Statuses {
		row := model.CharacterStatus{
			CharID:    c.CharID,
			StatusID:  si.Def.ID,
			TurnsLeft: si.TurnsLeft,
		}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Settler) persistOutcome(ctx context.Context, sess *Session) error {
	logJSON, err := json.Marshal(sess.Events())
	if err != nil {
		return fmt.Errorf("encode battle log: %w", err)
	}
	return s.db.WithContext(ctx).Model(&model.Battle{}).
		Where("id = ?", sess.RowID).
		Updates(map[string]interface{}{
			"status":    sess.Status(),
			"winner_id": sess.Winner(),
			"turns":     sess.Turn(),
			"log":       datatypes.JSON(logJSON),
		}).Error
}

// fireArtifactHook invokes the transfer hook on a finished PvP match.
// Fire-and-forget with respect to the battle outcome.
func (s *Settler) fireArtifactHook(ctx context.Context, sess *Session) {
	if s.hook == nil || sess.Kind != KindPVP || sess.Status() != model.BattleFinished {
		return
	}
	w := sess.Winner()
	if w == nil {
		return
	}
	loser := sess.Opponent(*w)
	if err := s.hook.Transfer(ctx, *w, loser.CharID, "arena"); err != nil {
		s.logger.Error("artifact transfer hook failed",
			zap.String("session_id", sess.ID),
			zap.Int64("winner_id", *w),
			zap.Int64("loser_id", loser.CharID),
			zap.Error(err))
	}
}

// grantRewards applies the level-reward row keyed by the loser's level:
// experience to both tracking fields, gold, and the win/loss counters.
func (s *Settler) grantRewards(ctx context.Context, sess *Session, winnerID int64) {
	winner := sess.ByChar(winnerID)
	loser := sess.Opponent(winnerID)

	if reward, ok := s.store.LevelReward(loser.Level); ok {
		err := s.db.WithContext(ctx).Model(&model.Character{}).
			Where("id = ?", winner.CharID).
			UpdateColumns(map[string]interface{}{
				"exp":       gorm.Expr("exp + ?", reward.Exp),
				"level_exp": gorm.Expr("level_exp + ?", reward.Exp),
				"gold":      gorm.Expr("gold + ?", reward.Gold),
			}).Error
		if err != nil {
			s.logger.Error("reward grant failed",
				zap.Int64("winner_id", winner.CharID), zap.Error(err))
		}
	} else {
		s.logger.Warn("no level reward row",
			zap.Int("loser_level", loser.Level),
			zap.String("session_id", sess.ID))
	}

	if err := s.db.WithContext(ctx).Model(&model.Character{}).
		Where("id = ?", winner.CharID).
		UpdateColumn("wins", gorm.Expr("wins + 1")).Error; err != nil {
		s.logger.Error("win counter update failed",
			zap.Int64("char_id", winner.CharID), zap.Error(err))
	}
	if err := s.db.WithContext(ctx).Model(&model.Character{}).
		Where("id = ?", loser.CharID).
		UpdateColumn("losses", gorm.Expr("losses + 1")).Error; err != nil {
		s.logger.Error("loss counter update failed",
			zap.Int64("char_id", loser.CharID), zap.Error(err))
	}

	if s.cache != nil && !winner.NPC {
		member := strconv.FormatInt(winner.CharID, 10)
		if err := s.cache.ZIncrBy(ctx, LeaderboardKey, 1, member); err != nil {
			s.logger.Error("leaderboard update failed",
				zap.Int64("char_id", winner.CharID), zap.Error(err))
		}
	}
}

func (s *Settler) publishResult(ctx context.Context, sess *Session) {
	if s.pubsub == nil {
		return
	}
	payload, err := json.Marshal(BattleResult{
		SessionID: sess.ID,
		Kind:      sess.Kind,
		Status:    sess.Status(),
		CharAID:   sess.A.CharID,
		CharBID:   sess.B.CharID,
		WinnerID:  sess.Winner(),
		Turns:     sess.Turn(),
	})
	if err != nil {
		return
	}
	if err := s.pubsub.Publish(ctx, ResultsChannel, string(payload)); err != nil {
		s.logger.Error("result publish failed",
			zap.String("session_id", sess.ID), zap.Error(err))
	}
}
