package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/minako-h/duelgate/server/cache"
	"github.com/minako-h/duelgate/server/game/battle"
	"github.com/minako-h/duelgate/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type rankingHandler struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *zap.Logger
}

type rankingEntry struct {
	Rank   int    `json:"rank"`
	CharID int64  `json:"char_id"`
	Name   string `json:"name"`
	Level  int    `json:"level"`
	Wins   int    `json:"wins"`
}

// ranking serves the win-count leaderboard from the cache's sorted set,
// hydrated with character names from the database.
func (h *rankingHandler) ranking(c *gin.Context) {
	limit := int64(10)
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	members, err := h.cache.ZRevRange(c.Request.Context(), battle.LeaderboardKey, 0, limit-1)
	if err != nil {
		h.logger.Error("leaderboard read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "leaderboard unavailable"})
		return
	}

	entries := make([]rankingEntry, 0, len(members))
	for i, member := range members {
		charID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		var ch model.Character
		if err := h.db.First(&ch, charID).Error; err != nil {
			continue
		}
		entries = append(entries, rankingEntry{
			Rank:   i + 1,
			CharID: ch.ID,
			Name:   ch.Name,
			Level:  ch.Level,
			Wins:   ch.Wins,
		})
	}
	c.JSON(http.StatusOK, gin.H{"ranking": entries})
}
