package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/minako-h/duelgate/server/game/battle"
	"github.com/minako-h/duelgate/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type battlesHandler struct {
	db      *gorm.DB
	battles *battle.Manager
	logger  *zap.Logger
}

// record serves one persisted battle row, including the full event log.
func (h *battlesHandler) record(c *gin.Context) {
	sessionID := c.Param("session_id")
	var row model.Battle
	if err := h.db.Where("session_id = ?", sessionID).First(&row).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such battle"})
		return
	}
	c.JSON(http.StatusOK, row)
}

// live serves the public spectator view of a running session.
func (h *battlesHandler) live(c *gin.Context) {
	sessionID := c.Param("session_id")
	sess := h.battles.Registry().Get(sessionID)
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no live battle"})
		return
	}
	sess.Lock()
	view := battle.PublicView(sess)
	sess.Unlock()
	c.JSON(http.StatusOK, view)
}

// history lists a character's recent battle records.
func (h *battlesHandler) history(c *gin.Context) {
	charID := c.Param("char_id")
	var rows []model.Battle
	err := h.db.
		Where("char_a_id = ? OR char_b_id = ?", charID, charID).
		Order("id DESC").Limit(20).Find(&rows).Error
	if err != nil {
		h.logger.Error("battle history read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"battles": rows})
}
