package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/minako-h/duelgate/server/cache"
	"github.com/minako-h/duelgate/server/config"
	"github.com/minako-h/duelgate/server/game/battle"
	"github.com/minako-h/duelgate/server/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Register mounts the REST API under /api.
func Register(r *gin.Engine, cfg *config.Config, db *gorm.DB, c cache.Cache, battles *battle.Manager, logger *zap.Logger) {
	auth := &authHandler{db: db, cache: c, sec: cfg.Security, logger: logger}
	ranking := &rankingHandler{db: db, cache: c, logger: logger}
	records := &battlesHandler{db: db, battles: battles, logger: logger}

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	api.POST("/register", auth.register)
	api.POST("/login", auth.login)

	// Public spectator surfaces.
	api.GET("/ranking", ranking.ranking)
	api.GET("/battles/:session_id", records.record)
	api.GET("/battles/:session_id/live", records.live)

	authed := api.Group("", middleware.Auth(cfg.Security, c))
	authed.POST("/logout", auth.logout)
	authed.GET("/characters/:char_id/battles", records.history)
}
