package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/minako-h/duelgate/server/cache"
	"github.com/minako-h/duelgate/server/config"
	"github.com/minako-h/duelgate/server/game/player"
	"github.com/minako-h/duelgate/server/middleware"
	"github.com/minako-h/duelgate/server/model"
	"go.uber.org/zap"
)

func newUpgrader(allowed []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true // local development only
			}
			origin := r.Header.Get("Origin")
			for _, a := range allowed {
				if origin == a {
					return true
				}
			}
			return false
		},
	}
}

// Register mounts the authenticated WebSocket endpoint.
func Register(r *gin.Engine, cfg *config.Config, c cache.Cache, hub *Hub, players *player.Manager, logger *zap.Logger) {
	upgrader := newUpgrader(cfg.Security.AllowedOrigins)

	r.GET("/ws", middleware.Auth(cfg.Security, c), func(ctx *gin.Context) {
		accountID := middleware.GetAccountID(ctx)

		var ch model.Character
		charID := int64(0)
		err := hub.db.Where("account_id = ? AND npc = ?", accountID, false).
			Order("id").First(&ch).Error
		if err == nil {
			charID = ch.ID
		}

		conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed",
				zap.Int64("account_id", accountID), zap.Error(err))
			return
		}

		sess := player.NewSession(accountID, charID, conn, logger)
		players.Register(sess)
		defer func() {
			players.Unregister(sess)
			sess.Close()
		}()

		logger.Info("player connected",
			zap.Int64("account_id", accountID), zap.Int64("char_id", charID))
		sess.Run(hub.Dispatch)
		logger.Info("player disconnected",
			zap.Int64("account_id", accountID), zap.Int64("char_id", charID))
	})
}
