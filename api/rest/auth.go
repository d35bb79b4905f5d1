package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minako-h/duelgate/server/cache"
	"github.com/minako-h/duelgate/server/config"
	"github.com/minako-h/duelgate/server/middleware"
	"github.com/minako-h/duelgate/server/model"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type authHandler struct {
	db     *gorm.DB
	cache  cache.Cache
	sec    config.SecurityConfig
	logger *zap.Logger
}

type credentials struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=6,max=64"`
}

func (h *authHandler) register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid username or password format"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	acct := model.Account{
		Username:     strings.ToLower(req.Username),
		PasswordHash: string(hash),
	}
	if err := h.db.Create(&acct).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username taken"})
		return
	}

	h.logger.Info("account registered", zap.Int64("account_id", acct.ID))
	c.JSON(http.StatusCreated, gin.H{"account_id": acct.ID})
}

func (h *authHandler) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credentials"})
		return
	}

	var acct model.Account
	if err := h.db.Where("username = ?", strings.ToLower(req.Username)).First(&acct).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if acct.Status == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "account banned"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := middleware.GenerateToken(acct.ID, h.sec.JWTSecret, h.sec.JWTTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	if err := h.cache.Set(c.Request.Context(), "session:"+token, "1", h.sec.JWTTTL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	now := time.Now()
	h.db.Model(&model.Account{}).Where("id = ?", acct.ID).Updates(map[string]interface{}{
		"last_login_at": &now,
		"last_login_ip": c.ClientIP(),
	})

	var ch model.Character
	charID := int64(0)
	if err := h.db.Where("account_id = ? AND npc = ?", acct.ID, false).Order("id").First(&ch).Error; err == nil {
		charID = ch.ID
	}

	h.logger.Info("login", zap.Int64("account_id", acct.ID), zap.String("ip", c.ClientIP()))
	c.JSON(http.StatusOK, gin.H{"token": token, "account_id": acct.ID, "char_id": charID})
}

func (h *authHandler) logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if err := h.cache.Del(c.Request.Context(), "session:"+token); err != nil {
		h.logger.Warn("session revoke failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
