package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minako-h/duelgate/server/cache"
	"github.com/minako-h/duelgate/server/config"
	"github.com/minako-h/duelgate/server/game/battle"
	"github.com/minako-h/duelgate/server/model"
	"github.com/minako-h/duelgate/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type restFixture struct {
	db     *gorm.DB
	cache  cache.Cache
	engine *gin.Engine
}

func setupREST(t *testing.T) *restFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.SetupTestDB(t)
	c, err := cache.NewCache(cache.Config{})
	require.NoError(t, err)

	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTL: time.Hour}
	logger := zap.NewNop()

	auth := &authHandler{db: db, cache: c, sec: sec, logger: logger}
	ranking := &rankingHandler{db: db, cache: c, logger: logger}
	records := &battlesHandler{db: db, logger: logger}

	engine := gin.New()
	engine.POST("/api/register", auth.register)
	engine.POST("/api/login", auth.login)
	engine.GET("/api/ranking", ranking.ranking)
	engine.GET("/api/battles/:session_id", records.record)

	return &restFixture{db: db, cache: c, engine: engine}
}

func (f *restFixture) post(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *restFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestRegisterAndLogin(t *testing.T) {
	f := setupREST(t)

	w := f.post(t, "/api/register", gin.H{"username": "Aria", "password": "hunter22"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// duplicate username
	w = f.post(t, "/api/register", gin.H{"username": "aria", "password": "hunter22"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.post(t, "/api/login", gin.H{"username": "ARIA", "password": "hunter22"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token     string `json:"token"`
		AccountID int64  `json:"account_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	// login created a revocable cache session
	ok, err := f.cache.Exists(context.Background(), "session:"+resp.Token)
	require.NoError(t, err)
	assert.True(t, ok)

	w = f.post(t, "/api/login", gin.H{"username": "aria", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectsBannedAccount(t *testing.T) {
	f := setupREST(t)

	w := f.post(t, "/api/register", gin.H{"username": "malory", "password": "hunter22"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, f.db.Model(&model.Account{}).
		Where("username = ?", "malory").UpdateColumn("status", 0).Error)

	w = f.post(t, "/api/login", gin.H{"username": "malory", "password": "hunter22"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRankingHydratesFromCache(t *testing.T) {
	f := setupREST(t)
	ctx := context.Background()

	ch := model.Character{Name: "Aria", ClassID: 1, RaceID: 1, Level: 5,
		HP: 100, MaxHP: 100, MP: 50, MaxMP: 50, Wins: 3}
	require.NoError(t, f.db.Create(&ch).Error)
	require.NoError(t, f.cache.ZIncrBy(ctx, battle.LeaderboardKey, 3, "1"))

	w := f.get(t, "/api/ranking")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Ranking []rankingEntry `json:"ranking"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Ranking, 1)
	assert.Equal(t, "Aria", resp.Ranking[0].Name)
	assert.Equal(t, 1, resp.Ranking[0].Rank)
	assert.Equal(t, 3, resp.Ranking[0].Wins)
}

func TestBattleRecordLookup(t *testing.T) {
	f := setupREST(t)

	winner := int64(1)
	row := model.Battle{
		SessionID: "abc-123", Kind: battle.KindPVP,
		CharAID: 1, CharBID: 2,
		Status: model.BattleFinished, WinnerID: &winner, Turns: 5,
		Log: datatypes.JSON(`[{"turn":1,"lines":["Aria challenges Bram!"]}]`),
	}
	require.NoError(t, f.db.Create(&row).Error)

	w := f.get(t, "/api/battles/abc-123")
	require.Equal(t, http.StatusOK, w.Code)
	var got model.Battle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, model.BattleFinished, got.Status)

	w = f.get(t, "/api/battles/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
