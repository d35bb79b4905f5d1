package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minako-h/duelgate/server/api/rest"
	"github.com/minako-h/duelgate/server/api/ws"
	"github.com/minako-h/duelgate/server/cache"
	"github.com/minako-h/duelgate/server/config"
	"github.com/minako-h/duelgate/server/content"
	"github.com/minako-h/duelgate/server/db"
	"github.com/minako-h/duelgate/server/game/battle"
	"github.com/minako-h/duelgate/server/game/player"
	"github.com/minako-h/duelgate/server/middleware"
	"github.com/minako-h/duelgate/server/model"
	"github.com/minako-h/duelgate/server/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.Server.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	gdb, err := db.Open(cfg.Database)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	if err := model.AutoMigrate(gdb); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	store, err := content.Load(gdb, logger)
	if err != nil {
		logger.Fatal("load content", zap.Error(err))
	}

	cacheCfg := cache.Config{
		RedisAddr:     cfg.Cache.RedisAddr,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
		LocalBuf:      cfg.Cache.LocalPubSubBuf,
		LocalGCEvery:  cfg.Cache.LocalGCEvery,
	}
	c, err := cache.NewCache(cacheCfg)
	if err != nil {
		logger.Fatal("init cache", zap.Error(err))
	}
	ps, err := cache.NewPubSub(cacheCfg)
	if err != nil {
		logger.Fatal("init pubsub", zap.Error(err))
	}

	sched := scheduler.New(logger)
	defer sched.Stop()

	eval := battle.NewEvaluator(logger)
	resolver := battle.NewResolver(store, eval, cfg.Battle, battle.NewDBItemBag(gdb), logger)
	controller := battle.NewController(store, eval, cfg.Battle, logger)
	settler := battle.NewSettler(gdb, c, ps, store, nil, logger)
	battles := battle.NewManager(gdb, store, resolver, controller, settler, sched, nil, logger)

	players := player.NewManager()
	hub := ws.NewHub(gdb, store, battles, players, logger)

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		middleware.Recovery(logger),
		middleware.TraceID(),
		middleware.Logger(logger),
		middleware.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst),
	)

	rest.Register(engine, cfg, gdb, c, battles, logger)
	ws.Register(engine, cfg, c, hub, players, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: engine,
	}

	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
