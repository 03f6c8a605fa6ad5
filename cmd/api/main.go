package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voiceagent/internal/agent"
	"voiceagent/internal/ai"
	"voiceagent/internal/audit"
	"voiceagent/internal/auth"
	"voiceagent/internal/callflow"
	"voiceagent/internal/calls"
	"voiceagent/internal/config"
	"voiceagent/internal/conversations"
	"voiceagent/internal/httpapi"
	"voiceagent/internal/reporting"
	"voiceagent/internal/speech"
	"voiceagent/internal/telephony"
	"voiceagent/internal/voices"
	"voiceagent/pkg/logger"
	"voiceagent/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Stores
	callStore := calls.NewStore(db)
	convStore := conversations.NewStore(db)
	voiceStore := voices.NewStore(db)

	stores, err := callflow.NewStores(db, callStore, convStore)
	if err != nil {
		log.Error("store init failed", "err", err)
		os.Exit(1)
	}

	// Provider clients
	aiClient, err := ai.New(cfg.OpenAI)
	if err != nil {
		log.Error("ai init failed", "err", err)
		os.Exit(1)
	}
	speechClient, err := speech.New(cfg.ElevenLabs)
	if err != nil {
		log.Error("speech init failed", "err", err)
		os.Exit(1)
	}
	audioStore, err := speech.NewAudioStore(cfg.Agent.AudioDir, cfg.Agent.AudioBaseURL)
	if err != nil {
		log.Error("audio store init failed", "err", err)
		os.Exit(1)
	}
	dialer, err := telephony.NewDialer(cfg.Twilio)
	if err != nil {
		log.Error("dialer init failed", "err", err)
		os.Exit(1)
	}

	locker, err := callflow.NewRedisSessionLocker(rdb)
	if err != nil {
		log.Error("locker init failed", "err", err)
		os.Exit(1)
	}

	// Orchestration
	renderer := telephony.NewRenderer(cfg.Agent.Language, cfg.Twilio.WebhookBaseURL+"/gather")
	phoneAgent := agent.New(cfg.Agent.CompanyName)

	flow, err := callflow.New(callflow.Deps{
		Creator: stores,
		Calls:   callStore,
		Convs:   convStore,
		Voices:  voiceStore,
		AI:      aiClient,
		Speech:  speechClient,
		Audio:   audioStore,
		Dialer:  dialer,
		Agent:   phoneAgent,
		Render:  renderer,
		Lock:    locker,
		Log:     log,
	})
	if err != nil {
		log.Error("orchestrator init failed", "err", err)
		os.Exit(1)
	}

	// Reporting and audit
	reportRepo, err := reporting.NewPostgresRepo(callStore)
	if err != nil {
		log.Error("reporting init failed", "err", err)
		os.Exit(1)
	}
	auditRepo, err := audit.NewPostgresRepo(db)
	if err != nil {
		log.Error("audit init failed", "err", err)
		os.Exit(1)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		authManager: authManager,
		flow:        flow,
		audioDir:    audioStore.Dir(),
		handlers: httpapi.Handlers{
			Auth:     authManager,
			Calls:    callStore,
			Convs:    convStore,
			Voices:   voiceStore,
			Speech:   speechClient,
			Outbound: flow,
			Stats:    reporting.NewService(reportRepo),
			Audit:    audit.NewService(auditRepo),
		},
		db: dbChecker{db: db},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
