package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "lumen/app/configs"
	"lumen/app/core/auth"
	"lumen/app/core/db"
	"lumen/app/core/interaction/http"
	"lumen/app/core/llm"
	"lumen/app/core/scheduler"
	"lumen/app/core/task"
	"lumen/app/core/voice"
	"lumen/app/pkg/logger"
)

func main() {
	if err := logger.Init("output/logs"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Info("Lumen Tasks Starting...")

	cfgManager, err := config.NewManager(config.DefaultPath())
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	cfg := cfgManager.Get()

	agentKey := os.Getenv("LUMEN_API_KEY")
	llmKey := os.Getenv("OPENAI_API_KEY")
	for _, finding := range config.Audit(cfg, agentKey, llmKey) {
		logger.Info("Config warning (%s): %s", finding.Key, finding.Message)
	}

	database, err := db.NewSQLiteDB("output/db")
	if err != nil {
		logger.Error("Failed to initialize DB: %v", err)
		os.Exit(1)
	}
	defer database.Close()
	logger.Info("Database initialized successfully")

	taskStore := task.NewStore(database, cfg.Task.DefaultAssignee, cfg.Task.DefaultCreator)
	sessions := auth.NewSessionStore(database, time.Duration(cfg.Auth.SessionTTLHours)*time.Hour)
	allowlist := auth.NewAllowlist(cfg.Auth.AllowedEmails)

	var verifier auth.IdentityVerifier
	if secret := os.Getenv("LUMEN_SIGNIN_SECRET"); secret != "" && len(cfg.Auth.AllowedEmails) > 0 {
		verifier = auth.NewStaticVerifier(secret, cfg.Auth.AllowedEmails[0])
	}
	gateway := auth.NewGateway(allowlist, sessions, verifier, agentKey, cfg.Auth.CookieName)

	buffer := voice.NewContextBuffer(cfg.Voice.ContextTurns)
	completer := llm.NewClient(llmKey, cfg.Voice.Model, cfg.Voice.MaxTokens)
	assistant := voice.NewAssistant(buffer, completer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	contextIdle := time.Duration(cfg.Voice.ContextIdleMinutes) * time.Minute
	jobs := scheduler.New()
	if err := jobs.Register(scheduler.JobSpec{
		Name:       "session-prune",
		Interval:   time.Hour,
		Timeout:    30 * time.Second,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			pruned, err := sessions.PruneExpired(ctx)
			if pruned > 0 {
				logger.Info("Pruned %d expired sessions", pruned)
			}
			return err
		},
	}); err != nil {
		logger.Error("Failed to register session-prune job: %v", err)
		os.Exit(1)
	}
	if err := jobs.Register(scheduler.JobSpec{
		Name:     "voice-context-prune",
		Interval: 15 * time.Minute,
		Run: func(ctx context.Context) error {
			buffer.PruneIdle(contextIdle)
			return nil
		},
	}); err != nil {
		logger.Error("Failed to register voice-context-prune job: %v", err)
		os.Exit(1)
	}
	if err := jobs.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := jobs.Stop(3 * time.Second); err != nil {
			logger.Error("Scheduler shutdown timeout: %v", err)
		}
	}()

	server := http.NewServer(cfg.Server.Port, taskStore, assistant, gateway)
	server.SetShutdownTimeout(time.Duration(cfg.Server.ShutdownTimeoutSec) * time.Second)
	server.SetScheduler(jobs)

	go func() {
		if err := server.Start(ctx); err != nil {
			logger.Error("HTTP server crashed: %v", err)
			os.Exit(1)
		}
	}()

	logger.Info("Lumen Tasks is ready to serve.")
	fmt.Printf("- Task API:  http://localhost:%d/tasks\n", cfg.Server.Port)
	fmt.Printf("- Voice API: http://localhost:%d/voice (POST)\n", cfg.Server.Port)
	fmt.Printf("- Sign-in:   http://localhost:%d/auth/signin\n", cfg.Server.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received signal: %v. Lumen Tasks Shutting Down...", sig)
	cancel()
}
