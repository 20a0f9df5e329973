package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"solitaire-ledger/internal/auth"
	"solitaire-ledger/internal/backup"
	"solitaire-ledger/internal/config"
	"solitaire-ledger/internal/contract"
	"solitaire-ledger/internal/hub"
	"solitaire-ledger/internal/ledger"
	"solitaire-ledger/internal/scheduler"
	"solitaire-ledger/internal/server"
)

func openBackend(cfg config.LedgerConfig) (ledger.Backend, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return ledger.NewFileBackend(cfg.Path), nil
	case config.BackendSQLite:
		backend, err := ledger.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return ledger.NewMemoryBackend(), nil
	}
}

// newLedger opens the configured backend and hosts the instance on it. A
// fresh or restored instance is live for LEASE_EXTEND_TO ledgers.
func newLedger(ctx context.Context, cfg config.LedgerConfig) (*ledger.Ledger, error) {
	backend, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}
	l, err := ledger.New(ctx, ledger.Options{
		Backend:       backend,
		CloseInterval: cfg.CloseInterval,
		InitialTTL:    cfg.LeaseExtendTo,
	})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return l, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading environment variables directly")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	gin.SetMode(cfg.GinMode)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := newLedger(ctx, cfg.Ledger)
	if err != nil {
		log.Fatal(err)
	}
	defer l.Close()

	wsHub := hub.New()
	l.Subscribe(wsHub)

	schedOpts := scheduler.Options{Ledger: l, SweepInterval: cfg.Ledger.SweepInterval}
	if cfg.Backup.Enabled() {
		uploader, err := backup.New(ctx, cfg.Backup)
		if err != nil {
			log.Fatal(err)
		}
		schedOpts.Backup = uploader
		schedOpts.BackupInterval = cfg.Backup.Interval
	}
	sched, err := scheduler.New(schedOpts)
	if err != nil {
		log.Fatal(err)
	}
	sched.Start()
	defer func() { _ = sched.Shutdown() }()

	tokenCfg := auth.DefaultTokenConfig(cfg.MasterSecret)
	tokenCfg.Expiry = cfg.TokenExpiry

	router, stopRouter := server.NewRouter(server.Deps{
		Ledger:      l,
		Contract:    contract.Solitaire{LeaseThreshold: cfg.Ledger.LeaseThreshold, LeaseExtendTo: cfg.Ledger.LeaseExtendTo},
		Hub:         wsHub,
		TokenConfig: tokenCfg,
		Challenges:  auth.NewChallenges(auth.DefaultChallengeTTL),
	})
	defer stopRouter()

	log.Printf("listening on %s", fmt.Sprintf(":%d", cfg.Port))
	if err := server.Run(ctx, cfg, router); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
