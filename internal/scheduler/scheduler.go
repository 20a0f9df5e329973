package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"solitaire-ledger/internal/backup"
)

type Ledger interface {
	backup.Source
	Sweep(ctx context.Context) (bool, error)
}

type Backuper interface {
	Backup(ctx context.Context, src backup.Source) (string, error)
}

type Options struct {
	Ledger        Ledger
	SweepInterval time.Duration

	// Backup is optional.
	Backup         Backuper
	BackupInterval time.Duration
}

// Scheduler runs the ledger housekeeping jobs in the background.
type Scheduler struct {
	sched gocron.Scheduler
	opts  Options
}

func New(opts Options) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	s := &Scheduler{sched: sched, opts: opts}

	_, err = sched.NewJob(
		gocron.DurationJob(opts.SweepInterval),
		gocron.NewTask(s.sweep),
		gocron.WithName("ledger-sweep"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}

	if opts.Backup != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(opts.BackupInterval),
			gocron.NewTask(s.backup),
			gocron.WithName("ledger-backup"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = sched.Shutdown()
			return nil, fmt.Errorf("schedule backup: %w", err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

func (s *Scheduler) sweep() {
	archived, err := s.opts.Ledger.Sweep(context.Background())
	if err != nil {
		log.Printf("[Scheduler] sweep failed: %v", err)
		return
	}
	if archived {
		log.Printf("[Scheduler] contract instance is archived, restore required")
	}
}

func (s *Scheduler) backup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	key, err := s.opts.Backup.Backup(ctx, s.opts.Ledger)
	if err != nil {
		log.Printf("[Scheduler] backup failed: %v", err)
		return
	}
	log.Printf("[Scheduler] snapshot uploaded to %s", key)
}
