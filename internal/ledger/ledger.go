package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"solitaire-ledger/internal/model"
)

var (
	ErrArchived     = errors.New("contract instance is archived")
	ErrUnauthorized = errors.New("authorization failed")
	ErrAborted      = errors.New("invocation aborted")
)

const (
	DefaultCloseInterval        = 5 * time.Second
	DefaultInitialTTL    uint32 = 5000
)

type Event struct {
	TxID       string            `json:"txId"`
	Sequence   uint32            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// EventSink receives events of committed invocations in commit order.
// Publish runs on the invoking goroutine and must not call back into the
// ledger.
type EventSink interface {
	Publish(ev Event)
}

type Receipt struct {
	TxID      string
	Sequence  uint32
	Timestamp uint64
	Events    []Event
	Logs      []string
}

type Options struct {
	Backend       Backend
	Now           func() time.Time
	CloseInterval time.Duration
	InitialTTL    uint32
}

// Ledger hosts a single contract instance. Invocations are serialized and
// each one commits all of its writes or none.
type Ledger struct {
	mu sync.Mutex

	backend       Backend
	now           func() time.Time
	closeInterval time.Duration
	initialTTL    uint32

	genesis   time.Time
	liveUntil uint32
	archived  bool
	entries   map[string]json.RawMessage

	// publishMu is taken before mu is released on commit, so sinks see
	// events in commit order.
	publishMu sync.Mutex
	sinksMu   sync.RWMutex
	sinks     []EventSink
}

func New(ctx context.Context, opts Options) (*Ledger, error) {
	l := &Ledger{
		backend:       opts.Backend,
		now:           opts.Now,
		closeInterval: opts.CloseInterval,
		initialTTL:    opts.InitialTTL,
		entries:       make(map[string]json.RawMessage),
	}
	if l.backend == nil {
		l.backend = NewMemoryBackend()
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.closeInterval <= 0 {
		l.closeInterval = DefaultCloseInterval
	}
	if l.initialTTL == 0 {
		l.initialTTL = DefaultInitialTTL
	}

	snap, err := l.backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if snap != nil {
		l.genesis = time.UnixMilli(snap.Genesis)
		l.liveUntil = snap.LiveUntil
		l.archived = snap.Archived
		for k, v := range snap.Entries {
			l.entries[k] = v
		}
		return l, nil
	}

	l.genesis = l.now()
	l.liveUntil = 1 + l.initialTTL
	if err := l.persistLocked(ctx, nil); err != nil {
		return nil, fmt.Errorf("save genesis: %w", err)
	}
	return l, nil
}

func (l *Ledger) Close() error {
	return l.backend.Close()
}

func (l *Ledger) Subscribe(sink EventSink) {
	l.sinksMu.Lock()
	defer l.sinksMu.Unlock()
	l.sinks = append(l.sinks, sink)
}

func (l *Ledger) sequenceAt(t time.Time) uint32 {
	if t.Before(l.genesis) {
		return 1
	}
	return 1 + uint32(t.Sub(l.genesis)/l.closeInterval)
}

func (l *Ledger) expiredLocked(seq uint32) bool {
	return l.archived || seq > l.liveUntil
}

// Invoke runs fn against the contract instance on behalf of invoker. An
// error or panic from fn discards every write fn made.
func (l *Ledger) Invoke(ctx context.Context, invoker string, fn func(env *Env) error) (Receipt, error) {
	rec, err := l.invoke(ctx, invoker, fn)
	if err != nil {
		return rec, err
	}
	// invoke returns holding publishMu on success.
	defer l.publishMu.Unlock()

	l.sinksMu.RLock()
	sinks := l.sinks
	l.sinksMu.RUnlock()
	for _, ev := range rec.Events {
		for _, s := range sinks {
			s.Publish(ev)
		}
	}
	return rec, nil
}

func (l *Ledger) invoke(ctx context.Context, invoker string, fn func(env *Env) error) (rec Receipt, err error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	seq := l.sequenceAt(now)
	if l.expiredLocked(seq) {
		l.archived = true
		return Receipt{}, ErrArchived
	}

	env := &Env{
		ledger:    l,
		invoker:   invoker,
		txID:      uuid.NewString(),
		sequence:  seq,
		timestamp: uint64(now.Unix()),
		writes:    make(map[string]json.RawMessage),
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ledger] tx=%s panic: %v", env.txID, r)
			rec = Receipt{TxID: env.txID, Sequence: seq, Logs: env.logs}
			err = fmt.Errorf("%w: %v", ErrAborted, r)
		}
	}()

	if err := fn(env); err != nil {
		return Receipt{TxID: env.txID, Sequence: seq, Logs: env.logs}, err
	}

	if err := l.commitLocked(ctx, env); err != nil {
		return Receipt{TxID: env.txID, Sequence: seq, Logs: env.logs}, err
	}

	l.publishMu.Lock()
	return Receipt{
		TxID:      env.txID,
		Sequence:  seq,
		Timestamp: env.timestamp,
		Events:    env.events,
		Logs:      env.logs,
	}, nil
}

func (l *Ledger) commitLocked(ctx context.Context, env *Env) error {
	if len(env.writes) == 0 && env.extension == nil {
		return nil
	}

	prevLiveUntil := l.liveUntil
	prev := make(map[string]json.RawMessage, len(env.writes))
	for k, v := range env.writes {
		if old, ok := l.entries[k]; ok {
			prev[k] = old
		}
		l.entries[k] = v
	}
	if ext := env.extension; ext != nil {
		if l.liveUntil-env.sequence <= ext.threshold {
			l.liveUntil = env.sequence + ext.extendTo
		}
	}

	if err := l.persistLocked(ctx, env.writes); err != nil {
		for k := range env.writes {
			if old, ok := prev[k]; ok {
				l.entries[k] = old
			} else {
				delete(l.entries, k)
			}
		}
		l.liveUntil = prevLiveUntil
		return fmt.Errorf("persist tx %s: %w", env.txID, err)
	}
	return nil
}

// persistLocked writes the instance state. Backends that store entries
// individually only receive the changed ones.
func (l *Ledger) persistLocked(ctx context.Context, changed map[string]json.RawMessage) error {
	if inc, ok := l.backend.(IncrementalBackend); ok {
		return inc.SaveChanges(ctx, l.metaLocked(), changed)
	}
	return l.backend.Save(ctx, l.snapshotLocked())
}

func (l *Ledger) metaLocked() Snapshot {
	now := l.now()
	return Snapshot{
		Version:   snapshotVersion,
		Genesis:   l.genesis.UnixMilli(),
		Sequence:  l.sequenceAt(now),
		LiveUntil: l.liveUntil,
		Archived:  l.archived,
		SavedAt:   now.UnixMilli(),
	}
}

func (l *Ledger) snapshotLocked() Snapshot {
	snap := l.metaLocked()
	snap.Entries = make(map[string]json.RawMessage, len(l.entries))
	for k, v := range l.entries {
		snap.Entries[k] = v
	}
	return snap
}

func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Ledger) Info() model.LedgerInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	seq := l.sequenceAt(now)
	return model.LedgerInfo{
		Sequence:  seq,
		Timestamp: uint64(now.Unix()),
		LiveUntil: l.liveUntil,
		Archived:  l.expiredLocked(seq),
	}
}

// Sweep archives the instance once its lease has run out. It reports
// whether the instance is archived after the sweep.
func (l *Ledger) Sweep(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := l.sequenceAt(l.now())
	if l.archived {
		return true, nil
	}
	if seq <= l.liveUntil {
		return false, nil
	}

	l.archived = true
	log.Printf("[ledger] instance archived at sequence %d (live until %d)", seq, l.liveUntil)
	if err := l.persistLocked(ctx, nil); err != nil {
		return true, fmt.Errorf("persist archival: %w", err)
	}
	return true, nil
}

// Restore brings an archived instance back with a fresh lease. Restoring
// a live instance is a no-op.
func (l *Ledger) Restore(ctx context.Context) (model.LedgerInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	seq := l.sequenceAt(now)
	if l.expiredLocked(seq) {
		prevLiveUntil, prevArchived := l.liveUntil, l.archived
		l.liveUntil = seq + l.initialTTL
		l.archived = false
		if err := l.persistLocked(ctx, nil); err != nil {
			l.liveUntil, l.archived = prevLiveUntil, prevArchived
			return model.LedgerInfo{}, fmt.Errorf("persist restore: %w", err)
		}
		log.Printf("[ledger] instance restored at sequence %d (live until %d)", seq, l.liveUntil)
	}

	return model.LedgerInfo{
		Sequence:  seq,
		Timestamp: uint64(now.Unix()),
		LiveUntil: l.liveUntil,
	}, nil
}
