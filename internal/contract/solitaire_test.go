package contract

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var errNotSigned = errors.New("not signed")

type fakeEvent struct {
	Type       string
	Attributes map[string]string
}

// fakeHost keeps state as JSON like the real ledger and lets tests roll
// back a call that failed.
type fakeHost struct {
	state    map[string][]byte
	signer   string
	now      uint64
	logs     []string
	events   []fakeEvent
	extended int
}

func newFakeHost(signer string) *fakeHost {
	return &fakeHost{state: make(map[string][]byte), signer: signer, now: 1_700_000_000}
}

func (f *fakeHost) Get(key string, v any) (bool, error) {
	raw, ok := f.state[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func (f *fakeHost) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.state[key] = raw
	return nil
}

func (f *fakeHost) ExtendTTL(threshold, extendTo uint32) { f.extended++ }

func (f *fakeHost) RequireAuth(identity string) error {
	if identity != f.signer {
		return errNotSigned
	}
	return nil
}

func (f *fakeHost) Timestamp() uint64 { return f.now }
func (f *fakeHost) Log(msg string)    { f.logs = append(f.logs, msg) }

func (f *fakeHost) Emit(eventType string, attributes map[string]string) {
	f.events = append(f.events, fakeEvent{Type: eventType, Attributes: attributes})
}

// call runs fn and restores the previous state if it fails.
func (f *fakeHost) call(fn func() error) error {
	before := make(map[string][]byte, len(f.state))
	for k, v := range f.state {
		before[k] = v
	}
	if err := fn(); err != nil {
		f.state = before
		return err
	}
	return nil
}

func (f *fakeHost) snapshot() map[string]string {
	out := make(map[string]string, len(f.state))
	for k, v := range f.state {
		out[k] = string(v)
	}
	return out
}

func TestStartGame_SequentialIDs(t *testing.T) {
	h := newFakeHost("alice")
	c := New()

	for want := uint64(1); want <= 3; want++ {
		id, err := c.StartGame(h, "alice")
		require.NoError(t, err)
		require.Equal(t, want, id)
	}

	stats, err := c.GameStats(h)
	require.NoError(t, err)
	require.Equal(t, uint64(3), stats.TotalGames)
	require.Equal(t, uint64(3), stats.GamesInProgress)
	require.Equal(t, 3, h.extended)
}

func TestStartGame_RecordsGame(t *testing.T) {
	h := newFakeHost("alice")
	c := New()

	id, err := c.StartGame(h, "alice")
	require.NoError(t, err)

	game, found, err := c.GameByID(h, id)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "alice", game.Player)
	require.True(t, game.IsActive)
	require.False(t, game.IsWon)
	require.Zero(t, game.Moves)
	require.Equal(t, h.now, game.StartTime)
	require.Zero(t, game.EndTime)

	require.Len(t, h.events, 1)
	require.Equal(t, EventGameStarted, h.events[0].Type)
	require.Equal(t, "1", h.events[0].Attributes["id"])
	require.Contains(t, h.logs, "New Solitaire Game Started! Game ID: 1")
}

func TestStartGame_RequiresPlayerAuth(t *testing.T) {
	h := newFakeHost("mallory")
	c := New()

	err := h.call(func() error {
		_, err := c.StartGame(h, "alice")
		return err
	})
	require.ErrorIs(t, err, errNotSigned)
	require.Empty(t, h.state)
}

func TestRecordMove_CountsMoves(t *testing.T) {
	h := newFakeHost("alice")
	c := New()
	id, err := c.StartGame(h, "alice")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := c.RecordMove(h, id)
		require.NoError(t, err)
	}

	game, _, err := c.GameByID(h, id)
	require.NoError(t, err)
	require.Equal(t, uint64(4), game.Moves)

	stats, err := c.GameStats(h)
	require.NoError(t, err)
	require.Equal(t, uint64(4), stats.TotalMoves)
}

func TestRecordMove_RequiresRecordedPlayer(t *testing.T) {
	h := newFakeHost("alice")
	c := New()
	id, err := c.StartGame(h, "alice")
	require.NoError(t, err)

	h.signer = "bob"
	before := h.snapshot()
	err = h.call(func() error {
		_, err := c.RecordMove(h, id)
		return err
	})
	require.ErrorIs(t, err, errNotSigned)
	require.Equal(t, before, h.snapshot())
}

func TestRecordMove_UnknownGame(t *testing.T) {
	h := newFakeHost("alice")
	c := New()

	_, err := c.RecordMove(h, 42)
	require.ErrorIs(t, err, ErrGameNotActive)
	require.Empty(t, h.state)
}

func TestCompleteGame_Won(t *testing.T) {
	h := newFakeHost("alice")
	c := New()
	id, err := c.StartGame(h, "alice")
	require.NoError(t, err)
	_, err = c.RecordMove(h, id)
	require.NoError(t, err)
	_, err = c.RecordMove(h, id)
	require.NoError(t, err)

	h.now += 90
	game, err := c.CompleteGame(h, id, true)
	require.NoError(t, err)
	require.False(t, game.IsActive)
	require.True(t, game.IsWon)
	require.Equal(t, h.now, game.EndTime)

	stats, err := c.GameStats(h)
	require.NoError(t, err)
	require.Equal(t, uint64(1), stats.GamesWon)
	require.Zero(t, stats.GamesInProgress)
	require.Equal(t, uint64(1), stats.TotalGames)
	require.Contains(t, h.logs, "Congratulations! Game ID: 1 won in 2 moves!")
}

func TestCompleteGame_Lost(t *testing.T) {
	h := newFakeHost("alice")
	c := New()
	id, err := c.StartGame(h, "alice")
	require.NoError(t, err)
	_, err = c.StartGame(h, "alice")
	require.NoError(t, err)

	_, err = c.CompleteGame(h, id, false)
	require.NoError(t, err)

	stats, err := c.GameStats(h)
	require.NoError(t, err)
	require.Zero(t, stats.GamesWon)
	require.Equal(t, uint64(1), stats.GamesInProgress)
	require.Contains(t, h.logs, "Game ID: 1 ended with 0 moves")
}

func TestCompletedGame_RejectsFurtherCalls(t *testing.T) {
	h := newFakeHost("alice")
	c := New()
	id, err := c.StartGame(h, "alice")
	require.NoError(t, err)
	_, err = c.CompleteGame(h, id, true)
	require.NoError(t, err)

	before := h.snapshot()

	err = h.call(func() error {
		_, err := c.RecordMove(h, id)
		return err
	})
	require.ErrorIs(t, err, ErrGameNotActive)

	err = h.call(func() error {
		_, err := c.CompleteGame(h, id, false)
		return err
	})
	require.ErrorIs(t, err, ErrGameCompleted)

	require.Equal(t, before, h.snapshot())
}

func TestGameStats_DefaultsToZero(t *testing.T) {
	h := newFakeHost("alice")
	stats, err := New().GameStats(h)
	require.NoError(t, err)
	require.Zero(t, stats)
	require.Empty(t, h.state)
}

func TestGameByID_UnknownReturnsSentinel(t *testing.T) {
	h := newFakeHost("alice")
	game, found, err := New().GameByID(h, 7)
	require.NoError(t, err)
	require.False(t, found)
	require.False(t, game.IsActive)
	require.Equal(t, SentinelPlayer, game.Player)
	require.Zero(t, game.GameID)
	require.Empty(t, h.state)
}

func TestGameByID_CorruptRecord(t *testing.T) {
	h := newFakeHost("alice")
	h.state[gameKey(1)] = []byte("{")

	_, _, err := New().GameByID(h, 1)
	require.Error(t, err)
}
