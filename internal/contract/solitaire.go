package contract

import (
	"errors"
	"fmt"
	"strconv"

	"solitaire-ledger/internal/model"
)

const (
	statsKey   = "G_STATS"
	counterKey = "G_COUNT"

	// SentinelPlayer is the placeholder identity of the record returned for
	// ids that were never created.
	SentinelPlayer = "GAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAWHF"

	DefaultLeaseThreshold uint32 = 5000
	DefaultLeaseExtendTo  uint32 = 5000
)

var (
	ErrGameNotActive = errors.New("game is not active")
	ErrGameCompleted = errors.New("game is already completed")
)

// Event types emitted by the entry points.
const (
	EventGameStarted   = "gameStarted"
	EventMoveRecorded  = "moveRecorded"
	EventGameCompleted = "gameCompleted"
)

func gameKey(id uint64) string {
	return "game:" + strconv.FormatUint(id, 10)
}

// Solitaire holds no state of its own; counters, stats and games live in
// the host storage.
type Solitaire struct {
	LeaseThreshold uint32
	LeaseExtendTo  uint32
}

func New() Solitaire {
	return Solitaire{LeaseThreshold: DefaultLeaseThreshold, LeaseExtendTo: DefaultLeaseExtendTo}
}

func (s Solitaire) extendLease(h Host) {
	h.ExtendTTL(s.LeaseThreshold, s.LeaseExtendTo)
}

// StartGame opens a new session for player and returns its id.
func (s Solitaire) StartGame(h Host, player string) (uint64, error) {
	if err := h.RequireAuth(player); err != nil {
		return 0, err
	}

	var count uint64
	if _, err := h.Get(counterKey, &count); err != nil {
		return 0, fmt.Errorf("load game count: %w", err)
	}
	count++

	stats, err := s.GameStats(h)
	if err != nil {
		return 0, err
	}

	game := model.Game{
		GameID:    count,
		Player:    player,
		StartTime: h.Timestamp(),
		IsActive:  true,
	}
	stats.TotalGames++
	stats.GamesInProgress++

	if err := s.save(h, game, stats); err != nil {
		return 0, err
	}
	if err := h.Set(counterKey, count); err != nil {
		return 0, fmt.Errorf("store game count: %w", err)
	}
	s.extendLease(h)

	h.Log(fmt.Sprintf("New Solitaire Game Started! Game ID: %d", count))
	h.Emit(EventGameStarted, map[string]string{
		"id":     strconv.FormatUint(count, 10),
		"player": player,
	})
	return count, nil
}

// RecordMove counts one move on an active session.
func (s Solitaire) RecordMove(h Host, id uint64) (model.Game, error) {
	game, _, err := s.GameByID(h, id)
	if err != nil {
		return model.Game{}, err
	}
	if !game.IsActive {
		h.Log("Game is not active!")
		return model.Game{}, ErrGameNotActive
	}
	if err := h.RequireAuth(game.Player); err != nil {
		return model.Game{}, err
	}

	game.Moves++

	stats, err := s.GameStats(h)
	if err != nil {
		return model.Game{}, err
	}
	stats.TotalMoves++

	if err := s.save(h, game, stats); err != nil {
		return model.Game{}, err
	}
	s.extendLease(h)

	h.Log(fmt.Sprintf("Move recorded for Game ID: %d. Total moves: %d", id, game.Moves))
	h.Emit(EventMoveRecorded, map[string]string{
		"id":     strconv.FormatUint(id, 10),
		"player": game.Player,
		"moves":  strconv.FormatUint(game.Moves, 10),
	})
	return game, nil
}

// CompleteGame closes an active session as won or abandoned.
func (s Solitaire) CompleteGame(h Host, id uint64, won bool) (model.Game, error) {
	game, _, err := s.GameByID(h, id)
	if err != nil {
		return model.Game{}, err
	}
	if !game.IsActive {
		h.Log("Game is already completed!")
		return model.Game{}, ErrGameCompleted
	}
	if err := h.RequireAuth(game.Player); err != nil {
		return model.Game{}, err
	}

	game.IsActive = false
	game.IsWon = won
	game.EndTime = h.Timestamp()

	stats, err := s.GameStats(h)
	if err != nil {
		return model.Game{}, err
	}
	if stats.GamesInProgress > 0 {
		stats.GamesInProgress--
	}
	if won {
		stats.GamesWon++
	}

	if err := s.save(h, game, stats); err != nil {
		return model.Game{}, err
	}
	s.extendLease(h)

	if won {
		h.Log(fmt.Sprintf("Congratulations! Game ID: %d won in %d moves!", id, game.Moves))
	} else {
		h.Log(fmt.Sprintf("Game ID: %d ended with %d moves", id, game.Moves))
	}
	h.Emit(EventGameCompleted, map[string]string{
		"id":     strconv.FormatUint(id, 10),
		"player": game.Player,
		"moves":  strconv.FormatUint(game.Moves, 10),
		"won":    strconv.FormatBool(won),
	})
	return game, nil
}

// GameStats returns the aggregate, zeroed if nothing was ever stored.
func (s Solitaire) GameStats(h Host) (model.GameStats, error) {
	var stats model.GameStats
	if _, err := h.Get(statsKey, &stats); err != nil {
		return model.GameStats{}, fmt.Errorf("load game stats: %w", err)
	}
	return stats, nil
}

// GameByID returns the stored game. For unknown ids it returns
// SentinelGame and false.
func (s Solitaire) GameByID(h Host, id uint64) (model.Game, bool, error) {
	var game model.Game
	found, err := h.Get(gameKey(id), &game)
	if err != nil {
		return model.Game{}, false, fmt.Errorf("load game %d: %w", id, err)
	}
	if !found {
		return SentinelGame(), false, nil
	}
	return game, true, nil
}

func SentinelGame() model.Game {
	return model.Game{Player: SentinelPlayer}
}

func (s Solitaire) save(h Host, game model.Game, stats model.GameStats) error {
	if err := h.Set(gameKey(game.GameID), game); err != nil {
		return fmt.Errorf("store game %d: %w", game.GameID, err)
	}
	if err := h.Set(statsKey, stats); err != nil {
		return fmt.Errorf("store game stats: %w", err)
	}
	return nil
}
