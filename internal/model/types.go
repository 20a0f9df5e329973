package model

// GameStats is the contract-wide aggregate. The zero value is what a fresh
// instance reports.
type GameStats struct {
	TotalGames      uint64 `json:"total_games"`
	GamesWon        uint64 `json:"games_won"`
	GamesInProgress uint64 `json:"games_in_progress"`
	TotalMoves      uint64 `json:"total_moves"`
}

// Game is one solitaire session from start to completion.
type Game struct {
	GameID    uint64 `json:"game_id"`
	Player    string `json:"player"`
	Moves     uint64 `json:"moves"`
	StartTime uint64 `json:"start_time"`
	EndTime   uint64 `json:"end_time"`
	IsWon     bool   `json:"is_won"`
	IsActive  bool   `json:"is_active"`
}

type LedgerInfo struct {
	Sequence  uint32 `json:"sequence"`
	Timestamp uint64 `json:"timestamp"`
	LiveUntil uint32 `json:"liveUntil"`
	Archived  bool   `json:"archived"`
}
