// Package stats persists lifetime player results in SQLite via sqlx.
// The store lives entirely outside the game loop; a failed write is
// logged and never blocks a room.
package stats

import (
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/saboteurs-game/backend/internal/models"
)

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS player_stats (
	name TEXT PRIMARY KEY,
	games INTEGER NOT NULL DEFAULT 0,
	wins INTEGER NOT NULL DEFAULT 0,
	losses INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS role_stats (
	name TEXT NOT NULL,
	role TEXT NOT NULL,
	games INTEGER NOT NULL DEFAULT 0,
	wins INTEGER NOT NULL DEFAULT 0,
	UNIQUE(name, role)
);
CREATE TABLE IF NOT EXISTS match_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	room_code TEXT NOT NULL,
	winner TEXT NOT NULL,
	players INTEGER NOT NULL,
	days INTEGER NOT NULL,
	finished_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// PlayerStats is one player's lifetime record
type PlayerStats struct {
	Name   string `db:"name" json:"name"`
	Games  int    `db:"games" json:"games"`
	Wins   int    `db:"wins" json:"wins"`
	Losses int    `db:"losses" json:"losses"`
}

// RoleStats is one player's record with a specific role
type RoleStats struct {
	Name  string `db:"name" json:"name"`
	Role  string `db:"role" json:"role"`
	Games int    `db:"games" json:"games"`
	Wins  int    `db:"wins" json:"wins"`
}

// Match is one finished game
type Match struct {
	ID         int64  `db:"id" json:"id"`
	RoomCode   string `db:"room_code" json:"roomCode"`
	Winner     string `db:"winner" json:"winner"`
	Players    int    `db:"players" json:"players"`
	Days       int    `db:"days" json:"days"`
	FinishedAt string `db:"finished_at" json:"finishedAt"`
}

// Store wraps the stats database. Safe for concurrent use; sqlx's pool
// serializes writers for SQLite.
type Store struct {
	db         *sqlx.DB
	historyCap int
	logger     zerolog.Logger
}

// Open connects to the SQLite file at path (":memory:" works for
// tests), creates the schema and returns the store. historyCap bounds
// match_history; 0 keeps everything.
func Open(path string, historyCap int, logger zerolog.Logger) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info().Str("path", path).Msg("stats database ready")
	return &Store{db: db, historyCap: historyCap, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordGameResult bumps the lifetime and per-role counters for one
// player. Outcome is "win" or "loss".
func (s *Store) RecordGameResult(name string, role models.Role, outcome string) error {
	won := 0
	if outcome == "win" {
		won = 1
	}
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO player_stats (name, games, wins, losses)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			games = games + 1,
			wins = wins + excluded.wins,
			losses = losses + excluded.losses`,
		name, won, 1-won); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO role_stats (name, role, games, wins)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(name, role) DO UPDATE SET
			games = games + 1,
			wins = wins + excluded.wins`,
		name, string(role), won); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordMatch appends one finished game to the history, trimming the
// oldest rows past the cap
func (s *Store) RecordMatch(roomCode string, winner models.Winner, players, days int) error {
	if _, err := s.db.Exec(`
		INSERT INTO match_history (room_code, winner, players, days)
		VALUES (?, ?, ?, ?)`,
		roomCode, string(winner), players, days); err != nil {
		return err
	}
	if s.historyCap > 0 {
		if _, err := s.db.Exec(`
			DELETE FROM match_history WHERE id NOT IN (
				SELECT id FROM match_history ORDER BY id DESC LIMIT ?)`,
			s.historyCap); err != nil {
			return err
		}
	}
	return nil
}

// PlayerStats looks up one player's lifetime record. A player with no
// recorded games gets a zeroed row, not an error.
func (s *Store) PlayerStats(name string) (PlayerStats, error) {
	var ps PlayerStats
	err := s.db.Get(&ps, `SELECT name, games, wins, losses FROM player_stats WHERE name = ?`, name)
	if err != nil {
		return PlayerStats{Name: name}, nil
	}
	return ps, nil
}

// RoleStats lists one player's per-role records
func (s *Store) RoleStats(name string) ([]RoleStats, error) {
	var rs []RoleStats
	err := s.db.Select(&rs, `
		SELECT name, role, games, wins FROM role_stats
		WHERE name = ? ORDER BY games DESC, role`, name)
	return rs, err
}

// Leaderboard returns the top players by wins
func (s *Store) Leaderboard(limit int) ([]PlayerStats, error) {
	var ps []PlayerStats
	err := s.db.Select(&ps, `
		SELECT name, games, wins, losses FROM player_stats
		ORDER BY wins DESC, games ASC, name LIMIT ?`, limit)
	return ps, err
}

// RecentMatches returns the newest finished games first
func (s *Store) RecentMatches(limit int) ([]Match, error) {
	var ms []Match
	err := s.db.Select(&ms, `
		SELECT id, room_code, winner, players, days, finished_at
		FROM match_history ORDER BY id DESC LIMIT ?`, limit)
	return ms, err
}
