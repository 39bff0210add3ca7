package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// ResultStore is the storage collaborator contract the engine consumes.
// DB implements it; tests stub it.
type ResultStore interface {
	PersistMatchResult(matchID string, winnerSlot, score1, score2 int, durationMs int64, settings RoomConfig) error
	RecordTournamentMatch(tournamentID, matchID string, round int, player1, player2, winner int64) error
	SaveTournament(id, name, status, tournamentType, gameType string, maxParticipants int, creatorID int64) error
	UpdateTournamentStatus(id, status string) error
	QueryOpenTournaments() ([]TournamentInfo, error)
}

// TournamentInfo is one row of the open-tournament listing
type TournamentInfo struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	Type            string    `json:"type"`
	GameType        string    `json:"gameType"`
	MaxParticipants int       `json:"maxParticipants"`
	CreatedAt       time.Time `json:"createdAt"`
	Joined          int       `json:"joined"` // filled from the live registry
}

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		winner_slot INTEGER NOT NULL DEFAULT 0,
		score1 INTEGER NOT NULL DEFAULT 0,
		score2 INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		settings TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tournaments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'registration',
		type TEXT NOT NULL DEFAULT 'single_elimination',
		game_type TEXT NOT NULL DEFAULT 'classic',
		max_participants INTEGER NOT NULL DEFAULT 8,
		creator_id INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tournament_matches (
		id TEXT PRIMARY KEY,
		tournament_id TEXT NOT NULL REFERENCES tournaments(id),
		round INTEGER NOT NULL,
		player1 INTEGER NOT NULL DEFAULT 0,
		player2 INTEGER NOT NULL DEFAULT 0,
		winner INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		user_id INTEGER NOT NULL DEFAULT 0,
		ref_id TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_tmatches_tournament ON tournament_matches(tournament_id);
	CREATE INDEX IF NOT EXISTS idx_tournaments_status ON tournaments(status);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// PersistMatchResult records a finished match's final score and settings
func (db *DB) PersistMatchResult(matchID string, winnerSlot, score1, score2 int, durationMs int64, settings RoomConfig) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		raw = []byte("{}")
	}
	_, err = db.conn.Exec(
		`INSERT INTO matches (id, winner_slot, score1, score2, duration_ms, settings)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		matchID, winnerSlot, score1, score2, durationMs, string(raw),
	)
	return err
}

// RecordTournamentMatch upserts one bracket match result
func (db *DB) RecordTournamentMatch(tournamentID, matchID string, round int, player1, player2, winner int64) error {
	_, err := db.conn.Exec(
		`INSERT INTO tournament_matches (id, tournament_id, round, player1, player2, winner)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET winner = excluded.winner`,
		matchID, tournamentID, round, player1, player2, winner,
	)
	return err
}

// SaveTournament records a new tournament
func (db *DB) SaveTournament(id, name, status, tournamentType, gameType string, maxParticipants int, creatorID int64) error {
	_, err := db.conn.Exec(
		`INSERT INTO tournaments (id, name, status, type, game_type, max_participants, creator_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, name, status, tournamentType, gameType, maxParticipants, creatorID,
	)
	return err
}

// UpdateTournamentStatus moves a tournament through its lifecycle
func (db *DB) UpdateTournamentStatus(id, status string) error {
	_, err := db.conn.Exec("UPDATE tournaments SET status = ? WHERE id = ?", status, id)
	return err
}

// QueryOpenTournaments lists tournaments still accepting players
func (db *DB) QueryOpenTournaments() ([]TournamentInfo, error) {
	rows, err := db.conn.Query(
		`SELECT id, name, status, type, game_type, max_participants, created_at
		 FROM tournaments WHERE status = 'registration'
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TournamentInfo
	for rows.Next() {
		var ti TournamentInfo
		if err := rows.Scan(&ti.ID, &ti.Name, &ti.Status, &ti.Type, &ti.GameType, &ti.MaxParticipants, &ti.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, ti)
	}
	return result, rows.Err()
}

// InsertEvent persists one analytics event (used by the background writer)
func (db *DB) InsertEvent(evt AnalyticsEvent) error {
	_, err := db.conn.Exec(
		"INSERT INTO events (type, user_id, ref_id, data, created_at) VALUES (?, ?, ?, ?, ?)",
		evt.Type, evt.UserID, evt.RefID, evt.Data, evt.Timestamp,
	)
	return err
}
