package main

import "encoding/json"

// Client -> Server message types
const (
	MsgAuth       = "auth"
	MsgPaddleMove = "paddle_move"
	MsgLeave      = "leave"
)

// Server -> Client message types
const (
	MsgGameState      = "game_state"  // full snapshot on join
	MsgGameUpdate     = "game_update" // per-tick snapshot while active
	MsgCountdown      = "countdown"
	MsgGameStarted    = "game_started"
	MsgRoundPause     = "round_pause"
	MsgGameEnded      = "game_ended"
	MsgAuthOK         = "auth_ok"
	MsgError          = "error"
	MsgMatchFound     = "match_found"     // matchmaking pairing result
	MsgTournamentPlay = "tournament_match_ready"

	MsgPowerUpSpawned     = "powerup_spawned"
	MsgPowerUpCollected   = "powerup_collected"
	MsgPowerUpExpired     = "powerup_expired"
	MsgPowerUpEnded       = "powerup_ended"
	MsgExtraBallSpawned   = "extra_ball_spawned"
	MsgExtraBallRemoved   = "extra_ball_removed"
	MsgPaddleSpeedChanged = "paddle_speed_changed"
	MsgPaddleSizeChanged  = "paddle_size_changed"
)

// WebSocket close code for failed/missing authentication
const CloseAuthFailed = 4401

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// AuthMsg must be the first frame on a connection. Binary asks for
// msgpack-encoded game_update frames instead of JSON.
type AuthMsg struct {
	Token  string `json:"token"`
	Binary bool   `json:"binary,omitempty"`
}

// AuthOKMsg confirms authentication
type AuthOKMsg struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Slot     int    `json:"slot"` // 0 = spectator
}

// PaddleMoveMsg carries directional input. In non-private rooms only the
// slot bound to the authenticated connection is honored.
type PaddleMoveMsg struct {
	Player1 *DirectionMsg `json:"player1,omitempty"`
	Player2 *DirectionMsg `json:"player2,omitempty"`
}

// DirectionMsg holds one paddle's direction: up, down or stop
type DirectionMsg struct {
	Direction string `json:"direction"`
}

// CountdownMsg is emitted once per second before the match starts
type CountdownMsg struct {
	Number int `json:"number"`
}

// BallState mirrors Ball on the wire
type BallState struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	DX    float64 `json:"dx"`
	DY    float64 `json:"dy"`
	Owner int     `json:"owner,omitempty"`
}

// PaddleState mirrors Paddle on the wire
type PaddleState struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Speed float64 `json:"speed"`
}

// PickupState is a spawned, uncollected power-up
type PickupState struct {
	ID   string  `json:"id"`
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
}

// EffectState is an active power-up effect
type EffectState struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Player    int     `json:"player"`
	Remaining float64 `json:"remaining"` // seconds, -1 when unbounded
}

// Snapshot is the full match state broadcast as game_state / game_update
type Snapshot struct {
	RoomID     string        `json:"roomId"`
	Status     string        `json:"status"`
	Tick       uint64        `json:"tick"`
	Score1     int           `json:"score1"`
	Score2     int           `json:"score2"`
	Ball       BallState     `json:"ball"`
	ExtraBalls []BallState   `json:"extraBalls,omitempty"`
	Paddle1    PaddleState   `json:"paddle1"`
	Paddle2    PaddleState   `json:"paddle2"`
	Pickups    []PickupState `json:"pickups,omitempty"`
	Effects    []EffectState `json:"effects,omitempty"`
	Player1    string        `json:"player1"`
	Player2    string        `json:"player2"`
	CanvasW    float64       `json:"canvasWidth"`
	CanvasH    float64       `json:"canvasHeight"`
}

// PowerUpCollectedMsg names the collecting player
type PowerUpCollectedMsg struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Player int    `json:"playerId"`
}

// IDMsg carries just an object id (powerup_expired, powerup_ended, extra_ball_removed)
type IDMsg struct {
	ID string `json:"id"`
}

// PaddleChangedMsg reports a paddle's new state after a power-up applied or expired
type PaddleChangedMsg struct {
	Player int         `json:"player"`
	Paddle PaddleState `json:"paddle"`
}

// GameEndedMsg is the terminal event
type GameEndedMsg struct {
	Winner     int    `json:"winner"`
	WinnerName string `json:"winnerName"`
	Score1     int    `json:"score1"`
	Score2     int    `json:"score2"`
	Reason     string `json:"reason"` // "score" or "forfeit"
}

// MatchFoundMsg notifies a queued player of their pairing
type MatchFoundMsg struct {
	RoomID   string `json:"roomId"`
	GameType string `json:"gameType"`
	Opponent string `json:"opponent"`
}

// TournamentPlayMsg tells a participant their bracket match is ready.
// RoomID is empty for local-mode tournaments.
type TournamentPlayMsg struct {
	TournamentID string `json:"tournamentId"`
	MatchID      string `json:"matchId"`
	Round        int    `json:"round"`
	RoomID       string `json:"roomId,omitempty"`
	Opponent     string `json:"opponent"`
}

// ErrorMsg sends an error to the client
type ErrorMsg struct {
	Msg string `json:"msg"`
}
