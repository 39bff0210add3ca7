package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	TickRate     = 60 // physics ticks per second
	TickDuration = time.Second / TickRate

	CountdownSeconds   = 3
	ServePauseDuration = 1200 * time.Millisecond

	DefaultPointsToWin = 5
	MaxPointsToWin     = 21
	DefaultCanvasW     = 800
	DefaultCanvasH     = 600
)

// RoomStatus is the match lifecycle state
type RoomStatus string

const (
	StatusWaiting   RoomStatus = "waiting"
	StatusCountdown RoomStatus = "countdown"
	StatusActive    RoomStatus = "active"
	StatusPaused    RoomStatus = "paused"
	StatusFinished  RoomStatus = "finished"
	StatusAbandoned RoomStatus = "abandoned"
)

func (s RoomStatus) Terminal() bool {
	return s == StatusFinished || s == StatusAbandoned
}

// Direction is a paddle movement command
type Direction int

const (
	DirStop Direction = 0
	DirUp   Direction = -1
	DirDown Direction = 1
)

// ParseDirection maps a wire direction to a Direction. Anything
// unrecognized means stop.
func ParseDirection(s string) Direction {
	switch s {
	case "up":
		return DirUp
	case "down":
		return DirDown
	default:
		return DirStop
	}
}

// RoomConfig is the match creation request payload
type RoomConfig struct {
	IsPrivate       bool    `json:"is_private"`
	MaxPlayers      int     `json:"max_players"`
	PowerUpsEnabled bool    `json:"power_ups_enabled"`
	MapVariant      string  `json:"map_variant"`
	PointsToWin     int     `json:"points_to_win"`
	OpponentAlias   string  `json:"opponent_alias,omitempty"`
	CanvasWidth     float64 `json:"canvasWidth"`
	CanvasHeight    float64 `json:"canvasHeight"`
}

// Validate fills defaults and rejects out-of-range settings
func (c *RoomConfig) Validate() error {
	if c.MaxPlayers == 0 {
		c.MaxPlayers = 2
	}
	if c.MaxPlayers != 2 {
		return fmt.Errorf("max_players must be 2")
	}
	if c.PointsToWin == 0 {
		c.PointsToWin = DefaultPointsToWin
	}
	if c.PointsToWin < 1 || c.PointsToWin > MaxPointsToWin {
		return fmt.Errorf("points_to_win must be 1-%d", MaxPointsToWin)
	}
	if c.MapVariant == "" {
		c.MapVariant = "classic"
	}
	if c.CanvasWidth == 0 {
		c.CanvasWidth = DefaultCanvasW
	}
	if c.CanvasHeight == 0 {
		c.CanvasHeight = DefaultCanvasH
	}
	if c.CanvasWidth < 200 || c.CanvasWidth > 4096 || c.CanvasHeight < 150 || c.CanvasHeight > 4096 {
		return fmt.Errorf("canvas dimensions out of range")
	}
	return nil
}

// SlotInfo identifies who drives a paddle slot
type SlotInfo struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
}

// Broadcaster receives room output. Implemented by Client; tests use mocks.
type Broadcaster interface {
	SendJSON(msg interface{})
	SendRaw(data []byte)
	SendBinary(data []byte)
	WantsBinary() bool
}

// Room owns one match's authoritative state. The tick loop is the single
// writer; inbound input and connection changes take the same mutex and so
// land on tick boundaries, never mid-tick.
type Room struct {
	mu sync.Mutex

	ID     string
	Config RoomConfig

	court      Court
	status     RoomStatus
	tick       uint64
	score      [2]int
	slots      [2]SlotInfo
	connected  [2]bool
	paddles    [2]*Paddle
	ball       *Ball
	extraBalls []*Ball
	inputs     [2]Direction
	powerups   *PowerUpEngine

	clients map[Broadcaster]int64 // broadcaster -> userID (0 = guest/spectator)

	sched     *Scheduler
	rng       *rand.Rand
	store     ResultStore
	analytics *Analytics
	startedAt time.Time

	// onClose tells the owning registry the room reached a terminal state.
	onClose func(roomID string)
	// onResult reports the winner to a tournament, when this room realizes
	// a bracket match.
	onResult func(winnerSlot int, winnerID int64)
}

// NewRoom validates config and builds a room in waiting state: paddles
// centered, primary ball centered at rest, score 0-0.
func NewRoom(cfg RoomConfig, store ResultStore, analytics *Analytics) (*Room, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	court := Court{W: cfg.CanvasWidth, H: cfg.CanvasHeight}
	inset := PaddleInsetFrac * court.W
	pw := court.PaddleWidth()
	ph := court.PaddleHeight()
	py := (court.H - ph) / 2

	r := &Room{
		ID:     GenerateUUID(),
		Config: cfg,
		court:  court,
		status: StatusWaiting,
		paddles: [2]*Paddle{
			{X: inset, Y: py, W: pw, H: ph, Speed: court.PaddleSpeed()},
			{X: court.W - inset - pw, Y: py, W: pw, H: ph, Speed: court.PaddleSpeed()},
		},
		ball:      &Ball{ID: GenerateID(3), X: court.W / 2, Y: court.H / 2},
		clients:   make(map[Broadcaster]int64),
		sched:     NewScheduler(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		store:     store,
		analytics: analytics,
	}
	if cfg.PowerUpsEnabled {
		r.powerups = NewPowerUpEngine(r.rng)
	}
	if cfg.IsPrivate {
		alias := cfg.OpponentAlias
		if alias == "" {
			alias = "Player 2"
		}
		r.slots[1] = SlotInfo{Name: alias}
	}
	return r, nil
}

// Status returns the current lifecycle state
func (r *Room) Status() RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Score returns the current score pair
func (r *Room) Score() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.score[0], r.score[1]
}

// AddPlayer assigns the next free slot to a user. In private rooms only
// slot 1 is assignable; slot 2 is the local alias.
func (r *Room) AddPlayer(userID int64, name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusWaiting {
		return 0, fmt.Errorf("match already started")
	}
	for i := range r.slots {
		if r.slots[i].UserID == userID && userID != 0 && r.slots[i].Name != "" {
			return 0, fmt.Errorf("already joined")
		}
	}
	if r.slots[0].Name == "" {
		r.slots[0] = SlotInfo{UserID: userID, Name: name}
		return 1, nil
	}
	if r.Config.IsPrivate {
		return 0, fmt.Errorf("private match is full")
	}
	if r.slots[1].Name == "" {
		r.slots[1] = SlotInfo{UserID: userID, Name: name}
		return 2, nil
	}
	return 0, fmt.Errorf("match is full")
}

// Attach binds an authenticated connection to the room. Users occupying a
// slot get that slot; everyone else watches as a spectator. The full
// game_state snapshot is sent immediately. When the required players are
// connected a waiting room starts its countdown.
func (r *Room) Attach(c Broadcaster, userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[c] = userID
	slot := 0
	for i := range r.slots {
		if r.slots[i].UserID == userID && userID != 0 {
			slot = i + 1
			r.connected[i] = true
			break
		}
	}

	c.SendJSON(Envelope{T: MsgGameState, Data: r.snapshot()})

	if r.status == StatusWaiting && r.ready() {
		r.startCountdown()
	}
	return slot
}

// ready reports whether every required connection is present
func (r *Room) ready() bool {
	if r.Config.IsPrivate {
		return r.connected[0]
	}
	return r.slots[0].Name != "" && r.slots[1].Name != "" && r.connected[0] && r.connected[1]
}

// Detach removes a connection. In non-private matches losing a slot's
// connection mid-match forfeits: the remaining player wins immediately,
// even during the countdown.
func (r *Room) Detach(c Broadcaster) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.clients[c]
	if !ok {
		return
	}
	delete(r.clients, c)

	slot := 0
	for i := range r.slots {
		if r.slots[i].UserID == userID && userID != 0 {
			slot = i + 1
			r.connected[i] = false
		}
	}

	if r.Config.IsPrivate || slot == 0 || r.status.Terminal() {
		if len(r.clients) == 0 && r.status.Terminal() {
			return
		}
		if r.Config.IsPrivate && slot == 1 && !r.status.Terminal() && r.status != StatusWaiting {
			// Sole driver gone: nobody can win a private match, close it out
			r.terminate(0, StatusAbandoned, "forfeit")
		}
		return
	}

	switch r.status {
	case StatusCountdown, StatusActive, StatusPaused:
		r.terminate(3-slot, StatusAbandoned, "forfeit")
	}
}

// ApplyMove buffers directional input. Only the latest direction per slot
// is honored each tick. viaSlot is the connection's own slot; in
// non-private rooms input for the other paddle is dropped.
func (r *Room) ApplyMove(viaSlot int, msg PaddleMoveMsg) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Config.IsPrivate {
		if msg.Player1 != nil {
			r.inputs[0] = ParseDirection(msg.Player1.Direction)
		}
		if msg.Player2 != nil {
			r.inputs[1] = ParseDirection(msg.Player2.Direction)
		}
		return
	}
	switch viaSlot {
	case 1:
		if msg.Player1 != nil {
			r.inputs[0] = ParseDirection(msg.Player1.Direction)
		}
	case 2:
		if msg.Player2 != nil {
			r.inputs[1] = ParseDirection(msg.Player2.Direction)
		}
	}
}

// SetResultHook registers a tournament callback fired once with the winner
func (r *Room) SetResultHook(fn func(winnerSlot int, winnerID int64)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onResult = fn
}

// startCountdown moves waiting -> countdown and emits 3-2-1, one per
// second, then activates. Caller holds r.mu.
func (r *Room) startCountdown() {
	r.status = StatusCountdown
	count := CountdownSeconds
	r.emit(MsgCountdown, CountdownMsg{Number: count})

	var cancel func()
	cancel = r.sched.Every(time.Second, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.status != StatusCountdown {
			cancel()
			return
		}
		count--
		if count > 0 {
			r.emit(MsgCountdown, CountdownMsg{Number: count})
			return
		}
		cancel()
		r.activate()
	})
}

// activate starts the fixed-rate loop. Caller holds r.mu.
func (r *Room) activate() {
	r.status = StatusActive
	r.startedAt = time.Now()
	r.serve(1 + r.rng.Intn(2))
	r.emit(MsgGameStarted, nil)
	r.analytics.Track(EvtMatchStart, r.slots[0].UserID, r.ID, "")

	r.sched.Every(TickDuration, r.update)
}

// serve centers the ball and launches it toward the conceding side at a
// random angle between 15 and 45 degrees. Caller holds r.mu.
func (r *Room) serve(conceder int) {
	angle := ServeAngleMin + r.rng.Float64()*(ServeAngleMax-ServeAngleMin)
	if r.rng.Intn(2) == 0 {
		angle = -angle
	}
	speed := BallBaseSpeed * r.court.W
	dir := 1.0
	if conceder == 1 {
		dir = -1.0
	}
	r.ball.X = r.court.W / 2
	r.ball.Y = r.court.H / 2
	r.ball.DX = math.Cos(angle) * speed * dir
	r.ball.DY = math.Sin(angle) * speed
	r.status = StatusActive
}

// update runs one 60 Hz tick: inputs, integration, collisions, power-ups,
// goal detection, broadcast. Everything here is plain arithmetic over
// validated state; nothing can panic.
func (r *Room) update() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusActive {
		return
	}
	dt := 1.0 / float64(TickRate)
	r.tick++

	// Paddles
	for i, p := range r.paddles {
		p.Y += float64(r.inputs[i]) * p.Speed * dt
		p.Y = Clamp(p.Y, 0, r.court.H-p.H)
	}

	// Balls
	radius := r.court.BallRadius()
	for _, b := range r.allBalls() {
		IntegrateBall(b, dt)
		ReflectOffWalls(b, radius, r.court)
		for i, p := range r.paddles {
			PaddleCollision(b, p, i+1, radius, r.court)
		}
	}

	if r.powerups != nil {
		r.powerups.Update(r, dt)
	}

	r.detectGoals()
	if r.status != StatusActive {
		return
	}

	r.broadcastSnapshot(MsgGameUpdate)
}

// allBalls returns the primary ball plus extras
func (r *Room) allBalls() []*Ball {
	balls := make([]*Ball, 0, 1+len(r.extraBalls))
	balls = append(balls, r.ball)
	balls = append(balls, r.extraBalls...)
	return balls
}

// detectGoals checks every ball against the goal lines. The primary ball is
// judged first; a tick scores at most one point since everything resets on
// a goal. An extra ball crossing on its owner's side awards nobody and is
// simply removed. Caller holds r.mu.
func (r *Room) detectGoals() {
	if res := DetectGoal(r.ball, r.court); res.Crossed {
		r.onGoal(res.Scorer)
		return
	}
	for i := 0; i < len(r.extraBalls); i++ {
		b := r.extraBalls[i]
		res := DetectGoal(b, r.court)
		if !res.Crossed {
			continue
		}
		if res.Scorer != 0 {
			r.onGoal(res.Scorer)
			return
		}
		r.removeExtraBall(b.ID)
		i--
	}
}

// removeExtraBall drops one extra ball and announces it. Caller holds r.mu.
func (r *Room) removeExtraBall(id string) {
	for i, b := range r.extraBalls {
		if b.ID == id {
			r.extraBalls = append(r.extraBalls[:i], r.extraBalls[i+1:]...)
			r.emit(MsgExtraBallRemoved, IDMsg{ID: id})
			return
		}
	}
}

// onGoal applies a score: pause, clear all power-ups and extra balls, reset
// paddles, then either finish or schedule the next serve. Caller holds r.mu.
func (r *Room) onGoal(scorer int) {
	if scorer != 0 {
		r.score[scorer-1]++
	}
	if r.powerups != nil {
		r.powerups.ClearAll(r)
	}
	for len(r.extraBalls) > 0 {
		r.removeExtraBall(r.extraBalls[0].ID)
	}
	r.resetPaddles()
	r.ball.X = r.court.W / 2
	r.ball.Y = r.court.H / 2
	r.ball.DX = 0
	r.ball.DY = 0

	if scorer != 0 && r.score[scorer-1] >= r.Config.PointsToWin {
		r.terminate(scorer, StatusFinished, "score")
		return
	}

	r.status = StatusPaused
	r.emit(MsgRoundPause, nil)
	r.broadcastSnapshot(MsgGameState)

	conceder := 3 - scorer
	if scorer == 0 {
		conceder = 1 + r.rng.Intn(2)
	}
	r.sched.After(ServePauseDuration, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.status != StatusPaused {
			return
		}
		r.serve(conceder)
	})
}

// resetPaddles restores default size, speed and position. Caller holds r.mu.
func (r *Room) resetPaddles() {
	ph := r.court.PaddleHeight()
	py := (r.court.H - ph) / 2
	for _, p := range r.paddles {
		p.Y = py
		p.H = ph
		p.Speed = r.court.PaddleSpeed()
	}
}

// terminate ends the match, persists the result and emits game_ended.
// winner 0 means nobody (private match abandoned). Caller holds r.mu.
func (r *Room) terminate(winner int, status RoomStatus, reason string) {
	if r.status.Terminal() {
		return
	}
	r.status = status
	r.sched.Stop()

	var durationMs int64
	if !r.startedAt.IsZero() {
		durationMs = time.Since(r.startedAt).Milliseconds()
	}

	winnerName := ""
	var winnerID int64
	if winner != 0 {
		winnerName = r.slots[winner-1].Name
		winnerID = r.slots[winner-1].UserID
	}

	if r.store != nil {
		err := r.store.PersistMatchResult(r.ID, winner, r.score[0], r.score[1], durationMs, r.Config)
		if err != nil {
			log.Printf("room %s: persist result: %v", r.ID, err)
		}
	}
	r.analytics.Track(EvtMatchEnd, winnerID, r.ID, reason)

	r.emit(MsgGameEnded, GameEndedMsg{
		Winner:     winner,
		WinnerName: winnerName,
		Score1:     r.score[0],
		Score2:     r.score[1],
		Reason:     reason,
	})

	if r.onResult != nil {
		hook := r.onResult
		r.onResult = nil
		go hook(winner, winnerID)
	}
	if r.onClose != nil {
		go r.onClose(r.ID)
	}
}

// snapshot builds the full wire state. Caller holds r.mu.
func (r *Room) snapshot() Snapshot {
	snap := Snapshot{
		RoomID:  r.ID,
		Status:  string(r.status),
		Tick:    r.tick,
		Score1:  r.score[0],
		Score2:  r.score[1],
		Ball:    ballState(r.ball),
		Paddle1: paddleState(r.paddles[0]),
		Paddle2: paddleState(r.paddles[1]),
		Player1: r.slots[0].Name,
		Player2: r.slots[1].Name,
		CanvasW: r.court.W,
		CanvasH: r.court.H,
	}
	for _, b := range r.extraBalls {
		snap.ExtraBalls = append(snap.ExtraBalls, ballState(b))
	}
	if r.powerups != nil {
		snap.Pickups = r.powerups.PickupStates()
		snap.Effects = r.powerups.EffectStates()
	}
	return snap
}

func ballState(b *Ball) BallState {
	return BallState{ID: b.ID, X: round1(b.X), Y: round1(b.Y), DX: round1(b.DX), DY: round1(b.DY), Owner: b.Owner}
}

func paddleState(p *Paddle) PaddleState {
	return PaddleState{X: round1(p.X), Y: round1(p.Y), W: round1(p.W), H: round1(p.H), Speed: round1(p.Speed)}
}

// broadcastSnapshot marshals the snapshot once per encoding and fans it
// out. Slow clients drop frames rather than stalling the tick. Caller
// holds r.mu.
func (r *Room) broadcastSnapshot(msgType string) {
	snap := r.snapshot()
	data, err := json.Marshal(Envelope{T: msgType, Data: snap})
	if err != nil {
		return
	}
	var packed []byte
	for client := range r.clients {
		if client.WantsBinary() && msgType == MsgGameUpdate {
			if packed == nil {
				packed, err = msgpack.Marshal(snap)
				if err != nil {
					log.Printf("room %s: msgpack: %v", r.ID, err)
					packed = []byte{}
				}
			}
			if len(packed) > 0 {
				client.SendBinary(packed)
				continue
			}
		}
		client.SendRaw(data)
	}
}

// emit sends a discrete event to every client. Caller holds r.mu.
func (r *Room) emit(msgType string, data interface{}) {
	payload, err := json.Marshal(Envelope{T: msgType, Data: data})
	if err != nil {
		return
	}
	for client := range r.clients {
		client.SendRaw(payload)
	}
}
