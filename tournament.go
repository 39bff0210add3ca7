package main

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"
)

// TournamentStatus is the tournament lifecycle state
type TournamentStatus string

const (
	TStatusRegistration TournamentStatus = "registration"
	TStatusInProgress   TournamentStatus = "in_progress"
	TStatusCompleted    TournamentStatus = "completed"
)

const (
	MinTournamentPlayers = 2
	MaxTournamentPlayers = 32
)

// Participant is one registered player, in seed order once started
type Participant struct {
	UserID int64  `json:"userId"`
	Alias  string `json:"alias"`
}

// Tournament is a bracket of matches advanced round by round. All state
// transitions for one tournament serialize on its mutex; different
// tournaments are independent.
type Tournament struct {
	mu sync.Mutex

	ID              string
	Name            string
	CreatorID       int64
	Type            string // bracket type tag, "single_elimination"
	GameType        string
	Local           bool // local-mode matches are played client-side
	MaxParticipants int
	Settings        RoomConfig

	status       TournamentStatus
	participants []Participant
	totalRounds  int
	currentRound int
	matches      []*TournamentMatch
	champion     int64
	eliminatedAt map[int64]int // userID -> round knocked out

	bracket    Bracket
	rng        *rand.Rand
	rooms      *RoomManager
	notifier   Notifier
	store      ResultStore
	analytics  *Analytics
	matchRooms map[string]string // matchID -> roomID (online mode)

	// onClose tells the owning registry the tournament completed.
	onClose func(id string)
}

// TournamentRequest is the creation payload
type TournamentRequest struct {
	Name            string     `json:"name"`
	MaxParticipants int        `json:"max_participants"`
	TournamentType  string     `json:"tournament_type"`
	GameType        string     `json:"game_type"`
	Local           bool       `json:"local,omitempty"`
	Settings        RoomConfig `json:"settings"`
}

// NewTournament validates the request and opens registration
func NewTournament(req TournamentRequest, creatorID int64, rooms *RoomManager, notifier Notifier, store ResultStore, analytics *Analytics) (*Tournament, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name required")
	}
	if req.MaxParticipants == 0 {
		req.MaxParticipants = 8
	}
	if req.MaxParticipants < MinTournamentPlayers || req.MaxParticipants > MaxTournamentPlayers {
		return nil, fmt.Errorf("max_participants must be %d-%d", MinTournamentPlayers, MaxTournamentPlayers)
	}
	if req.TournamentType == "" {
		req.TournamentType = "single_elimination"
	}
	if req.TournamentType != "single_elimination" {
		return nil, fmt.Errorf("unknown tournament type %q", req.TournamentType)
	}
	if req.GameType == "" {
		req.GameType = "classic"
	}

	t := &Tournament{
		ID:              GenerateUUID(),
		Name:            req.Name,
		CreatorID:       creatorID,
		Type:            req.TournamentType,
		GameType:        req.GameType,
		Local:           req.Local,
		MaxParticipants: req.MaxParticipants,
		Settings:        req.Settings,
		status:          TStatusRegistration,
		eliminatedAt:    make(map[int64]int),
		bracket:         SingleElimination{},
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		rooms:           rooms,
		notifier:        notifier,
		store:           store,
		analytics:       analytics,
		matchRooms:      make(map[string]string),
	}
	return t, nil
}

// Status returns the lifecycle state
func (t *Tournament) Status() TournamentStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Champion returns the winner's user id once completed
func (t *Tournament) Champion() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.champion
}

// CurrentRound returns the round being played
func (t *Tournament) CurrentRound() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentRound
}

// TotalRounds returns ceil(log2(participants)) once started
func (t *Tournament) TotalRounds() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalRounds
}

// ParticipantCount returns the number of registered players
func (t *Tournament) ParticipantCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.participants)
}

// AddParticipant registers a player. Rejected once registration closed,
// capacity is reached, or for a duplicate user.
func (t *Tournament) AddParticipant(userID int64, alias string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != TStatusRegistration {
		return fmt.Errorf("registration closed")
	}
	if len(t.participants) >= t.MaxParticipants {
		return fmt.Errorf("tournament is full")
	}
	for _, p := range t.participants {
		if p.UserID == userID {
			return fmt.Errorf("already registered")
		}
	}
	if alias == "" {
		alias = fmt.Sprintf("Player %d", len(t.participants)+1)
	}
	t.participants = append(t.participants, Participant{UserID: userID, Alias: alias})
	return nil
}

// Start closes registration, shuffles the seed order and builds round 1.
// Only the creator may start; at least two participants are required.
func (t *Tournament) Start(byUserID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if byUserID != t.CreatorID {
		return fmt.Errorf("only the creator can start the tournament")
	}
	if t.status != TStatusRegistration {
		return fmt.Errorf("tournament already started")
	}
	if len(t.participants) < MinTournamentPlayers {
		return fmt.Errorf("need at least %d participants", MinTournamentPlayers)
	}

	t.rng.Shuffle(len(t.participants), func(i, j int) {
		t.participants[i], t.participants[j] = t.participants[j], t.participants[i]
	})

	t.totalRounds = t.bracket.TotalRounds(len(t.participants))
	t.currentRound = 1
	t.status = TStatusInProgress

	ids := make([]int64, len(t.participants))
	for i, p := range t.participants {
		ids[i] = p.UserID
	}
	round := t.bracket.PairRound(1, ids)
	t.matches = append(t.matches, round...)
	t.persistByes(round)

	t.analytics.Track(EvtTournamentStart, t.CreatorID, t.ID, t.GameType)
	if t.store != nil {
		if err := t.store.UpdateTournamentStatus(t.ID, string(t.status)); err != nil {
			log.Printf("tournament %s: persist status: %v", t.ID, err)
		}
	}
	t.launchRoundLocked()
	return nil
}

// RecordMatchResult marks a match completed with the declared winner,
// eliminates the loser at the current round and, when the round is done,
// advances the bracket as a side effect.
func (t *Tournament) RecordMatchResult(matchID string, winnerID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != TStatusInProgress {
		return fmt.Errorf("tournament not in progress")
	}
	var match *TournamentMatch
	for _, m := range t.matches {
		if m.ID == matchID {
			match = m
			break
		}
	}
	if match == nil {
		return fmt.Errorf("match not found")
	}
	if match.Status == TMatchCompleted {
		return fmt.Errorf("match already completed")
	}
	if winnerID != match.Player1 && winnerID != match.Player2 {
		return fmt.Errorf("winner is not a participant of this match")
	}

	match.Winner = winnerID
	match.Status = TMatchCompleted
	loser := match.Player1
	if loser == winnerID {
		loser = match.Player2
	}
	if loser != 0 {
		t.eliminatedAt[loser] = t.currentRound
	}
	if t.store != nil {
		err := t.store.RecordTournamentMatch(t.ID, match.ID, match.Round, match.Player1, match.Player2, match.Winner)
		if err != nil {
			log.Printf("tournament %s: record match: %v", t.ID, err)
		}
	}

	if t.roundCompleteLocked() {
		t.advanceLocked()
	}
	return nil
}

// ReportMatchResult records a result on behalf of a player. Only a
// participant of the match may report; this is the intake for local-mode
// matches, which are simulated client-side.
func (t *Tournament) ReportMatchResult(matchID string, byUserID, winnerID int64) error {
	t.mu.Lock()
	var match *TournamentMatch
	for _, m := range t.matches {
		if m.ID == matchID {
			match = m
			break
		}
	}
	if match == nil {
		t.mu.Unlock()
		return fmt.Errorf("match not found")
	}
	if byUserID != match.Player1 && byUserID != match.Player2 {
		t.mu.Unlock()
		return fmt.Errorf("only a player of this match may report its result")
	}
	t.mu.Unlock()
	return t.RecordMatchResult(matchID, winnerID)
}

// AdvanceRound moves to the next round. Permitted only once every match in
// the current round is completed.
func (t *Tournament) AdvanceRound() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != TStatusInProgress {
		return fmt.Errorf("tournament not in progress")
	}
	if !t.roundCompleteLocked() {
		return fmt.Errorf("round %d still has unfinished matches", t.currentRound)
	}
	t.advanceLocked()
	return nil
}

func (t *Tournament) roundCompleteLocked() bool {
	for _, m := range t.matches {
		if m.Round == t.currentRound && m.Status != TMatchCompleted {
			return false
		}
	}
	return true
}

// advanceLocked pairs the current round's winners into the next round, or
// crowns the champion after the final. Caller holds t.mu.
func (t *Tournament) advanceLocked() {
	var winners []int64
	for _, m := range t.matches {
		if m.Round == t.currentRound {
			winners = append(winners, m.Winner)
		}
	}

	if t.currentRound >= t.totalRounds || len(winners) < 2 {
		t.status = TStatusCompleted
		if len(winners) > 0 {
			t.champion = winners[0]
		}
		t.analytics.Track(EvtTournamentEnd, t.champion, t.ID, "")
		if t.store != nil {
			if err := t.store.UpdateTournamentStatus(t.ID, string(t.status)); err != nil {
				log.Printf("tournament %s: persist status: %v", t.ID, err)
			}
		}
		if t.onClose != nil {
			go t.onClose(t.ID)
		}
		return
	}

	t.currentRound++
	round := t.bracket.PairRound(t.currentRound, winners)
	t.matches = append(t.matches, round...)
	t.persistByes(round)
	t.launchRoundLocked()
}

// persistByes records auto-completed bye matches immediately
func (t *Tournament) persistByes(round []*TournamentMatch) {
	if t.store == nil {
		return
	}
	for _, m := range round {
		if m.Status == TMatchCompleted {
			err := t.store.RecordTournamentMatch(t.ID, m.ID, m.Round, m.Player1, m.Player2, m.Winner)
			if err != nil {
				log.Printf("tournament %s: record bye: %v", t.ID, err)
			}
		}
	}
}

// launchRoundLocked realizes the current round's pending matches: online
// mode creates real rooms through the same contract as matchmaking; local
// mode only signals both participants that their match is ready. Caller
// holds t.mu.
func (t *Tournament) launchRoundLocked() {
	for _, m := range t.matches {
		if m.Round != t.currentRound || m.Status != TMatchPending {
			continue
		}
		m.Status = TMatchInProgress

		roomID := ""
		if !t.Local && t.rooms != nil {
			roomID = t.createMatchRoom(m)
		}
		t.notifyMatch(m, roomID)
	}
}

// createMatchRoom builds the room for one bracket match and hooks its
// result back into the bracket
func (t *Tournament) createMatchRoom(m *TournamentMatch) string {
	cfg := t.Settings
	cfg.IsPrivate = false
	room, err := t.rooms.CreateRoom(cfg)
	if err != nil {
		log.Printf("tournament %s: create room: %v", t.ID, err)
		return ""
	}
	if _, err := room.AddPlayer(m.Player1, t.aliasOf(m.Player1)); err != nil {
		log.Printf("tournament %s: seat %d: %v", t.ID, m.Player1, err)
	}
	if _, err := room.AddPlayer(m.Player2, t.aliasOf(m.Player2)); err != nil {
		log.Printf("tournament %s: seat %d: %v", t.ID, m.Player2, err)
	}

	matchID := m.ID
	room.SetResultHook(func(winnerSlot int, winnerID int64) {
		if winnerID == 0 {
			return
		}
		if err := t.RecordMatchResult(matchID, winnerID); err != nil {
			log.Printf("tournament %s: result for %s: %v", t.ID, matchID, err)
		}
	})
	t.matchRooms[m.ID] = room.ID
	return room.ID
}

func (t *Tournament) notifyMatch(m *TournamentMatch, roomID string) {
	if t.notifier == nil {
		return
	}
	t.notifier.NotifyUser(m.Player1, Envelope{T: MsgTournamentPlay, Data: TournamentPlayMsg{
		TournamentID: t.ID, MatchID: m.ID, Round: m.Round, RoomID: roomID, Opponent: t.aliasOf(m.Player2),
	}})
	t.notifier.NotifyUser(m.Player2, Envelope{T: MsgTournamentPlay, Data: TournamentPlayMsg{
		TournamentID: t.ID, MatchID: m.ID, Round: m.Round, RoomID: roomID, Opponent: t.aliasOf(m.Player1),
	}})
}

func (t *Tournament) aliasOf(userID int64) string {
	for _, p := range t.participants {
		if p.UserID == userID {
			return p.Alias
		}
	}
	return ""
}

// Bracket returns the read-only projection including future placeholder
// rounds
func (t *Tournament) Bracket() BracketView {
	t.mu.Lock()
	defer t.mu.Unlock()

	rounds := projectRounds(t.matches, t.totalRounds, t.aliasOf)
	for _, row := range rounds {
		for i := range row {
			row[i].RoomID = t.matchRooms[row[i].ID]
		}
	}
	return BracketView{
		TournamentID: t.ID,
		Name:         t.Name,
		Status:       string(t.status),
		CurrentRound: t.currentRound,
		TotalRounds:  t.totalRounds,
		Rounds:       rounds,
	}
}

// TournamentState is the serializable bracket structure
type TournamentState struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	CreatorID    int64              `json:"creatorId"`
	Type         string             `json:"type"`
	GameType     string             `json:"gameType"`
	Status       string             `json:"status"`
	Participants []Participant      `json:"participants"`
	CurrentRound int                `json:"currentRound"`
	TotalRounds  int                `json:"totalRounds"`
	Champion     int64              `json:"champion,omitempty"`
	Matches      []*TournamentMatch `json:"matches"`
}

// State snapshots the full bracket
func (t *Tournament) State() TournamentState {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := TournamentState{
		ID:           t.ID,
		Name:         t.Name,
		CreatorID:    t.CreatorID,
		Type:         t.Type,
		GameType:     t.GameType,
		Status:       string(t.status),
		Participants: append([]Participant(nil), t.participants...),
		CurrentRound: t.currentRound,
		TotalRounds:  t.totalRounds,
		Champion:     t.champion,
	}
	for _, m := range t.matches {
		cp := *m
		st.Matches = append(st.Matches, &cp)
	}
	return st
}

// TournamentManager is the owned registry of live tournaments
type TournamentManager struct {
	mu          sync.RWMutex
	tournaments map[string]*Tournament

	rooms     *RoomManager
	notifier  Notifier
	store     ResultStore
	analytics *Analytics
}

func NewTournamentManager(rooms *RoomManager, notifier Notifier, store ResultStore, analytics *Analytics) *TournamentManager {
	return &TournamentManager{
		tournaments: make(map[string]*Tournament),
		rooms:       rooms,
		notifier:    notifier,
		store:       store,
		analytics:   analytics,
	}
}

// Create opens a tournament for registration; the creator is its first
// participant.
func (tm *TournamentManager) Create(req TournamentRequest, creatorID int64, creatorAlias string) (*Tournament, error) {
	t, err := NewTournament(req, creatorID, tm.rooms, tm.notifier, tm.store, tm.analytics)
	if err != nil {
		return nil, err
	}
	if err := t.AddParticipant(creatorID, creatorAlias); err != nil {
		return nil, err
	}
	t.onClose = tm.Remove

	tm.mu.Lock()
	tm.tournaments[t.ID] = t
	tm.mu.Unlock()

	if tm.store != nil {
		err := tm.store.SaveTournament(t.ID, t.Name, string(TStatusRegistration), t.Type, t.GameType, t.MaxParticipants, creatorID)
		if err != nil {
			log.Printf("tournament %s: persist: %v", t.ID, err)
		}
	}
	return t, nil
}

// Remove drops a tournament from the registry. Fired via onClose once the
// bracket completes; the DB keeps the durable record.
func (tm *TournamentManager) Remove(id string) {
	tm.mu.Lock()
	delete(tm.tournaments, id)
	tm.mu.Unlock()
}

// Get returns a tournament by id, or nil
func (tm *TournamentManager) Get(id string) *Tournament {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.tournaments[id]
}

// JoinedCount returns live participant counts keyed by tournament id
func (tm *TournamentManager) JoinedCount() map[string]int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	out := make(map[string]int, len(tm.tournaments))
	for id, t := range tm.tournaments {
		out[id] = t.ParticipantCount()
	}
	return out
}
