package main

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const DrainPeriod = 3 * time.Second

// QueueEntry is one waiting player
type QueueEntry struct {
	UserID      int64
	Username    string
	GameType    string
	SkillBucket int
	EnqueuedAt  time.Time
}

// Notifier delivers a message to a user's live session, if any
type Notifier interface {
	NotifyUser(userID int64, msg Envelope) bool
}

// Matchmaker holds the shared pairing queue. Entries are drained on a
// fixed period and paired FIFO within each game type; the skill bucket is
// recorded at enqueue but pairing stays first-come-first-served.
type Matchmaker struct {
	mu      sync.Mutex
	entries []*QueueEntry
	byUser  map[int64]*QueueEntry

	rooms     *RoomManager
	notifier  Notifier
	analytics *Analytics
	sched     gocron.Scheduler
}

func NewMatchmaker(rooms *RoomManager, notifier Notifier, analytics *Analytics) *Matchmaker {
	return &Matchmaker{
		byUser:    make(map[int64]*QueueEntry),
		rooms:     rooms,
		notifier:  notifier,
		analytics: analytics,
	}
}

// Start begins the periodic drain job
func (m *Matchmaker) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(DrainPeriod),
		gocron.NewTask(m.Drain),
	)
	if err != nil {
		return err
	}
	sched.Start()
	m.sched = sched
	return nil
}

// Stop halts the drain job
func (m *Matchmaker) Stop() {
	if m.sched != nil {
		_ = m.sched.Shutdown()
	}
}

// Enqueue adds a waiting player. A user can hold at most one entry.
func (m *Matchmaker) Enqueue(userID int64, username, gameType string, skillBucket int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byUser[userID]; ok {
		return fmt.Errorf("already in queue")
	}
	if gameType == "" {
		gameType = "classic"
	}
	e := &QueueEntry{
		UserID:      userID,
		Username:    username,
		GameType:    gameType,
		SkillBucket: skillBucket,
		EnqueuedAt:  time.Now(),
	}
	m.entries = append(m.entries, e)
	m.byUser[userID] = e
	return nil
}

// Remove takes a user out of the queue
func (m *Matchmaker) Remove(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byUser[userID]; !ok {
		return
	}
	delete(m.byUser, userID)
	for i, e := range m.entries {
		if e.UserID == userID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
}

// Len returns the number of queued entries
func (m *Matchmaker) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Drain pairs the two earliest same-type entries until no group has two
// left, creating a room per pair and notifying both sessions.
func (m *Matchmaker) Drain() {
	m.mu.Lock()
	groups := make(map[string][]*QueueEntry)
	for _, e := range m.entries {
		groups[e.GameType] = append(groups[e.GameType], e)
	}

	var pairs [][2]*QueueEntry
	for _, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].EnqueuedAt.Before(group[j].EnqueuedAt)
		})
		for len(group) >= 2 {
			a, b := group[0], group[1]
			group = group[2:]
			pairs = append(pairs, [2]*QueueEntry{a, b})
			m.dropLocked(a.UserID)
			m.dropLocked(b.UserID)
		}
	}
	m.mu.Unlock()

	for _, pair := range pairs {
		m.createMatch(pair[0], pair[1])
	}
}

// dropLocked removes an entry; caller holds m.mu
func (m *Matchmaker) dropLocked(userID int64) {
	delete(m.byUser, userID)
	for i, e := range m.entries {
		if e.UserID == userID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return
		}
	}
}

// createMatch builds the room for a pair and tells both players where to go
func (m *Matchmaker) createMatch(a, b *QueueEntry) {
	cfg := RoomConfig{
		PowerUpsEnabled: a.GameType == "powerup",
		MapVariant:      a.GameType,
	}
	room, err := m.rooms.CreateRoom(cfg)
	if err != nil {
		log.Printf("matchmaker: create room: %v", err)
		return
	}
	if _, err := room.AddPlayer(a.UserID, a.Username); err != nil {
		log.Printf("matchmaker: seat %d: %v", a.UserID, err)
	}
	if _, err := room.AddPlayer(b.UserID, b.Username); err != nil {
		log.Printf("matchmaker: seat %d: %v", b.UserID, err)
	}

	m.analytics.Track(EvtQueuePair, a.UserID, room.ID, a.GameType)
	m.analytics.Track(EvtQueuePair, b.UserID, room.ID, b.GameType)

	m.notifier.NotifyUser(a.UserID, Envelope{T: MsgMatchFound, Data: MatchFoundMsg{
		RoomID: room.ID, GameType: a.GameType, Opponent: b.Username,
	}})
	m.notifier.NotifyUser(b.UserID, Envelope{T: MsgMatchFound, Data: MatchFoundMsg{
		RoomID: room.ID, GameType: b.GameType, Opponent: a.Username,
	}})
}
