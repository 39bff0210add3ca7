package main

import (
	"log"
	"sync"
	"time"
)

// Event types for analytics tracking
const (
	EvtMatchStart        = "match_start"
	EvtMatchEnd          = "match_end"
	EvtPowerUpCollected  = "powerup_collected"
	EvtQueueJoin         = "queue_join"
	EvtQueuePair         = "queue_pair"
	EvtTournamentStart   = "tournament_start"
	EvtTournamentEnd     = "tournament_end"
)

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type      string
	UserID    int64
	RefID     string // room or tournament id
	Data      string
	Timestamp time.Time
}

// Analytics handles event tracking with batched background writes
type Analytics struct {
	db     *DB
	events chan AnalyticsEvent
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan AnalyticsEvent, 1024),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence. Non-blocking and safe on
// a nil receiver, so simulation code never stalls or nil-checks.
func (a *Analytics) Track(evtType string, userID int64, refID string, data string) {
	if a == nil {
		return
	}
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		UserID:    userID,
		RefID:     refID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// Channel full — drop event rather than blocking a tick
	}
}

// Close flushes pending events and stops the writer
func (a *Analytics) Close() {
	if a == nil {
		return
	}
	close(a.stop)
	a.wg.Wait()
}

func (a *Analytics) writer() {
	defer a.wg.Done()
	for {
		select {
		case evt := <-a.events:
			if err := a.db.InsertEvent(evt); err != nil {
				log.Printf("analytics: insert %s: %v", evt.Type, err)
			}
		case <-a.stop:
			// Drain whatever is buffered, then exit
			for {
				select {
				case evt := <-a.events:
					if err := a.db.InsertEvent(evt); err != nil {
						log.Printf("analytics: insert %s: %v", evt.Type, err)
					}
				default:
					return
				}
			}
		}
	}
}
