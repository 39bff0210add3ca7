package main

import (
	"sync"
	"time"
)

// Scheduler owns the timers of one room so that early termination cancels
// every pending countdown/pause/tick in a single call instead of leaving
// ambient timers racing the shutdown.
type Scheduler struct {
	mu      sync.Mutex
	nextID  int
	tasks   map[int]func() // id -> cancel
	stopped bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{tasks: make(map[int]func())}
}

// After runs fn once after d. Returns a cancel func; cancelling after the
// task fired is a no-op.
func (s *Scheduler) After(d time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return func() {}
	}
	id := s.nextID
	s.nextID++

	timer := time.AfterFunc(d, func() {
		s.remove(id)
		fn()
	})
	cancel := func() {
		timer.Stop()
		s.remove(id)
	}
	s.tasks[id] = cancel
	return cancel
}

// Every runs fn on a fixed period until cancelled
func (s *Scheduler) Every(d time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return func() {}
	}
	id := s.nextID
	s.nextID++

	ticker := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
		s.remove(id)
	}
	s.tasks[id] = cancel
	return cancel
}

// Stop cancels all pending tasks and rejects new ones
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancels := make([]func(), 0, len(s.tasks))
	for _, c := range s.tasks {
		cancels = append(cancels, c)
	}
	s.tasks = make(map[int]func())
	s.mu.Unlock()

	for _, c := range cancels {
		c()
	}
}

func (s *Scheduler) remove(id int) {
	s.mu.Lock()
	delete(s.tasks, id)
	s.mu.Unlock()
}

// Pending returns the number of uncancelled tasks
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
