package main

import (
	"fmt"
	"sync"
)

const maxRooms = 500

// RoomManager is the owned registry of live match rooms. All cross-room
// access goes through it; there are no ambient globals.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	store     ResultStore
	analytics *Analytics
}

func NewRoomManager(store ResultStore, analytics *Analytics) *RoomManager {
	return &RoomManager{
		rooms:     make(map[string]*Room),
		store:     store,
		analytics: analytics,
	}
}

// CreateRoom validates the config, registers the room and wires its
// removal on terminal status.
func (rm *RoomManager) CreateRoom(cfg RoomConfig) (*Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if len(rm.rooms) >= maxRooms {
		return nil, fmt.Errorf("too many active matches")
	}
	room, err := NewRoom(cfg, rm.store, rm.analytics)
	if err != nil {
		return nil, err
	}
	room.onClose = rm.Remove
	rm.rooms[room.ID] = room
	return room, nil
}

// GetRoom returns a room by id, or nil
func (rm *RoomManager) GetRoom(id string) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.rooms[id]
}

// Remove drops a room from the registry
func (rm *RoomManager) Remove(id string) {
	rm.mu.Lock()
	delete(rm.rooms, id)
	rm.mu.Unlock()
}

// Count returns the number of live rooms
func (rm *RoomManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}
