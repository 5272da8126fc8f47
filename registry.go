/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const (
	statusWaiting = "waiting"
	statusStarted = "started"
)

// Participant is one member of a room. AssignedTo stays empty until the
// room's exchange starts, and never changes afterward.
type Participant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	AssignedTo string `json:"assignedTo,omitempty"`
}

// Room is one gift exchange instance. All mutable fields are guarded by mu;
// methods with a Locked suffix expect the caller to hold it.
type Room struct {
	mu sync.Mutex

	Code         string
	Status       string
	Host         string
	CreatedAt    time.Time
	Participants []*Participant
}

// RoomView is a point-in-time copy of a room's state, safe to hand out and
// to persist.
type RoomView struct {
	Code         string        `json:"code"`
	Status       string        `json:"status"`
	Host         string        `json:"host,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	Participants []Participant `json:"participants"`
}

// addParticipantLocked registers name in the room, or returns the existing
// entry if the name has already joined. The first participant becomes the
// room's host.
func (room *Room) addParticipantLocked(name string) Participant {
	for _, p := range room.Participants {
		if p.Name == name {
			return *p
		}
	}

	p := &Participant{
		ID:   uuid.NewString(),
		Name: name,
	}
	if room.Host == "" {
		room.Host = name
	}
	room.Participants = append(room.Participants, p)

	return *p
}

// applyAssignmentLocked writes every participant's receiver and flips the
// room to started as one unit. Participants absent from mapping (there are
// none when mapping came from the current roster) are left unassigned.
func (room *Room) applyAssignmentLocked(mapping map[string]string) error {
	if room.Status != statusWaiting {
		return errAlreadyStarted
	}

	for _, p := range room.Participants {
		if receiver, ok := mapping[p.Name]; ok {
			p.AssignedTo = receiver
		}
	}
	room.Status = statusStarted

	return nil
}

func (room *Room) namesLocked() []string {
	return lo.Map(room.Participants, func(p *Participant, _ int) string {
		return p.Name
	})
}

func (room *Room) viewLocked() RoomView {
	participants := make([]Participant, len(room.Participants))
	for i, p := range room.Participants {
		participants[i] = *p
	}

	return RoomView{
		Code:         room.Code,
		Status:       room.Status,
		Host:         room.Host,
		CreatedAt:    room.CreatedAt,
		Participants: participants,
	}
}

func (room *Room) view() RoomView {
	room.mu.Lock()
	defer room.mu.Unlock()

	return room.viewLocked()
}

func roomFromView(view RoomView) *Room {
	room := &Room{
		Code:      view.Code,
		Status:    view.Status,
		Host:      view.Host,
		CreatedAt: view.CreatedAt,
	}
	for i := range view.Participants {
		p := view.Participants[i]
		room.Participants = append(room.Participants, &p)
	}

	return room
}

// Registry owns every live room, keyed by code. The map mutex only guards
// the map itself; each room carries its own lock, so operations on different
// rooms never block each other.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	store *Store
}

// NewRegistry builds a registry, reloading any rooms the store already holds.
// A nil store keeps everything in memory for the process lifetime.
func NewRegistry(store *Store) (*Registry, error) {
	r := &Registry{
		rooms: make(map[string]*Room),
		store: store,
	}

	if store != nil {
		rooms, err := store.LoadRooms()
		if err != nil {
			return nil, err
		}
		for _, room := range rooms {
			r.rooms[room.Code] = room
		}
	}

	return r, nil
}

// newRoomCode derives a short human-typeable code from a UUID.
func newRoomCode() string {
	return strings.ToUpper(uuid.NewString()[:6])
}

// CreateRoom registers a new waiting room under a fresh code, retrying on
// the unlikely collision with an existing one.
func (r *Registry) CreateRoom() (*Room, error) {
	for {
		code := newRoomCode()

		r.mu.Lock()
		if _, exists := r.rooms[code]; exists {
			r.mu.Unlock()
			continue
		}

		room := &Room{
			Code:      code,
			Status:    statusWaiting,
			CreatedAt: time.Now().UTC(),
		}
		r.rooms[code] = room
		r.mu.Unlock()

		r.persist(room)

		return room, nil
	}
}

func (r *Registry) Lookup(code string) (*Room, error) {
	r.mu.RLock()
	room, ok := r.rooms[code]
	r.mu.RUnlock()

	if !ok {
		return nil, errRoomNotFound
	}

	return room, nil
}

// View returns a copy of the room's current state.
func (r *Registry) View(code string) (RoomView, error) {
	room, err := r.Lookup(code)
	if err != nil {
		return RoomView{}, err
	}

	return room.view(), nil
}

// persist writes the room through to the store. The in-memory registry stays
// authoritative; a failed write is logged and the operation proceeds.
func (r *Registry) persist(room *Room) {
	if r.store == nil {
		return
	}

	if err := r.store.SaveRoom(room.view()); err != nil {
		log.Warn().Err(err).Str("room", room.Code).Msg("Failed to persist room")
	}
}
