/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// ClientMessage is the envelope for all inbound WebSocket events.
type ClientMessage struct {
	Type     string `json:"type"`               // "join", "start"
	RoomCode string `json:"roomCode,omitempty"` // join / start
	Name     string `json:"name,omitempty"`     // join
}

// RosterMessage is broadcast whenever the roster changes. It carries names
// only; assignments stay private to each recipient.
type RosterMessage struct {
	Type         string        `json:"type"` // "roster_updated"
	Participants []RosterEntry `json:"participants"`
}

type RosterEntry struct {
	Name string `json:"name"`
}

// RoomStateMessage is sent to a client right after its own join commits, so
// it knows the room status and whether it is the host before any broadcast
// arrives.
type RoomStateMessage struct {
	Type     string `json:"type"` // "room_state"
	RoomCode string `json:"roomCode"`
	Status   string `json:"status"`
	Host     string `json:"host,omitempty"`
	IsHost   bool   `json:"isHost"`
}

// StartedMessage is broadcast to the whole room when the exchange begins.
type StartedMessage struct {
	Type     string `json:"type"` // "exchange_started"
	RoomCode string `json:"roomCode"`
}

// AssignmentMessage is sent privately to a single participant, carrying only
// their own receiver.
type AssignmentMessage struct {
	Type   string `json:"type"` // "your_receiver"
	Target string `json:"target"`
}

// ErrorMessage surfaces a failed operation to the client that requested it.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Controller owns the room state machine. Joins, starts, and disconnects all
// funnel through here; every registry mutation commits before any event
// leaves the process, and mutation plus fan-out for one room happen under
// that room's lock so no client observes events out of order.
type Controller struct {
	registry *Registry
	hub      *Broadcaster
	store    *Store
}

func NewController(registry *Registry, hub *Broadcaster, store *Store) *Controller {
	return &Controller{
		registry: registry,
		hub:      hub,
		store:    store,
	}
}

// dispatch maps an inbound event kind to its controller operation.
func (ct *Controller) dispatch(c *Client, msg ClientMessage) {
	code := msg.RoomCode
	if code == "" {
		code = c.room
	}

	switch msg.Type {
	case "join":
		if err := ct.Join(c, code, msg.Name); err != nil {
			ct.reject(c, err)
		}
	case "start":
		if err := ct.Start(c, code); err != nil {
			ct.reject(c, err)
		}
	default:
		// ignore unknown types
	}
}

// Join registers name in the room, binds c as that participant's live
// connection, and pushes the updated roster to everyone. Joining an already
// started room is allowed; the late joiner is simply never assigned a
// receiver.
func (ct *Controller) Join(c *Client, code, name string) error {
	if name == "" {
		return errNameRequired
	}

	room, err := ct.registry.Lookup(code)
	if err != nil {
		return err
	}

	room.mu.Lock()

	participant := room.addParticipantLocked(name)
	view := room.viewLocked()

	ct.hub.Bind(c, code, name)

	c.push(RoomStateMessage{
		Type:     "room_state",
		RoomCode: code,
		Status:   view.Status,
		Host:     view.Host,
		IsHost:   view.Host == name,
	})

	ct.hub.BroadcastToRoom(code, rosterMessage(view))

	// A participant reconnecting after the exchange started gets their
	// assignment again; it was computed once and never changes.
	if participant.AssignedTo != "" {
		ct.hub.SendToParticipant(code, name, AssignmentMessage{
			Type:   "your_receiver",
			Target: participant.AssignedTo,
		})
	}

	room.mu.Unlock()

	ct.registry.persist(room)

	log.Debug().Str("room", code).Str("name", name).Msg("Participant joined")

	return nil
}

// Start runs the assignment over the current roster and commits the result.
// Only the host may start, the room must still be waiting, and a failed
// start mutates nothing and broadcasts nothing. Event delivery is
// fire-and-forget once the state is committed.
func (ct *Controller) Start(c *Client, code string) error {
	room, err := ct.registry.Lookup(code)
	if err != nil {
		return err
	}

	room.mu.Lock()

	if room.Host == "" || c.name != room.Host {
		room.mu.Unlock()
		return errNotHost
	}

	if room.Status != statusWaiting {
		room.mu.Unlock()
		return errAlreadyStarted
	}

	mapping, err := Assign(room.namesLocked())
	if err != nil {
		room.mu.Unlock()
		return err
	}

	if err := room.applyAssignmentLocked(mapping); err != nil {
		room.mu.Unlock()
		return err
	}

	// Committed; everything below is best-effort delivery.
	ct.hub.BroadcastToRoom(code, StartedMessage{
		Type:     "exchange_started",
		RoomCode: code,
	})

	for giver, receiver := range mapping {
		ct.hub.SendToParticipant(code, giver, AssignmentMessage{
			Type:   "your_receiver",
			Target: receiver,
		})
	}

	room.mu.Unlock()

	ct.registry.persist(room)

	if ct.store != nil {
		if err := ct.store.RecordHistory(code, mapping, time.Now().UnixNano()); err != nil {
			log.Warn().Err(err).Str("room", code).Msg("Failed to record exchange history")
		}
	}

	log.Info().Str("room", code).Int("participants", len(mapping)).Msg("Exchange started")

	return nil
}

// Disconnect drops c's live binding. The participant record, including any
// assignment, stays in the room for when they reconnect.
func (ct *Controller) Disconnect(c *Client) {
	ct.hub.Unbind(c)
	c.close()
}

func (ct *Controller) reject(c *Client, err error) {
	code := "internal"

	switch {
	case errors.Is(err, errRoomNotFound):
		code = "room_not_found"
	case errors.Is(err, errAlreadyStarted):
		code = "already_started"
	case errors.Is(err, errInsufficientParticipants):
		code = "insufficient_participants"
	case errors.Is(err, errNotHost):
		code = "not_host"
	case errors.Is(err, errUnsatisfiable):
		code = "unsatisfiable"
	case errors.Is(err, errNameRequired):
		code = "name_required"
	}

	c.push(ErrorMessage{
		Type:    "error",
		Code:    code,
		Message: err.Error(),
	})
}

func rosterMessage(view RoomView) RosterMessage {
	return RosterMessage{
		Type: "roster_updated",
		Participants: lo.Map(view.Participants, func(p Participant, _ int) RosterEntry {
			return RosterEntry{Name: p.Name}
		}),
	}
}
