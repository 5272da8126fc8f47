/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T) (*Controller, *Registry) {
	t.Helper()

	registry, err := NewRegistry(nil)
	require.NoError(t, err)

	return NewController(registry, NewBroadcaster(), nil), registry
}

func ofType[T any](msgs []any) []T {
	var out []T
	for _, msg := range msgs {
		if v, ok := msg.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func rosterNames(msg RosterMessage) []string {
	return lo.Map(msg.Participants, func(e RosterEntry, _ int) string {
		return e.Name
	})
}

func Test_Join_Unknown_Room(t *testing.T) {
	req := require.New(t)

	ct, _ := newTestController(t)
	c := newTestClient()

	req.ErrorIs(ct.Join(c, "NOSUCH", "Alice"), errRoomNotFound)
	req.Empty(drain(c))
}

func Test_Join_Requires_Name(t *testing.T) {
	req := require.New(t)

	ct, registry := newTestController(t)
	room, err := registry.CreateRoom()
	req.NoError(err)

	req.ErrorIs(ct.Join(newTestClient(), room.Code, ""), errNameRequired)

	view, err := registry.View(room.Code)
	req.NoError(err)
	req.Empty(view.Participants)
}

func Test_Join_Broadcasts_Roster_In_Commit_Order(t *testing.T) {
	req := require.New(t)

	ct, registry := newTestController(t)
	room, err := registry.CreateRoom()
	req.NoError(err)

	alice := newTestClient()
	req.NoError(ct.Join(alice, room.Code, "Alice"))

	bob := newTestClient()
	req.NoError(ct.Join(bob, room.Code, "Bob"))

	aliceMsgs := drain(alice)

	states := ofType[RoomStateMessage](aliceMsgs)
	req.Len(states, 1)
	req.Equal(statusWaiting, states[0].Status)
	req.True(states[0].IsHost, "first joiner must be the host")

	rosters := ofType[RosterMessage](aliceMsgs)
	req.Len(rosters, 2)
	req.Equal([]string{"Alice"}, rosterNames(rosters[0]))
	req.Equal([]string{"Alice", "Bob"}, rosterNames(rosters[1]))

	bobMsgs := drain(bob)
	bobStates := ofType[RoomStateMessage](bobMsgs)
	req.Len(bobStates, 1)
	req.False(bobStates[0].IsHost)

	bobRosters := ofType[RosterMessage](bobMsgs)
	req.Len(bobRosters, 1)
	req.Equal([]string{"Alice", "Bob"}, rosterNames(bobRosters[0]))
}

func Test_Join_Same_Name_Rebinds_Without_Duplicating(t *testing.T) {
	req := require.New(t)

	ct, registry := newTestController(t)
	room, err := registry.CreateRoom()
	req.NoError(err)

	c1 := newTestClient()
	req.NoError(ct.Join(c1, room.Code, "Alice"))

	view, err := registry.View(room.Code)
	req.NoError(err)
	firstID := view.Participants[0].ID

	c2 := newTestClient()
	req.NoError(ct.Join(c2, room.Code, "Alice"))

	view, err = registry.View(room.Code)
	req.NoError(err)
	req.Len(view.Participants, 1)
	req.Equal(firstID, view.Participants[0].ID, "participant identity must be stable across reconnects")

	// The replaced connection is closed and out of the room.
	req.False(c1.push("late"))
	rosters := ofType[RosterMessage](drain(c2))
	req.NotEmpty(rosters)
}

func Test_Start_Delivers_Private_Assignments(t *testing.T) {
	req := require.New(t)

	ct, registry := newTestController(t)
	room, err := registry.CreateRoom()
	req.NoError(err)

	names := []string{"Alice", "Bob", "Carol"}
	clients := make(map[string]*Client, len(names))
	for _, name := range names {
		c := newTestClient()
		req.NoError(ct.Join(c, room.Code, name))
		clients[name] = c
	}
	for _, c := range clients {
		drain(c)
	}

	req.NoError(ct.Start(clients["Alice"], room.Code))

	view, err := registry.View(room.Code)
	req.NoError(err)
	req.Equal(statusStarted, view.Status)

	targets := make(map[string]int)
	for _, name := range names {
		msgs := drain(clients[name])

		req.Len(ofType[StartedMessage](msgs), 1, "%s must see exactly one start event", name)

		assignments := ofType[AssignmentMessage](msgs)
		req.Len(assignments, 1, "%s must receive exactly one assignment", name)
		req.NotEqual(name, assignments[0].Target, "%s assigned to themselves", name)
		targets[assignments[0].Target]++
	}

	for _, name := range names {
		req.Equal(1, targets[name], "%q must be gifted exactly once", name)
	}
}

func Test_Start_Requires_Host(t *testing.T) {
	req := require.New(t)

	ct, registry := newTestController(t)
	room, err := registry.CreateRoom()
	req.NoError(err)

	alice := newTestClient()
	bob := newTestClient()
	req.NoError(ct.Join(alice, room.Code, "Alice"))
	req.NoError(ct.Join(bob, room.Code, "Bob"))
	drain(alice)
	drain(bob)

	req.ErrorIs(ct.Start(bob, room.Code), errNotHost)

	stranger := newTestClient()
	req.ErrorIs(ct.Start(stranger, room.Code), errNotHost)

	view, err := registry.View(room.Code)
	req.NoError(err)
	req.Equal(statusWaiting, view.Status)
	req.Empty(ofType[StartedMessage](drain(alice)))
	req.Empty(ofType[StartedMessage](drain(bob)))
}

func Test_Start_Twice_Is_A_NoOp(t *testing.T) {
	req := require.New(t)

	ct, registry := newTestController(t)
	room, err := registry.CreateRoom()
	req.NoError(err)

	alice := newTestClient()
	bob := newTestClient()
	req.NoError(ct.Join(alice, room.Code, "Alice"))
	req.NoError(ct.Join(bob, room.Code, "Bob"))

	req.NoError(ct.Start(alice, room.Code))

	before, err := registry.View(room.Code)
	req.NoError(err)
	drain(alice)
	drain(bob)

	req.ErrorIs(ct.Start(alice, room.Code), errAlreadyStarted)

	after, err := registry.View(room.Code)
	req.NoError(err)
	req.Equal(before.Participants, after.Participants, "assignments must survive a rejected restart")

	req.Empty(drain(alice), "a failed start must not broadcast")
	req.Empty(drain(bob))
}

func Test_Start_With_Too_Few_Participants(t *testing.T) {
	req := require.New(t)

	ct, registry := newTestController(t)
	room, err := registry.CreateRoom()
	req.NoError(err)

	alice := newTestClient()
	req.NoError(ct.Join(alice, room.Code, "Alice"))
	drain(alice)

	req.ErrorIs(ct.Start(alice, room.Code), errInsufficientParticipants)

	view, err := registry.View(room.Code)
	req.NoError(err)
	req.Equal(statusWaiting, view.Status)
	req.Empty(view.Participants[0].AssignedTo)
	req.Empty(drain(alice), "a failed start must not broadcast")
}

func Test_Late_Joiner_Gets_Roster_But_No_Assignment(t *testing.T) {
	req := require.New(t)

	ct, registry := newTestController(t)
	room, err := registry.CreateRoom()
	req.NoError(err)

	alice := newTestClient()
	bob := newTestClient()
	req.NoError(ct.Join(alice, room.Code, "Alice"))
	req.NoError(ct.Join(bob, room.Code, "Bob"))
	req.NoError(ct.Start(alice, room.Code))

	dave := newTestClient()
	req.NoError(ct.Join(dave, room.Code, "Dave"))

	msgs := drain(dave)

	states := ofType[RoomStateMessage](msgs)
	req.Len(states, 1)
	req.Equal(statusStarted, states[0].Status)

	rosters := ofType[RosterMessage](msgs)
	req.Len(rosters, 1)
	req.Equal([]string{"Alice", "Bob", "Dave"}, rosterNames(rosters[0]))

	req.Empty(ofType[AssignmentMessage](msgs), "late joiners are never assigned")

	view, err := registry.View(room.Code)
	req.NoError(err)
	for _, p := range view.Participants {
		if p.Name == "Dave" {
			req.Empty(p.AssignedTo)
		}
	}
}

func Test_Reconnect_Resends_Assignment(t *testing.T) {
	req := require.New(t)

	ct, registry := newTestController(t)
	room, err := registry.CreateRoom()
	req.NoError(err)

	alice := newTestClient()
	bob := newTestClient()
	req.NoError(ct.Join(alice, room.Code, "Alice"))
	req.NoError(ct.Join(bob, room.Code, "Bob"))
	req.NoError(ct.Start(alice, room.Code))

	assignments := ofType[AssignmentMessage](drain(alice))
	req.Len(assignments, 1)
	target := assignments[0].Target

	ct.Disconnect(alice)

	reconnected := newTestClient()
	req.NoError(ct.Join(reconnected, room.Code, "Alice"))

	resent := ofType[AssignmentMessage](drain(reconnected))
	req.Len(resent, 1)
	req.Equal(target, resent[0].Target, "assignment must be identical after reconnect")
}

func Test_Dispatch_Maps_Events_To_Operations(t *testing.T) {
	req := require.New(t)

	ct, registry := newTestController(t)
	room, err := registry.CreateRoom()
	req.NoError(err)

	alice := newTestClient()
	ct.dispatch(alice, ClientMessage{Type: "join", RoomCode: room.Code, Name: "Alice"})

	view, err := registry.View(room.Code)
	req.NoError(err)
	req.Len(view.Participants, 1)

	bob := newTestClient()
	ct.dispatch(bob, ClientMessage{Type: "join", RoomCode: room.Code, Name: "Bob"})
	drain(bob)

	// A failed operation surfaces as a typed error event, never a crash.
	ct.dispatch(bob, ClientMessage{Type: "start", RoomCode: room.Code})
	rejections := ofType[ErrorMessage](drain(bob))
	req.Len(rejections, 1)
	req.Equal("not_host", rejections[0].Code)

	// Unknown event kinds are ignored.
	ct.dispatch(bob, ClientMessage{Type: "dance"})
	req.Empty(drain(bob))

	ct.dispatch(alice, ClientMessage{Type: "start", RoomCode: room.Code})
	view, err = registry.View(room.Code)
	req.NoError(err)
	req.Equal(statusStarted, view.Status)
}
