/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import "errors"

var (
	errRoomNotFound             = errors.New("room not found")
	errAlreadyStarted           = errors.New("exchange already started")
	errInsufficientParticipants = errors.New("at least two participants are required")
	errNotHost                  = errors.New("only the host may start the exchange")
	errUnsatisfiable            = errors.New("no valid assignment exists")
	errNameRequired             = errors.New("a display name is required")
)
