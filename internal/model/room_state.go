package model

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition matches every *TransitionError.
var ErrInvalidTransition = errors.New("invalid room state transition")

// RoomState is a room's occupancy state. BOOKED means the room holds at
// least one PENDING or CONFIRMED booking.
type RoomState string

const (
	StateAvailable        RoomState = "AVAILABLE"
	StateBooked           RoomState = "BOOKED"
	StateUnderMaintenance RoomState = "UNDER_MAINTENANCE"
)

// RoomEvent drives the room state machine.
type RoomEvent string

const (
	EventBook            RoomEvent = "book"
	EventMarkMaintenance RoomEvent = "markMaintenance"
	EventCheckOut        RoomEvent = "checkOut"
)

var roomTransitions = map[RoomState]map[RoomEvent]RoomState{
	StateAvailable: {
		EventBook:            StateBooked,
		EventMarkMaintenance: StateUnderMaintenance,
	},
	StateBooked: {
		EventCheckOut: StateAvailable,
	},
	// UNDER_MAINTENANCE has no outgoing transitions.
	StateUnderMaintenance: {},
}

// TransitionError reports an event that the current state does not accept.
type TransitionError struct {
	Event RoomEvent
	From  RoomState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a room in state %s", e.Event, e.From)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// ParseRoomState validates a stored state value.
func ParseRoomState(s string) (RoomState, error) {
	st := RoomState(s)
	if _, ok := roomTransitions[st]; !ok {
		return "", fmt.Errorf("unknown room state %q", s)
	}
	return st, nil
}

// Apply returns the state reached by ev, or a *TransitionError.
func (s RoomState) Apply(ev RoomEvent) (RoomState, error) {
	next, ok := roomTransitions[s][ev]
	if !ok {
		return s, &TransitionError{Event: ev, From: s}
	}
	return next, nil
}

func (s RoomState) Book() (RoomState, error)            { return s.Apply(EventBook) }
func (s RoomState) MarkMaintenance() (RoomState, error) { return s.Apply(EventMarkMaintenance) }
func (s RoomState) CheckOut() (RoomState, error)        { return s.Apply(EventCheckOut) }
