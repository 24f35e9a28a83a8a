package model

import "time"

// EventType identifies the type of realtime event pushed to room clients
type EventType string

const (
	EventConnected   EventType = "connected"
	EventRoomUpdated EventType = "room-update"
	EventRoomClosed  EventType = "room-closed"
)

// Event is a room-scoped notification
type Event struct {
	Type      EventType
	Timestamp time.Time
	Room      RoomCode
	Version   int64
	Payload   any
}
