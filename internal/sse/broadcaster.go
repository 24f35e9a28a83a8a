package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/openface/internal/api/response"
	"github.com/mcoot/openface/internal/dependencies/clock"
	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/storage"
)

// DefaultCleanupInterval is how often hubs without clients are closed
const DefaultCleanupInterval = time.Minute

// Broadcaster turns store change notifications into room events
type Broadcaster struct {
	storage         storage.Storage
	hubs            *HubManager
	clock           clock.Clock
	logger          *slog.Logger
	cleanupInterval time.Duration
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(store storage.Storage, hubs *HubManager, clk clock.Clock, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		storage:         store,
		hubs:            hubs,
		clock:           clk,
		logger:          logger.With(slog.String("component", "sse-broadcaster")),
		cleanupInterval: DefaultCleanupInterval,
	}
}

// RoomEvent renders the room-update event for a room
func RoomEvent(room *model.Room) ([]byte, error) {
	data, err := json.Marshal(response.RoomFromModel(room))
	if err != nil {
		return nil, err
	}
	return formatSSEMessage(string(model.EventRoomUpdated), string(data)), nil
}

// Publish pushes the current state of a changed room to its clients
func (b *Broadcaster) Publish(ctx context.Context, change storage.Change) {
	hub := b.hubs.GetHub(change.Room)
	if hub == nil {
		return
	}

	if change.Deleted {
		data, _ := json.Marshal(response.RoomClosed{Code: string(change.Room)})
		hub.BroadcastEvent(string(model.EventRoomClosed), string(data))
		b.hubs.RemoveHub(change.Room)
		return
	}

	room, err := b.storage.GetRoom(ctx, change.Room)
	if errors.Is(err, model.ErrRoomNotFound) {
		return
	}
	if err != nil {
		b.logger.Error("sse failed to load room",
			slog.String("room", string(change.Room)),
			slog.Any("error", err))
		return
	}

	data, err := json.Marshal(response.RoomFromModel(room))
	if err != nil {
		b.logger.Error("sse failed to render room",
			slog.String("room", string(change.Room)),
			slog.Any("error", err))
		return
	}
	hub.BroadcastVersion(room.Version, string(model.EventRoomUpdated), string(data))
}

// Run publishes every change until ctx is cancelled, closing idle hubs on the
// cleanup interval
func (b *Broadcaster) Run(ctx context.Context) error {
	changes, err := b.storage.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to room changes: %w", err)
	}

	cleanup := b.clock.TickerFunc(ctx, b.cleanupInterval, func() error {
		b.hubs.CleanupEmptyHubs()
		return nil
	}, "sse", "cleanup")

	for change := range changes {
		b.Publish(ctx, change)
	}

	b.hubs.Close()
	if err := cleanup.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
