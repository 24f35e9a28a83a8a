package testutil

import (
	"context"
	"time"

	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/storage"
)

// NewRoom builds a lobby room whose first uid is the host and the rest have joined
func NewRoom(code model.RoomCode, now time.Time, uids ...model.PlayerID) *model.Room {
	host := &model.Player{ID: uids[0], DisplayName: string(uids[0])}
	room := model.NewRoom(code, host, "", model.DefaultSettings(), now)
	for i, uid := range uids[1:] {
		room.AddPlayer(&model.Player{ID: uid, DisplayName: string(uid)}, "", now.Add(time.Duration(i+1)*time.Millisecond))
	}
	return room
}

// SaveRoom writes a room document directly
func SaveRoom(ctx context.Context, store storage.Storage, room *model.Room) error {
	return store.RunTransaction(ctx, room.Code, func(tx storage.Transaction) error {
		return tx.SaveRoom(room)
	})
}
