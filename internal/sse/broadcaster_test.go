package sse

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/openface/internal/api/response"
	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/storage"
	"github.com/mcoot/openface/internal/storage/memory"
	"github.com/mcoot/openface/internal/testutil"
)

const bcastRoom model.RoomCode = "BCAST1"

type BroadcasterSuite struct {
	suite.Suite
	ctx         context.Context
	clock       *quartz.Mock
	store       *memory.Storage
	hubs        *HubManager
	broadcaster *Broadcaster
}

func TestBroadcasterSuite(t *testing.T) {
	suite.Run(t, new(BroadcasterSuite))
}

func (s *BroadcasterSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = quartz.NewMock(s.T())
	s.store = memory.New()
	s.hubs = NewHubManager(s.clock, nil, testutil.NopLogger())
	s.broadcaster = NewBroadcaster(s.store, s.hubs, s.clock, testutil.NopLogger())
}

func (s *BroadcasterSuite) TearDownTest() {
	s.hubs.Close()
}

func (s *BroadcasterSuite) saveRoom(version int64) *model.Room {
	room := testutil.NewRoom(bcastRoom, s.clock.Now(), "p1", "p2")
	room.Version = version
	s.Require().NoError(testutil.SaveRoom(s.ctx, s.store, room))
	return room
}

func (s *BroadcasterSuite) receive(client *Client) string {
	select {
	case msg, ok := <-client.send:
		s.Require().True(ok, "client channel closed")
		return string(msg)
	case <-time.After(time.Second):
		s.FailNow("no message received")
		return ""
	}
}

// decodeRoom pulls the room JSON out of a single-line room-update event
func (s *BroadcasterSuite) decodeRoom(msg string) response.Room {
	s.Require().True(strings.HasPrefix(msg, "event: room-update\ndata: "), msg)
	data := strings.TrimSuffix(strings.TrimPrefix(msg, "event: room-update\ndata: "), "\n\n")
	var room response.Room
	s.Require().NoError(json.Unmarshal([]byte(data), &room))
	return room
}

func (s *BroadcasterSuite) TestPublishSendsPublicRoom() {
	s.saveRoom(3)
	client := s.hubs.Attach(bcastRoom, "p1")

	s.broadcaster.Publish(s.ctx, storage.Change{Room: bcastRoom, Version: 3})

	room := s.decodeRoom(s.receive(client))
	s.Equal(string(bcastRoom), room.Code)
	s.Equal(int64(3), room.Version)
	s.Equal("p1", room.HostID)
	s.Require().Len(room.Players, 2)
	s.Equal("p1", room.Players[0].ID)
	s.True(room.Players[0].IsHost)
	s.Equal(string(model.PhaseLobby), room.Phase)
}

func (s *BroadcasterSuite) TestPublishWithoutHubIsNoop() {
	s.saveRoom(1)
	s.broadcaster.Publish(s.ctx, storage.Change{Room: bcastRoom, Version: 1})
	s.Nil(s.hubs.GetHub(bcastRoom))
}

func (s *BroadcasterSuite) TestPublishMissingRoomIsNoop() {
	client := s.hubs.Attach(bcastRoom, "p1")
	s.broadcaster.Publish(s.ctx, storage.Change{Room: bcastRoom, Version: 1})

	s.hubs.GetHub(bcastRoom).BroadcastEvent("marker", "x")
	s.Contains(s.receive(client), "event: marker")
}

func (s *BroadcasterSuite) TestDeletedRoomClosesHub() {
	client := s.hubs.Attach(bcastRoom, "p1")

	s.broadcaster.Publish(s.ctx, storage.Change{Room: bcastRoom, Deleted: true})

	s.Equal("event: room-closed\ndata: {\"code\":\"BCAST1\"}\n\n", s.receive(client))
	select {
	case _, ok := <-client.send:
		s.False(ok)
	case <-time.After(time.Second):
		s.FailNow("client channel not closed")
	}
	s.Nil(s.hubs.GetHub(bcastRoom))
}

func (s *BroadcasterSuite) TestRoomEvent() {
	room := s.saveRoom(7)
	event, err := RoomEvent(room)
	s.Require().NoError(err)

	decoded := s.decodeRoom(string(event))
	s.Equal(int64(7), decoded.Version)
	s.Empty(decoded.Pending)
}

func (s *BroadcasterSuite) TestRunFollowsChanges() {
	client := s.hubs.Attach(bcastRoom, "p1")

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- s.broadcaster.Run(ctx) }()

	// Run may subscribe after the first save, so keep saving newer versions
	version := int64(0)
	s.Require().Eventually(func() bool {
		version++
		s.saveRoom(version)
		select {
		case msg := <-client.send:
			return strings.HasPrefix(string(msg), "event: room-update")
		case <-time.After(10 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.FailNow("broadcaster did not stop")
	}
	s.Equal(0, s.hubs.HubCount())
}

func (s *BroadcasterSuite) TestRunCleansUpEmptyHubs() {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	go func() { _ = s.broadcaster.Run(ctx) }()
	s.Require().Eventually(func() bool {
		_, ok := s.clock.Peek()
		return ok
	}, time.Second, 5*time.Millisecond)

	s.hubs.GetOrCreateHub("IDLE01")
	s.clock.Advance(DefaultCleanupInterval).MustWait(ctx)

	s.Eventually(func() bool { return s.hubs.GetHub("IDLE01") == nil }, time.Second, 5*time.Millisecond)
}
