package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/storage"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

func (s *StorageSuite) newRoom(code model.RoomCode) *model.Room {
	host := &model.Player{ID: "host", DisplayName: "Host"}
	return model.NewRoom(code, host, "", model.DefaultSettings(), time.Now())
}

func (s *StorageSuite) saveRoom(room *model.Room) {
	err := s.storage.RunTransaction(s.ctx, room.Code, func(tx storage.Transaction) error {
		return tx.SaveRoom(room)
	})
	s.Require().NoError(err)
}

// Player tests

func (s *StorageSuite) TestSaveAndGetPlayer() {
	player := &model.Player{ID: "player-1", DisplayName: "Alice", CreatedAt: time.Now()}
	s.Require().NoError(s.storage.SavePlayer(s.ctx, player))

	retrieved, err := s.storage.GetPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal("Alice", retrieved.DisplayName)

	s.Require().NoError(s.storage.DeletePlayer(s.ctx, "player-1"))
	_, err = s.storage.GetPlayer(s.ctx, "player-1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestGetRegisteredPlayerByUsername() {
	rp := &model.RegisteredPlayer{PlayerID: "player-1", Username: "alice", PasswordHash: "hash"}
	s.Require().NoError(s.storage.SaveRegisteredPlayer(s.ctx, rp))

	retrieved, err := s.storage.GetRegisteredPlayerByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), retrieved.PlayerID)

	_, err = s.storage.GetRegisteredPlayerByUsername(s.ctx, "bob")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Room tests

func (s *StorageSuite) TestSaveAndGetRoom() {
	room := s.newRoom("ABCDEF")
	s.saveRoom(room)

	retrieved, err := s.storage.GetRoom(s.ctx, "ABCDEF")
	s.Require().NoError(err)
	s.Equal(room.HostUID, retrieved.HostUID)
	s.Equal(model.PhaseLobby, retrieved.Phase)

	exists, err := s.storage.RoomExists(s.ctx, "ABCDEF")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *StorageSuite) TestGetRoomNotFound() {
	_, err := s.storage.GetRoom(s.ctx, "ZZZZZZ")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *StorageSuite) TestReturnedRoomIsACopy() {
	s.saveRoom(s.newRoom("ABCDEF"))

	room, err := s.storage.GetRoom(s.ctx, "ABCDEF")
	s.Require().NoError(err)
	room.Players["host"].Score = 99

	again, err := s.storage.GetRoom(s.ctx, "ABCDEF")
	s.Require().NoError(err)
	s.Equal(0, again.Players["host"].Score)
}

func (s *StorageSuite) TestTransactionWritesHandsAndDecks() {
	room := s.newRoom("ABCDEF")
	err := s.storage.RunTransaction(s.ctx, room.Code, func(tx storage.Transaction) error {
		if err := tx.SaveHand(&model.Hand{Room: room.Code, UID: "host", Cards: model.MustParseCards("As Kd")}); err != nil {
			return err
		}
		if err := tx.SaveDeck(model.NewDeck(room.Code, "host", model.MustParseCards("2c 3c"))); err != nil {
			return err
		}
		return tx.SaveRoom(room)
	})
	s.Require().NoError(err)

	hand, err := s.storage.GetHand(s.ctx, room.Code, "host")
	s.Require().NoError(err)
	s.Equal(model.MustParseCards("As Kd"), hand.Cards)

	err = s.storage.RunTransaction(s.ctx, room.Code, func(tx storage.Transaction) error {
		deck, err := tx.GetDeck("host")
		if err != nil {
			return err
		}
		s.Len(deck.Cards, 2)
		return tx.DeleteHand("host")
	})
	s.Require().NoError(err)

	_, err = s.storage.GetHand(s.ctx, room.Code, "host")
	s.ErrorIs(err, model.ErrHandNotFound)
}

func (s *StorageSuite) TestReadAfterWriteFails() {
	room := s.newRoom("ABCDEF")
	err := s.storage.RunTransaction(s.ctx, room.Code, func(tx storage.Transaction) error {
		if err := tx.SaveRoom(room); err != nil {
			return err
		}
		_, err := tx.GetRoom()
		return err
	})
	s.ErrorIs(err, storage.ErrReadAfterWrite)

	_, err = s.storage.GetRoom(s.ctx, room.Code)
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *StorageSuite) TestFailedTransactionWritesNothing() {
	room := s.newRoom("ABCDEF")
	boom := errors.New("boom")
	err := s.storage.RunTransaction(s.ctx, room.Code, func(tx storage.Transaction) error {
		_ = tx.SaveRoom(room)
		return boom
	})
	s.ErrorIs(err, boom)

	exists, err := s.storage.RoomExists(s.ctx, room.Code)
	s.Require().NoError(err)
	s.False(exists)
}

func (s *StorageSuite) TestDeleteRoomRemovesHandsAndDecks() {
	room := s.newRoom("ABCDEF")
	err := s.storage.RunTransaction(s.ctx, room.Code, func(tx storage.Transaction) error {
		_ = tx.SaveHand(model.NewHand(room.Code, "host"))
		_ = tx.SaveDeck(model.NewDeck(room.Code, "host", nil))
		return tx.SaveRoom(room)
	})
	s.Require().NoError(err)

	s.Require().NoError(s.storage.DeleteRoom(s.ctx, room.Code))

	_, err = s.storage.GetRoom(s.ctx, room.Code)
	s.ErrorIs(err, model.ErrRoomNotFound)
	_, err = s.storage.GetHand(s.ctx, room.Code, "host")
	s.ErrorIs(err, model.ErrHandNotFound)

	codes, err := s.storage.ListRooms(s.ctx)
	s.Require().NoError(err)
	s.Empty(codes)
}

func (s *StorageSuite) TestListRooms() {
	s.saveRoom(s.newRoom("BBBBBB"))
	s.saveRoom(s.newRoom("AAAAAA"))

	codes, err := s.storage.ListRooms(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.RoomCode{"AAAAAA", "BBBBBB"}, codes)
}

func (s *StorageSuite) TestTransactionsOnOneRoomAreSerialized() {
	room := s.newRoom("ABCDEF")
	s.saveRoom(room)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.storage.RunTransaction(s.ctx, room.Code, func(tx storage.Transaction) error {
				r, err := tx.GetRoom()
				if err != nil {
					return err
				}
				r.Version++
				return tx.SaveRoom(r)
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	final, err := s.storage.GetRoom(s.ctx, room.Code)
	s.Require().NoError(err)
	s.Equal(int64(20), final.Version)
}

// Subscription tests

func (s *StorageSuite) TestSubscribeReceivesChanges() {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	changes, err := s.storage.Subscribe(ctx)
	s.Require().NoError(err)

	room := s.newRoom("ABCDEF")
	room.Version = 3
	s.saveRoom(room)

	select {
	case change := <-changes:
		s.Equal(model.RoomCode("ABCDEF"), change.Room)
		s.Equal(int64(3), change.Version)
		s.False(change.Deleted)
	case <-time.After(time.Second):
		s.Fail("no change received")
	}

	s.Require().NoError(s.storage.DeleteRoom(s.ctx, "ABCDEF"))
	select {
	case change := <-changes:
		s.True(change.Deleted)
	case <-time.After(time.Second):
		s.Fail("no delete received")
	}
}

func (s *StorageSuite) TestReadOnlyTransactionDoesNotNotify() {
	s.saveRoom(s.newRoom("ABCDEF"))

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	changes, err := s.storage.Subscribe(ctx)
	s.Require().NoError(err)

	err = s.storage.RunTransaction(s.ctx, "ABCDEF", func(tx storage.Transaction) error {
		_, err := tx.GetRoom()
		return err
	})
	s.Require().NoError(err)

	select {
	case change := <-changes:
		s.Failf("unexpected change", "%+v", change)
	case <-time.After(50 * time.Millisecond):
	}
}

func (s *StorageSuite) TestSubscriptionClosesOnCancel() {
	ctx, cancel := context.WithCancel(s.ctx)
	changes, err := s.storage.Subscribe(ctx)
	s.Require().NoError(err)

	cancel()
	s.Eventually(func() bool {
		select {
		case _, ok := <-changes:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
