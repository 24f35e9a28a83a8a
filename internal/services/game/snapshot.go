package game

import (
	"errors"
	"time"

	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/storage"
)

// Snapshot is a room together with every member's hand and deck, read in full
// before anything is written. Transitions mutate the snapshot in memory and
// Commit writes back only what changed, room last.
type Snapshot struct {
	tx    storage.Transaction
	Room  *model.Room
	hands map[model.PlayerID]*model.Hand
	decks map[model.PlayerID]*model.Deck

	dirtyHands map[model.PlayerID]bool
	dirtyDecks map[model.PlayerID]bool
	dropped    map[model.PlayerID]bool
	roomDirty  bool
	deleted    bool
}

// Load reads the room and all of its subcollections
func Load(tx storage.Transaction) (*Snapshot, error) {
	room, err := tx.GetRoom()
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		tx:         tx,
		Room:       room,
		hands:      make(map[model.PlayerID]*model.Hand, len(room.Players)),
		decks:      make(map[model.PlayerID]*model.Deck, len(room.Players)),
		dirtyHands: make(map[model.PlayerID]bool),
		dirtyDecks: make(map[model.PlayerID]bool),
		dropped:    make(map[model.PlayerID]bool),
	}
	for uid := range room.Players {
		hand, err := tx.GetHand(uid)
		switch {
		case err == nil:
			snap.hands[uid] = hand
		case !errors.Is(err, model.ErrHandNotFound):
			return nil, err
		}
		deck, err := tx.GetDeck(uid)
		switch {
		case err == nil:
			snap.decks[uid] = deck
		case !errors.Is(err, model.ErrDeckNotFound):
			return nil, err
		}
	}
	return snap, nil
}

// Hand returns the player's hand, empty if none is stored
func (s *Snapshot) Hand(uid model.PlayerID) *model.Hand {
	hand, ok := s.hands[uid]
	if !ok {
		hand = model.NewHand(s.Room.Code, uid)
		s.hands[uid] = hand
	}
	return hand
}

// Deck returns the player's deck, empty if none is stored
func (s *Snapshot) Deck(uid model.PlayerID) *model.Deck {
	deck, ok := s.decks[uid]
	if !ok {
		deck = model.NewDeck(s.Room.Code, uid, nil)
		s.decks[uid] = deck
	}
	return deck
}

// SetHand replaces the player's hand
func (s *Snapshot) SetHand(uid model.PlayerID, cards []model.Card) {
	s.Hand(uid).Cards = cards
	s.MarkHand(uid)
}

// SetDeck replaces the player's deck
func (s *Snapshot) SetDeck(uid model.PlayerID, cards []model.Card) {
	s.decks[uid] = model.NewDeck(s.Room.Code, uid, cards)
	s.MarkDeck(uid)
}

// MarkHand records that the player's hand was modified in place
func (s *Snapshot) MarkHand(uid model.PlayerID) {
	s.dirtyHands[uid] = true
	s.roomDirty = true
}

// MarkDeck records that the player's deck was modified in place
func (s *Snapshot) MarkDeck(uid model.PlayerID) {
	s.dirtyDecks[uid] = true
	s.roomDirty = true
}

// Touch records that the room document was modified
func (s *Snapshot) Touch() {
	s.roomDirty = true
}

// Drop deletes a member's hand and deck on commit
func (s *Snapshot) Drop(uid model.PlayerID) {
	s.dropped[uid] = true
	delete(s.dirtyHands, uid)
	delete(s.dirtyDecks, uid)
	s.roomDirty = true
}

// DeleteRoom removes the room and everything under it on commit
func (s *Snapshot) DeleteRoom() {
	s.deleted = true
}

// Deleted reports whether the room is being deleted
func (s *Snapshot) Deleted() bool {
	return s.deleted
}

// Commit writes every modified document. The room document goes last with its
// version bumped. Nothing is written when the snapshot is unchanged.
func (s *Snapshot) Commit(now time.Time) error {
	if s.deleted {
		return s.tx.DeleteRoom()
	}
	if !s.roomDirty {
		return nil
	}
	for uid := range s.dropped {
		if err := s.tx.DeleteHand(uid); err != nil {
			return err
		}
		if err := s.tx.DeleteDeck(uid); err != nil {
			return err
		}
	}
	for uid := range s.dirtyHands {
		if err := s.tx.SaveHand(s.hands[uid]); err != nil {
			return err
		}
	}
	for uid := range s.dirtyDecks {
		if err := s.tx.SaveDeck(s.decks[uid]); err != nil {
			return err
		}
	}
	s.Room.Version++
	s.Room.UpdatedAt = now
	return s.tx.SaveRoom(s.Room)
}
