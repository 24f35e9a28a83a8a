package storage

import (
	"context"
	"errors"

	"github.com/mcoot/openface/internal/model"
)

// MaxTransactionAttempts bounds how often a conflicting transaction is retried
const MaxTransactionAttempts = 5

var (
	// ErrReadAfterWrite is returned when a transaction reads after it has written
	ErrReadAfterWrite = errors.New("transaction read issued after a write")
	// ErrTransactionConflict is returned when a transaction keeps losing to concurrent writers
	ErrTransactionConflict = errors.New("transaction conflict: too many attempts")
)

// Change is a notification that a room document was written
type Change struct {
	Room    model.RoomCode `json:"room"`
	Version int64          `json:"version"`
	Deleted bool           `json:"deleted,omitempty"`
}

// Transaction is a read-then-write unit of work scoped to one room. Every read
// must be issued before the first write; reading afterwards fails with
// ErrReadAfterWrite. Writes are buffered and applied atomically when the
// transaction function returns nil.
type Transaction interface {
	GetRoom() (*model.Room, error)
	GetHand(uid model.PlayerID) (*model.Hand, error)
	GetDeck(uid model.PlayerID) (*model.Deck, error)

	SaveRoom(room *model.Room) error
	SaveHand(hand *model.Hand) error
	SaveDeck(deck *model.Deck) error
	DeleteHand(uid model.PlayerID) error
	DeleteDeck(uid model.PlayerID) error
	// DeleteRoom removes the room along with every hand and deck in it
	DeleteRoom() error
}

// Storage defines the interface for data persistence
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	DeletePlayer(ctx context.Context, id model.PlayerID) error

	// Registered player operations
	SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error
	GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error)
	GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error)

	// Room operations
	RunTransaction(ctx context.Context, code model.RoomCode, fn func(tx Transaction) error) error
	GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error)
	GetHand(ctx context.Context, code model.RoomCode, uid model.PlayerID) (*model.Hand, error)
	RoomExists(ctx context.Context, code model.RoomCode) (bool, error)
	ListRooms(ctx context.Context) ([]model.RoomCode, error)
	DeleteRoom(ctx context.Context, code model.RoomCode) error

	// Subscribe streams room changes until ctx is cancelled. Slow consumers
	// may miss changes and should resync from the store.
	Subscribe(ctx context.Context) (<-chan Change, error)
}
