package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/storage"
)

// subscriberBuffer is the change channel capacity per subscriber
const subscriberBuffer = 64

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players           map[model.PlayerID]*model.Player
	registeredPlayers map[model.PlayerID]*model.RegisteredPlayer
	usernameIndex     map[string]model.PlayerID
	rooms             map[model.RoomCode]*model.Room
	hands             map[memberKey]*model.Hand
	decks             map[memberKey]*model.Deck

	// roomLocks serialize transactions per room
	locksMu   sync.Mutex
	roomLocks map[model.RoomCode]*sync.Mutex

	subMu       sync.Mutex
	subscribers map[int]chan storage.Change
	nextSub     int
}

type memberKey struct {
	room model.RoomCode
	uid  model.PlayerID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:           make(map[model.PlayerID]*model.Player),
		registeredPlayers: make(map[model.PlayerID]*model.RegisteredPlayer),
		usernameIndex:     make(map[string]model.PlayerID),
		rooms:             make(map[model.RoomCode]*model.Room),
		hands:             make(map[memberKey]*model.Hand),
		decks:             make(map[memberKey]*model.Deck),
		roomLocks:         make(map[model.RoomCode]*sync.Mutex),
		subscribers:       make(map[int]chan storage.Change),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *player
	s.players[player.ID] = &cp
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	cp := *player
	return &cp, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, id)
	return nil
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rp
	s.registeredPlayers[rp.PlayerID] = &cp
	s.usernameIndex[rp.Username] = rp.PlayerID
	return nil
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rp, ok := s.registeredPlayers[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	cp := *rp
	return &cp, nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	playerID, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	rp, ok := s.registeredPlayers[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	cp := *rp
	return &cp, nil
}

// Room operations

func (s *Storage) roomLock(code model.RoomCode) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.roomLocks[code]
	if !ok {
		l = &sync.Mutex{}
		s.roomLocks[code] = l
	}
	return l
}

// RunTransaction runs fn with exclusive access to the room. Transactions on
// one room never conflict here, so fn runs exactly once.
func (s *Storage) RunTransaction(ctx context.Context, code model.RoomCode, fn func(tx storage.Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.roomLock(code)
	l.Lock()
	defer l.Unlock()

	tx := &transaction{s: s, code: code}
	if err := fn(tx); err != nil {
		return err
	}
	if change, ok := tx.commit(); ok {
		s.notify(change)
	}
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *Storage) GetHand(ctx context.Context, code model.RoomCode, uid model.PlayerID) (*model.Hand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hand, ok := s.hands[memberKey{room: code, uid: uid}]
	if !ok {
		return nil, model.ErrHandNotFound
	}
	return hand.Clone(), nil
}

func (s *Storage) RoomExists(ctx context.Context, code model.RoomCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[code]
	return ok, nil
}

func (s *Storage) ListRooms(ctx context.Context) ([]model.RoomCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]model.RoomCode, 0, len(s.rooms))
	for code := range s.rooms {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes, nil
}

func (s *Storage) DeleteRoom(ctx context.Context, code model.RoomCode) error {
	return s.RunTransaction(ctx, code, func(tx storage.Transaction) error {
		return tx.DeleteRoom()
	})
}

// Subscribe registers a change listener until ctx is done
func (s *Storage) Subscribe(ctx context.Context) (<-chan storage.Change, error) {
	ch := make(chan storage.Change, subscriberBuffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	s.subMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subMu.Lock()
		delete(s.subscribers, id)
		close(ch)
		s.subMu.Unlock()
	}()
	return ch, nil
}

func (s *Storage) notify(change storage.Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- change:
		default:
			// subscriber is behind; it resyncs on its own schedule
		}
	}
}

type write struct {
	room   *model.Room
	hand   *model.Hand
	deck   *model.Deck
	delete bool
}

// transaction buffers writes until commit
type transaction struct {
	s          *Storage
	code       model.RoomCode
	writes     []write
	deleteRoom bool
}

func (t *transaction) checkRead() error {
	if len(t.writes) > 0 || t.deleteRoom {
		return storage.ErrReadAfterWrite
	}
	return nil
}

func (t *transaction) GetRoom() (*model.Room, error) {
	if err := t.checkRead(); err != nil {
		return nil, err
	}
	return t.s.GetRoom(context.Background(), t.code)
}

func (t *transaction) GetHand(uid model.PlayerID) (*model.Hand, error) {
	if err := t.checkRead(); err != nil {
		return nil, err
	}
	return t.s.GetHand(context.Background(), t.code, uid)
}

func (t *transaction) GetDeck(uid model.PlayerID) (*model.Deck, error) {
	if err := t.checkRead(); err != nil {
		return nil, err
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	deck, ok := t.s.decks[memberKey{room: t.code, uid: uid}]
	if !ok {
		return nil, model.ErrDeckNotFound
	}
	return deck.Clone(), nil
}

func (t *transaction) SaveRoom(room *model.Room) error {
	t.writes = append(t.writes, write{room: room.Clone()})
	return nil
}

func (t *transaction) SaveHand(hand *model.Hand) error {
	t.writes = append(t.writes, write{hand: hand.Clone()})
	return nil
}

func (t *transaction) SaveDeck(deck *model.Deck) error {
	t.writes = append(t.writes, write{deck: deck.Clone()})
	return nil
}

func (t *transaction) DeleteHand(uid model.PlayerID) error {
	t.writes = append(t.writes, write{hand: &model.Hand{Room: t.code, UID: uid}, delete: true})
	return nil
}

func (t *transaction) DeleteDeck(uid model.PlayerID) error {
	t.writes = append(t.writes, write{deck: &model.Deck{Room: t.code, UID: uid}, delete: true})
	return nil
}

func (t *transaction) DeleteRoom() error {
	t.deleteRoom = true
	return nil
}

// commit applies the buffered writes and reports the resulting change
func (t *transaction) commit() (storage.Change, bool) {
	if len(t.writes) == 0 && !t.deleteRoom {
		return storage.Change{}, false
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.deleteRoom {
		delete(t.s.rooms, t.code)
		for key := range t.s.hands {
			if key.room == t.code {
				delete(t.s.hands, key)
			}
		}
		for key := range t.s.decks {
			if key.room == t.code {
				delete(t.s.decks, key)
			}
		}
		return storage.Change{Room: t.code, Deleted: true}, true
	}

	change := storage.Change{Room: t.code}
	for _, w := range t.writes {
		switch {
		case w.room != nil:
			t.s.rooms[t.code] = w.room
			change.Version = w.room.Version
		case w.hand != nil && w.delete:
			delete(t.s.hands, memberKey{room: t.code, uid: w.hand.UID})
		case w.hand != nil:
			t.s.hands[memberKey{room: t.code, uid: w.hand.UID}] = w.hand
		case w.deck != nil && w.delete:
			delete(t.s.decks, memberKey{room: t.code, uid: w.deck.UID})
		case w.deck != nil:
			t.s.decks[memberKey{room: t.code, uid: w.deck.UID}] = w.deck
		}
	}
	return change, true
}
