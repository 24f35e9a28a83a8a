package redis

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/openface/internal/model"
	"github.com/mcoot/openface/internal/storage"
)

// changeBuffer is the channel capacity handed to each subscriber
const changeBuffer = 64

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	// Apply TTL only for guest players
	var ttl time.Duration
	if player.IsGuest {
		ttl = s.cfg.GuestPlayerTTL
	}
	return s.client.Set(ctx, playerKey(player.ID), data, ttl).Err()
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var player model.Player
	if err := getJSON(ctx, s.client, playerKey(id), &player, model.ErrPlayerNotFound); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	return s.client.Del(ctx, playerKey(id)).Err()
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	data, err := json.Marshal(rp)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, registeredPlayerKey(rp.PlayerID), data, 0)
	pipe.Set(ctx, usernameIndexKey(rp.Username), string(rp.PlayerID), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	var rp model.RegisteredPlayer
	if err := getJSON(ctx, s.client, registeredPlayerKey(playerID), &rp, model.ErrPlayerNotFound); err != nil {
		return nil, err
	}
	return &rp, nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	playerIDStr, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	return s.GetRegisteredPlayer(ctx, model.PlayerID(playerIDStr))
}

// Room operations

// RunTransaction runs fn under WATCH on the room key and every key it reads,
// then commits the buffered writes in MULTI/EXEC together with the change
// notification. A commit that loses to a concurrent writer reruns fn from
// scratch.
func (s *Storage) RunTransaction(ctx context.Context, code model.RoomCode, fn func(tx storage.Transaction) error) error {
	for attempt := 0; attempt < storage.MaxTransactionAttempts; attempt++ {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			t := &transaction{ctx: ctx, rtx: rtx, code: code, cfg: s.cfg}
			if err := fn(t); err != nil {
				return err
			}
			return t.commit()
		}, roomKey(code))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return storage.ErrTransactionConflict
}

func (s *Storage) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	var room model.Room
	if err := getJSON(ctx, s.client, roomKey(code), &room, model.ErrRoomNotFound); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Storage) GetHand(ctx context.Context, code model.RoomCode, uid model.PlayerID) (*model.Hand, error) {
	var hand model.Hand
	if err := getJSON(ctx, s.client, handKey(code, uid), &hand, model.ErrHandNotFound); err != nil {
		return nil, err
	}
	return &hand, nil
}

func (s *Storage) RoomExists(ctx context.Context, code model.RoomCode) (bool, error) {
	exists, err := s.client.Exists(ctx, roomKey(code)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// ListRooms returns the indexed room codes, pruning entries whose room expired
func (s *Storage) ListRooms(ctx context.Context) ([]model.RoomCode, error) {
	members, err := s.client.SMembers(ctx, roomsIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	codes := make([]model.RoomCode, 0, len(members))
	for _, m := range members {
		code := model.RoomCode(m)
		exists, err := s.RoomExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if !exists {
			s.client.SRem(ctx, roomsIndexKey(), m)
			continue
		}
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

// Subscribe listens on the change channel until ctx is done
func (s *Storage) Subscribe(ctx context.Context) (<-chan storage.Change, error) {
	pubsub := s.client.Subscribe(ctx, changesChannel())
	// Wait for the subscription to be confirmed so no change is missed after return
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan storage.Change, changeBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var change storage.Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					continue
				}
				select {
				case out <- change:
				default:
				}
			}
		}
	}()
	return out, nil
}

// getter is satisfied by both the client and a WATCH transaction
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getJSON(ctx context.Context, g getter, key string, v any, notFound error) error {
	data, err := g.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

type op struct {
	key  string
	data []byte
	del  bool
}

type transaction struct {
	ctx  context.Context
	rtx  *redis.Tx
	code model.RoomCode
	cfg  Config

	ops        []op
	version    int64
	savedRoom  bool
	deleteRoom bool
}

func (t *transaction) checkRead() error {
	if len(t.ops) > 0 || t.deleteRoom {
		return storage.ErrReadAfterWrite
	}
	return nil
}

func (t *transaction) read(key string, v any, notFound error) error {
	if err := t.checkRead(); err != nil {
		return err
	}
	if err := t.rtx.Watch(t.ctx, key).Err(); err != nil {
		return err
	}
	return getJSON(t.ctx, t.rtx, key, v, notFound)
}

func (t *transaction) GetRoom() (*model.Room, error) {
	var room model.Room
	if err := t.read(roomKey(t.code), &room, model.ErrRoomNotFound); err != nil {
		return nil, err
	}
	return &room, nil
}

func (t *transaction) GetHand(uid model.PlayerID) (*model.Hand, error) {
	var hand model.Hand
	if err := t.read(handKey(t.code, uid), &hand, model.ErrHandNotFound); err != nil {
		return nil, err
	}
	return &hand, nil
}

func (t *transaction) GetDeck(uid model.PlayerID) (*model.Deck, error) {
	var deck model.Deck
	if err := t.read(deckKey(t.code, uid), &deck, model.ErrDeckNotFound); err != nil {
		return nil, err
	}
	return &deck, nil
}

func (t *transaction) set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.ops = append(t.ops, op{key: key, data: data})
	return nil
}

func (t *transaction) SaveRoom(room *model.Room) error {
	t.savedRoom = true
	t.version = room.Version
	return t.set(roomKey(t.code), room)
}

func (t *transaction) SaveHand(hand *model.Hand) error {
	return t.set(handKey(t.code, hand.UID), hand)
}

func (t *transaction) SaveDeck(deck *model.Deck) error {
	return t.set(deckKey(t.code, deck.UID), deck)
}

func (t *transaction) DeleteHand(uid model.PlayerID) error {
	t.ops = append(t.ops, op{key: handKey(t.code, uid), del: true})
	return nil
}

func (t *transaction) DeleteDeck(uid model.PlayerID) error {
	t.ops = append(t.ops, op{key: deckKey(t.code, uid), del: true})
	return nil
}

func (t *transaction) DeleteRoom() error {
	t.deleteRoom = true
	return nil
}

// commit writes everything in one MULTI/EXEC. Returns redis.TxFailedErr when a
// watched key changed.
func (t *transaction) commit() error {
	if len(t.ops) == 0 && !t.deleteRoom {
		return nil
	}

	change := storage.Change{Room: t.code, Version: t.version}
	var subkeys []string
	if t.deleteRoom {
		change = storage.Change{Room: t.code, Deleted: true}
		iter := t.rtx.Scan(t.ctx, 0, roomSubkeyPattern(t.code), 100).Iterator()
		for iter.Next(t.ctx) {
			subkeys = append(subkeys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}

	_, err = t.rtx.TxPipelined(t.ctx, func(pipe redis.Pipeliner) error {
		if t.deleteRoom {
			pipe.Del(t.ctx, roomKey(t.code))
			if len(subkeys) > 0 {
				pipe.Del(t.ctx, subkeys...)
			}
			pipe.SRem(t.ctx, roomsIndexKey(), string(t.code))
		} else {
			for _, o := range t.ops {
				if o.del {
					pipe.Del(t.ctx, o.key)
				} else {
					pipe.Set(t.ctx, o.key, o.data, t.cfg.RoomTTL)
				}
			}
			if t.savedRoom {
				pipe.SAdd(t.ctx, roomsIndexKey(), string(t.code))
			}
		}
		pipe.Publish(t.ctx, changesChannel(), payload)
		return nil
	})
	return err
}
