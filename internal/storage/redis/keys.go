package redis

import (
	"fmt"

	"github.com/mcoot/openface/internal/model"
)

// Key prefix for all engine data
const keyPrefix = "ofc"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// registeredPlayerKey returns the Redis key for a RegisteredPlayer
func registeredPlayerKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:registered_player:%s", keyPrefix, playerID)
}

// usernameIndexKey returns the Redis key for the username -> player_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// roomKey returns the Redis key for a Room document
func roomKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, code)
}

// handKey returns the Redis key for a player's private hand in a room
func handKey(code model.RoomCode, uid model.PlayerID) string {
	return fmt.Sprintf("%s:room:%s:hand:%s", keyPrefix, code, uid)
}

// deckKey returns the Redis key for a player's undealt cards in a room
func deckKey(code model.RoomCode, uid model.PlayerID) string {
	return fmt.Sprintf("%s:room:%s:deck:%s", keyPrefix, code, uid)
}

// roomSubkeyPattern matches every hand and deck key of a room
func roomSubkeyPattern(code model.RoomCode) string {
	return fmt.Sprintf("%s:room:%s:*", keyPrefix, code)
}

// roomsIndexKey returns the Redis key for the SET of live room codes
func roomsIndexKey() string {
	return fmt.Sprintf("%s:rooms", keyPrefix)
}

// changesChannel is the pub/sub channel carrying room change notifications
func changesChannel() string {
	return fmt.Sprintf("%s:changes", keyPrefix)
}
