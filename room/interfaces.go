package room

import (
	"time"

	"github.com/wfunc/mrxserver/models"
)

// Broadcaster defines the interface for sending packets to players.
// This is defined here to break the import cycle between room and broadcast.
// Rooms call it while holding their lock, so it must not call back into a room.
type Broadcaster interface {
	BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte) error
}

// Scheduler arms turn deadlines. timer.TimerManager satisfies it.
type Scheduler interface {
	AddTimer(delay time.Duration, interval time.Duration, callback func()) int64
	RemoveTimer(timerId int64)
}

// Hooks are notified of game lifecycle changes. They run under the room lock
// and must not block or call back into the room.
// OnStart gets the room right after roles are dealt; OnFinish gets the final
// room plus the players seated at start, including any who left mid-game.
type Hooks struct {
	OnStart  func(game models.Room)
	OnFinish func(game models.Room, roster []models.Player, startedAt time.Time)
}
