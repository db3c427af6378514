// state/interfaces.go
package state

import (
	"github.com/wfunc/mrxserver/gamemap"
	"github.com/wfunc/mrxserver/models"
)

// RoomContext defines the interface that a Room must implement to be managed by the state machine.
// This breaks the import cycle between room and state.
type RoomContext interface {
	GetID() string
	// Game returns the mutable room data. Callers hold the room's lock.
	Game() *models.Room
	Map() *gamemap.Map
	Rules() models.Rules
	ChangeState(newState State) error
	// Emit queues a notification; the room publishes the queue once the
	// action has been applied.
	Emit(event models.Event)
	// RandomIndex returns a uniformly random index in [0, n).
	RandomIndex(n int) int
}
