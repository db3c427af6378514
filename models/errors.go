// models/errors.go
package models

// GameError is a rejected intent. It never reflects corrupted state: the
// operation that returned it changed nothing.
type GameError struct {
	Code    string
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

func newGameError(code, message string) *GameError {
	return &GameError{Code: code, Message: message}
}

// 错误定义
var (
	ErrRoomNotFound        = newGameError("RoomNotFound", "room not found")
	ErrRoomExists          = newGameError("RoomExists", "room already exists")
	ErrRoomClosed          = newGameError("RoomClosed", "room has been closed")
	ErrRoomFull            = newGameError("RoomFull", "room is full")
	ErrNotEnoughPlayers    = newGameError("NotEnoughPlayers", "need at least 2 players to start")
	ErrGameInProgress      = newGameError("GameInProgress", "game is already in progress")
	ErrNotHost             = newGameError("NotHost", "only the host can start the game")
	ErrNotInRoom           = newGameError("NotInRoom", "player is not in this room")
	ErrNotYourTurn         = newGameError("NotYourTurn", "not your turn")
	ErrWrongPhase          = newGameError("WrongPhase", "action not allowed in the current phase")
	ErrUnknownNode         = newGameError("UnknownNode", "unknown node")
	ErrInvalidNodeType     = newGameError("InvalidNodeType", "players must start on a start node")
	ErrNodeOccupied        = newGameError("NodeOccupied", "node is already occupied")
	ErrUnknownTransport    = newGameError("UnknownTransport", "unknown transport type")
	ErrNoSuchEdge          = newGameError("NoSuchEdge", "no such connection for this transport")
	ErrInsufficientTickets = newGameError("InsufficientTickets", "not enough tickets")
	ErrBadRequest          = newGameError("BadRequest", "malformed request")
)
