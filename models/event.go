// models/event.go
package models

// EventType names a notification raised by a transition, in addition to the
// room snapshot that follows every accepted mutation.
type EventType string

const (
	EventMrXMoved          EventType = "mrxMoved"
	EventMrXLocationReveal EventType = "mrxLocationReveal"
	EventGameEnded         EventType = "gameEnded"
)

// Event 状态转换过程中产生的通知
type Event struct {
	Type       EventType
	TurnNumber int
	Winner     Winner
}
