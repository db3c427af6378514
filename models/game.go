// models/game.go
package models

import "encoding/json"

// TransportType 交通方式，每种方式有独立的车票计数
type TransportType string

const (
	Rickshaw TransportType = "rickshaw"
	Bus      TransportType = "bus"
	Metro    TransportType = "metro"
	Train    TransportType = "train"
)

// TransportTypes lists every transport type in enumeration order.
var TransportTypes = []TransportType{Rickshaw, Bus, Metro, Train}

// Valid reports whether t is one of the known transport types.
func (t TransportType) Valid() bool {
	switch t {
	case Rickshaw, Bus, Metro, Train:
		return true
	}
	return false
}

// Role 玩家角色，开局前为空
type Role string

const (
	RoleNone      Role = ""
	RoleMrX       Role = "mrx"
	RoleDetective Role = "detective"
)

// MarshalJSON 开局前的空角色编码为 null
func (r Role) MarshalJSON() ([]byte, error) {
	if r == RoleNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

// GameState 房间所处的游戏阶段
type GameState string

const (
	StateWaiting            GameState = "WAITING"
	StateMrXPlacement       GameState = "MRX_PLACEMENT"
	StateDetectivePlacement GameState = "DETECTIVE_PLACEMENT"
	StateInProgress         GameState = "IN_PROGRESS"
	StateFinished           GameState = "FINISHED"
)

// Active reports whether the game has started and not yet finished.
func (s GameState) Active() bool {
	return s == StateMrXPlacement || s == StateDetectivePlacement || s == StateInProgress
}

// Winner 胜利方
type Winner string

const (
	WinnerNone         Winner = ""
	WinnerMrX          Winner = "mrx"
	WinnerDetectives   Winner = "detectives"
	WinnerDisconnected Winner = "disconnected"
)

// MarshalJSON encodes the undecided winner as null.
func (w Winner) MarshalJSON() ([]byte, error) {
	if w == WinnerNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(w))
}

// Tickets maps a transport type to the remaining ticket count.
type Tickets map[TransportType]int

// Clone returns an independent copy.
func (t Tickets) Clone() Tickets {
	out := make(Tickets, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Total 所有交通方式的剩余车票总数
func (t Tickets) Total() int {
	total := 0
	for _, v := range t {
		total += v
	}
	return total
}

// MoveOption is one reachable target for the player whose turn it is.
// Transports is empty during placement.
type MoveOption struct {
	NodeID     string          `json:"nodeId"`
	Transports []TransportType `json:"transportTypes"`
}
