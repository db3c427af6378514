// state/action.go
package state

import "github.com/wfunc/mrxserver/models"

// Action 玩家意图，由当前阶段的状态处理
type Action interface {
	Name() string
}

// Join 加入房间
type Join struct {
	PlayerName string
}

// Leave 离开房间（主动离开或断线）
type Leave struct{}

// Start 房主开始游戏
type Start struct{}

// Place 落子到起始节点
type Place struct {
	NodeID string
}

// Move 使用车票移动
type Move struct {
	NodeID    string
	Transport models.TransportType
}

// Timeout is raised by the turn deadline on behalf of the current player.
type Timeout struct{}

func (Join) Name() string    { return "join" }
func (Leave) Name() string   { return "leave" }
func (Start) Name() string   { return "start" }
func (Place) Name() string   { return "place" }
func (Move) Name() string    { return "move" }
func (Timeout) Name() string { return "timeout" }
