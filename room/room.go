// room/room.go
package room

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/mrxserver/gamemap"
	"github.com/wfunc/mrxserver/logger"
	"github.com/wfunc/mrxserver/models"
	"github.com/wfunc/mrxserver/network"
	"github.com/wfunc/mrxserver/state"
)

// Room 是游戏房间的核心结构。所有修改都经过 mutex 串行化，
// 广播也在锁内完成，保证客户端收到的快照顺序与状态转换顺序一致。
type Room struct {
	game         *models.Room
	gmap         *gamemap.Map
	rules        models.Rules
	StateMachine *state.BaseStateMachine
	CreatedAt    time.Time
	startedAt    time.Time
	roster       []models.Player
	broadcaster  Broadcaster // Use the interface, not the concrete type
	scheduler    Scheduler
	turnLimit    time.Duration
	hooks        Hooks
	randIndex    func(n int) int
	onEmpty      func(*Room)

	pending []models.Event
	timerID int64
	turnSeq uint64
	closed  bool
	mutex   sync.Mutex
}

// NewRoom 创建一个新房间
func NewRoom(code string, cfg Config) *Room {
	room := &Room{
		game:        models.NewRoom(code),
		gmap:        cfg.Map,
		rules:       cfg.Rules,
		CreatedAt:   time.Now(),
		broadcaster: cfg.Broadcaster,
		scheduler:   cfg.Scheduler,
		turnLimit:   cfg.TurnTimeLimit,
		hooks:       cfg.Hooks,
		randIndex:   cfg.RandIndex,
	}
	if room.randIndex == nil {
		room.randIndex = rand.Intn
	}

	// 初始化状态机，将房间自身(room)作为上下文传入
	room.StateMachine = state.NewGameStateMachine(room)
	return room
}

// --- 实现 state.RoomContext 接口 ---

// GetID 返回房间码
func (r *Room) GetID() string {
	return r.game.Code
}

func (r *Room) Game() *models.Room {
	return r.game
}

func (r *Room) Map() *gamemap.Map {
	return r.gmap
}

func (r *Room) Rules() models.Rules {
	return r.rules
}

// ChangeState 改变房间的状态机状态
func (r *Room) ChangeState(newState state.State) error {
	return r.StateMachine.ChangeState(newState)
}

func (r *Room) Emit(event models.Event) {
	r.pending = append(r.pending, event)
}

func (r *Room) RandomIndex(n int) int {
	return r.randIndex(n)
}

// --- 玩家意图 ---

// Code returns the room code.
func (r *Room) Code() string {
	return r.game.Code
}

func (r *Room) Join(playerID, name string) error {
	return r.dispatch(playerID, state.Join{PlayerName: name})
}

func (r *Room) Leave(playerID string) error {
	return r.dispatch(playerID, state.Leave{})
}

func (r *Room) Start(playerID string) error {
	return r.dispatch(playerID, state.Start{})
}

func (r *Room) Place(playerID, nodeID string) error {
	return r.dispatch(playerID, state.Place{NodeID: nodeID})
}

func (r *Room) Move(playerID, nodeID string, transport models.TransportType) error {
	return r.dispatch(playerID, state.Move{NodeID: nodeID, Transport: transport})
}

func (r *Room) dispatch(playerID string, action state.Action) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return models.ErrRoomClosed
	}
	return r.apply(playerID, action)
}

// apply runs action against the current phase and publishes the result.
// Caller holds r.mutex. A rejected action leaves the room untouched and
// nothing is broadcast.
func (r *Room) apply(playerID string, action state.Action) error {
	prevState := r.game.GameState
	prevTurn := r.game.CurrentTurn
	prevTurnNumber := r.game.TurnNumber
	r.pending = r.pending[:0]

	if err := r.StateMachine.GetCurrentState().HandleAction(playerID, action); err != nil {
		r.pending = r.pending[:0]
		return err
	}

	if prevState == models.StateWaiting && r.game.GameState != models.StateWaiting {
		r.startedAt = time.Now()
		r.roster = r.roster[:0]
		for _, p := range r.game.Players {
			r.roster = append(r.roster, p.Clone())
		}
		if r.hooks.OnStart != nil {
			r.hooks.OnStart(r.game.Clone())
		}
	}

	r.publish()

	if prevState != models.StateFinished && r.game.GameState == models.StateFinished {
		if r.hooks.OnFinish != nil {
			roster := append([]models.Player(nil), r.roster...)
			r.hooks.OnFinish(r.game.Clone(), roster, r.startedAt)
		}
	}

	if len(r.game.Players) == 0 {
		r.close()
		return nil
	}

	if prevState != r.game.GameState || prevTurn != r.game.CurrentTurn || prevTurnNumber != r.game.TurnNumber {
		r.armDeadline()
	}
	return nil
}

// publish 广播顺序: mrxMoved, mrxLocationReveal, roomState, gameEnded
func (r *Room) publish() {
	ids := r.game.PlayerIDs()
	var ended *models.Event

	for i := range r.pending {
		e := r.pending[i]
		switch e.Type {
		case models.EventMrXMoved:
			r.send(ids, network.MsgTypeMrXMoved, network.MrXMovedNotice{})
		case models.EventMrXLocationReveal:
			r.send(ids, network.MsgTypeMrXLocationReveal, network.MrXRevealNotice{TurnNumber: e.TurnNumber})
		case models.EventGameEnded:
			ended = &e
		}
	}
	r.pending = r.pending[:0]

	r.broadcastState(ids)

	if ended != nil {
		r.send(ids, network.MsgTypeGameEnded, network.GameEndedNotice{Winner: ended.Winner})
	}
}

func (r *Room) broadcastState(ids []string) {
	if !r.rules.RedactHiddenPlayer {
		r.send(ids, network.MsgTypeRoomState, r.game)
		return
	}
	for _, id := range ids {
		view := r.game.ViewFor(id)
		r.send([]string{id}, network.MsgTypeRoomState, &view)
	}
}

func (r *Room) send(ids []string, msgID uint16, v interface{}) {
	if r.broadcaster == nil || len(ids) == 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("房间 %s 编码消息 %s 失败: %v", r.game.Code, network.MsgName(msgID), err)
		return
	}
	if err := r.broadcaster.BroadcastToPlayers(ids, msgID, data); err != nil {
		logger.Log.Warnf("房间 %s 广播 %s 失败: %v", r.game.Code, network.MsgName(msgID), err)
	}
}

// --- 回合计时 ---

// armDeadline replaces the pending deadline with one for the current turn.
func (r *Room) armDeadline() {
	if r.scheduler == nil || r.turnLimit <= 0 {
		return
	}
	r.cancelDeadline()
	r.turnSeq++

	if !r.game.GameState.Active() || r.game.CurrentTurn == "" {
		return
	}

	seq := r.turnSeq
	playerID := r.game.CurrentTurn
	r.timerID = r.scheduler.AddTimer(r.turnLimit, 0, func() {
		r.expire(seq, playerID)
	})
}

func (r *Room) cancelDeadline() {
	if r.timerID != 0 && r.scheduler != nil {
		r.scheduler.RemoveTimer(r.timerID)
	}
	r.timerID = 0
}

// expire 回合超时。seq 不一致说明回合已经推进，忽略过期的回调。
func (r *Room) expire(seq uint64, playerID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed || seq != r.turnSeq {
		return
	}
	r.timerID = 0
	if err := r.apply(playerID, state.Timeout{}); err != nil {
		logger.Log.Warnf("房间 %s 玩家 %s 超时处理失败: %v", r.game.Code, playerID, err)
	}
}

// Close tears the room down whoever is still seated.
func (r *Room) Close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.close()
}

// close tears the room down. Caller holds r.mutex.
func (r *Room) close() {
	if r.closed {
		return
	}
	r.closed = true
	r.cancelDeadline()
	logger.Log.Infof("房间 %s 关闭，剩余玩家 %d", r.game.Code, len(r.game.Players))
	if r.onEmpty != nil {
		r.onEmpty(r)
	}
}

// --- 查询 ---

// Snapshot returns a copy of the full room state.
func (r *Room) Snapshot() models.Room {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.game.Clone()
}

// SnapshotFor returns the room as viewerID is allowed to see it.
func (r *Room) SnapshotFor(viewerID string) models.Room {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.rules.RedactHiddenPlayer {
		return r.game.ViewFor(viewerID)
	}
	return r.game.Clone()
}

// ValidMoves lists what playerID may do right now.
func (r *Room) ValidMoves(playerID string) ([]models.MoveOption, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return nil, models.ErrRoomClosed
	}
	if p, _ := r.game.FindPlayer(playerID); p == nil {
		return nil, models.ErrNotInRoom
	}
	return state.ValidMoves(r.game, r.gmap, playerID), nil
}

func (r *Room) HasPlayer(playerID string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	p, _ := r.game.FindPlayer(playerID)
	return p != nil
}

func (r *Room) NumPlayers() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.game.Players)
}

// Info returns the lobby-list summary of the room.
func (r *Room) Info() models.RoomInfo {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return models.RoomInfo{
		Code:      r.game.Code,
		Players:   len(r.game.Players),
		GameState: r.game.GameState,
	}
}
