package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/wfunc/mrxserver/logger"
	"github.com/wfunc/mrxserver/models"
)

// 状态机接口
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from, to models.GameState, condition func() bool) error
}

// 状态接口
type State interface {
	OnEnter()
	OnExit()
	GetID() models.GameState
	HandleAction(playerID string, action Action) error
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// 基础状态机实现。一旦注册了任意转换，就只允许已注册的转换。
type BaseStateMachine struct {
	currentState State
	transitions  map[models.GameState]map[models.GameState]func() bool // fromState -> toState -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[models.GameState]map[models.GameState]func() bool),
	}
	initialState.OnEnter()
	return machine
}

func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()

	currentID := sm.currentState.GetID()
	newID := newState.GetID()

	if len(sm.transitions) > 0 {
		condition, exists := sm.transitions[currentID][newID]
		if !exists || (condition != nil && !condition()) {
			sm.mutex.Unlock()
			return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, currentID, newID)
		}
	}

	old := sm.currentState
	sm.currentState = newState
	sm.mutex.Unlock()

	// 回调在锁外执行，OnEnter 可能再次切换状态
	old.OnExit()
	newState.OnEnter()

	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(from, to models.GameState, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.transitions[from]; !exists {
		sm.transitions[from] = make(map[models.GameState]func() bool)
	}

	sm.transitions[from][to] = condition
	return nil
}

// NewGameStateMachine returns a machine in the waiting phase with the game's
// transition table registered.
func NewGameStateMachine(room RoomContext) *BaseStateMachine {
	sm := NewBaseStateMachine(NewWaitingState(room))
	enough := func() bool { return len(room.Game().Players) >= 2 }

	sm.AddTransition(models.StateWaiting, models.StateMrXPlacement, enough)
	sm.AddTransition(models.StateMrXPlacement, models.StateDetectivePlacement, nil)
	sm.AddTransition(models.StateDetectivePlacement, models.StateInProgress, nil)
	for _, from := range []models.GameState{
		models.StateMrXPlacement,
		models.StateDetectivePlacement,
		models.StateInProgress,
	} {
		sm.AddTransition(from, models.StateFinished, nil)
	}
	return sm
}

// 房间状态基础结构
type RoomStateBase struct {
	ID   models.GameState
	Room RoomContext
}

func (s *RoomStateBase) GetID() models.GameState {
	return s.ID
}

// OnEnter 同步房间快照中的阶段字段
func (s *RoomStateBase) OnEnter() {
	s.Room.Game().GameState = s.ID
	logger.Log.Infof("房间 %s 进入阶段 %s", s.Room.GetID(), s.ID)
}

func (s *RoomStateBase) OnExit() {
	// 默认实现
}

func (s *RoomStateBase) HandleAction(playerID string, action Action) error {
	return s.handleCommon(playerID, action)
}

// handleCommon covers what every started phase does the same way: rejoining
// is a no-op, new joiners are refused, leaving is always allowed and every
// other action is in the wrong phase.
func (s *RoomStateBase) handleCommon(playerID string, action Action) error {
	game := s.Room.Game()
	p, _ := game.FindPlayer(playerID)

	switch action.(type) {
	case Join:
		if p != nil {
			return nil
		}
		return models.ErrGameInProgress
	case Leave:
		return depart(s.Room, playerID)
	}

	if p == nil {
		return models.ErrNotInRoom
	}
	return models.ErrWrongPhase
}

// requireTurn checks that playerID is in the room and holds the turn.
func (s *RoomStateBase) requireTurn(playerID string) (*models.Player, int, error) {
	game := s.Room.Game()
	p, idx := game.FindPlayer(playerID)
	if p == nil {
		return nil, -1, models.ErrNotInRoom
	}
	if game.CurrentTurn != playerID {
		return nil, -1, models.ErrNotYourTurn
	}
	return p, idx, nil
}

// NewWaitingState creates a new waiting state.
func NewWaitingState(room RoomContext) *WaitingState {
	return &WaitingState{
		RoomStateBase: RoomStateBase{
			ID:   models.StateWaiting,
			Room: room,
		},
	}
}

// 等待状态：加入、离开、房主开始游戏
type WaitingState struct {
	RoomStateBase
}

func (s *WaitingState) HandleAction(playerID string, action Action) error {
	switch a := action.(type) {
	case Join:
		return s.join(playerID, a.PlayerName)
	case Start:
		return s.start(playerID)
	}
	return s.handleCommon(playerID, action)
}

func (s *WaitingState) join(playerID, name string) error {
	game := s.Room.Game()
	rules := s.Room.Rules()

	if p, _ := game.FindPlayer(playerID); p != nil {
		return nil
	}
	if len(game.Players) >= rules.MaxPlayers {
		return models.ErrRoomFull
	}

	if name == "" {
		name = fmt.Sprintf("Player %d", len(game.Players)+1)
	}
	player := &models.Player{
		ID:      playerID,
		Name:    name,
		Tickets: rules.DetectiveTickets.Clone(),
	}
	if game.Host == "" {
		game.Host = playerID
		player.IsHost = true
	}
	game.Players = append(game.Players, player)

	logger.Log.Infof("玩家 %s(%s) 加入房间 %s", playerID, name, s.Room.GetID())
	return nil
}

func (s *WaitingState) start(playerID string) error {
	game := s.Room.Game()
	rules := s.Room.Rules()

	if p, _ := game.FindPlayer(playerID); p == nil {
		return models.ErrNotInRoom
	}
	if game.Host != playerID {
		return models.ErrNotHost
	}
	if len(game.Players) < 2 {
		return models.ErrNotEnoughPlayers
	}

	mrxIndex := s.Room.RandomIndex(len(game.Players))
	for i, p := range game.Players {
		p.Position = nil
		if i == mrxIndex {
			p.Role = models.RoleMrX
			p.Tickets = rules.MrXTickets.Clone()
		} else {
			p.Role = models.RoleDetective
			p.Tickets = rules.DetectiveTickets.Clone()
		}
	}

	game.TurnNumber = 1
	game.CurrentTurn = game.Players[mrxIndex].ID
	changeState(s.Room, NewMrXPlacementState(s.Room))

	logger.Log.Infof("房间 %s 开始游戏，共 %d 名玩家", s.Room.GetID(), len(game.Players))
	return nil
}
