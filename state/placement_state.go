package state

import (
	"github.com/wfunc/mrxserver/gamemap"
	"github.com/wfunc/mrxserver/logger"
	"github.com/wfunc/mrxserver/models"
)

// NewMrXPlacementState creates the phase in which mrx picks a start node.
func NewMrXPlacementState(room RoomContext) *PlacementState {
	return &PlacementState{
		RoomStateBase: RoomStateBase{
			ID:   models.StateMrXPlacement,
			Room: room,
		},
	}
}

// NewDetectivePlacementState creates the phase in which detectives place in list order.
func NewDetectivePlacementState(room RoomContext) *PlacementState {
	return &PlacementState{
		RoomStateBase: RoomStateBase{
			ID:   models.StateDetectivePlacement,
			Room: room,
		},
	}
}

// PlacementState 落子阶段，mrx 与侦探共用同一套校验
type PlacementState struct {
	RoomStateBase
}

func (s *PlacementState) HandleAction(playerID string, action Action) error {
	switch a := action.(type) {
	case Place:
		return s.place(playerID, a.NodeID)
	case Timeout:
		return s.autoPlace(playerID)
	}
	return s.handleCommon(playerID, action)
}

func (s *PlacementState) place(playerID, nodeID string) error {
	p, _, err := s.requireTurn(playerID)
	if err != nil {
		return err
	}

	node, ok := s.Room.Map().Node(nodeID)
	if !ok {
		return models.ErrUnknownNode
	}
	if node.Type != gamemap.NodeStart {
		return models.ErrInvalidNodeType
	}
	if s.Room.Game().Occupied(nodeID) {
		return models.ErrNodeOccupied
	}

	s.commit(p, nodeID)
	return nil
}

// autoPlace puts a player who ran out of time on the first free start node.
func (s *PlacementState) autoPlace(playerID string) error {
	p, _, err := s.requireTurn(playerID)
	if err != nil {
		return err
	}
	for _, id := range s.Room.Map().StartNodes() {
		if !s.Room.Game().Occupied(id) {
			logger.Log.Infof("玩家 %s 落子超时，自动放置到 %s", playerID, id)
			s.commit(p, id)
			return nil
		}
	}
	return models.ErrNodeOccupied
}

func (s *PlacementState) commit(p *models.Player, nodeID string) {
	pos := nodeID
	p.Position = &pos

	logger.Log.Infof("房间 %s 玩家 %s 落子 %s", s.Room.GetID(), p.ID, nodeID)
	advancePlacement(s.Room)
}

// advancePlacement hands the turn to the next unplaced detective, or starts
// the game once everyone is on the board.
func advancePlacement(room RoomContext) {
	game := room.Game()

	if next := game.FirstUnplacedDetective(); next != nil {
		game.CurrentTurn = next.ID
		if game.GameState == models.StateMrXPlacement {
			changeState(room, NewDetectivePlacementState(room))
		}
		return
	}

	if mrx := game.MrX(); mrx != nil {
		game.CurrentTurn = mrx.ID
	}
	if game.GameState == models.StateMrXPlacement {
		changeState(room, NewDetectivePlacementState(room))
	}
	changeState(room, NewInProgressState(room))
}

// changeState switches phase; a refusal here means the caller validated badly.
func changeState(room RoomContext, next State) {
	if err := room.ChangeState(next); err != nil {
		logger.Log.Errorf("房间 %s 状态切换失败: %v", room.GetID(), err)
	}
}
