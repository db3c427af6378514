package state

import (
	"github.com/wfunc/mrxserver/logger"
	"github.com/wfunc/mrxserver/models"
)

// InProgressState 游戏进行状态：轮到的玩家使用车票移动
type InProgressState struct {
	RoomStateBase
}

// NewInProgressState 创建新的游戏状态
func NewInProgressState(room RoomContext) *InProgressState {
	return &InProgressState{
		RoomStateBase: RoomStateBase{
			ID:   models.StateInProgress,
			Room: room,
		},
	}
}

func (s *InProgressState) HandleAction(playerID string, action Action) error {
	switch a := action.(type) {
	case Move:
		return s.move(playerID, a.NodeID, a.Transport)
	case Timeout:
		return s.skip(playerID)
	}
	return s.handleCommon(playerID, action)
}

func (s *InProgressState) move(playerID, nodeID string, transport models.TransportType) error {
	p, idx, err := s.requireTurn(playerID)
	if err != nil {
		return err
	}
	if !transport.Valid() {
		return models.ErrUnknownTransport
	}
	if p.Tickets[transport] <= 0 {
		return models.ErrInsufficientTickets
	}
	if _, ok := s.Room.Map().Node(nodeID); !ok {
		return models.ErrUnknownNode
	}
	if p.Position == nil || !s.Room.Map().HasEdge(*p.Position, nodeID, transport) {
		return models.ErrNoSuchEdge
	}

	game := s.Room.Game()
	rules := s.Room.Rules()

	pos := nodeID
	p.Position = &pos
	p.Tickets[transport]--

	if p.Role == models.RoleMrX {
		s.Room.Emit(models.Event{Type: models.EventMrXMoved, TurnNumber: game.TurnNumber})
		if rules.IsRevealTurn(game.TurnNumber) {
			revealed := nodeID
			turn := game.TurnNumber
			game.MrXLastKnownPosition = &revealed
			game.MrXLastKnownTurn = &turn
			s.Room.Emit(models.Event{Type: models.EventMrXLocationReveal, TurnNumber: turn})
			logger.Log.Infof("房间 %s 第 %d 回合公开 mrx 位置", s.Room.GetID(), turn)
		}
	}

	logger.Log.Debugf("房间 %s 玩家 %s 乘 %s 移动到 %s", s.Room.GetID(), playerID, transport, nodeID)

	advanceTurn(s.Room, p.Role, idx+1)
	checkWin(s.Room)
	return nil
}

// skip passes the current player's turn without spending a ticket.
func (s *InProgressState) skip(playerID string) error {
	p, idx, err := s.requireTurn(playerID)
	if err != nil {
		return err
	}
	logger.Log.Infof("房间 %s 玩家 %s 回合超时，跳过", s.Room.GetID(), playerID)
	advanceTurn(s.Room, p.Role, idx+1)
	checkWin(s.Room)
	return nil
}

// advanceTurn moves the turn pointer after a player with role has acted.
// next is the list index from which the following detective is searched.
func advanceTurn(room RoomContext, role models.Role, next int) {
	game := room.Game()

	if role == models.RoleMrX {
		if d := game.NextDetective(0); d != nil {
			game.CurrentTurn = d.ID
		}
		return
	}

	if d := game.NextDetective(next); d != nil {
		game.CurrentTurn = d.ID
		return
	}

	game.TurnNumber++
	if mrx := game.MrX(); mrx != nil {
		game.CurrentTurn = mrx.ID
	}
}

// checkWin evaluates capture, survival and attrition in that order and
// finishes the game on the first one that holds.
func checkWin(room RoomContext) bool {
	game := room.Game()
	rules := room.Rules()
	mrx := game.MrX()
	detectives := game.Detectives()

	if mrx != nil && mrx.Position != nil {
		for _, d := range detectives {
			if d.At(*mrx.Position) {
				finish(room, models.WinnerDetectives)
				return true
			}
		}
	}

	if game.TurnNumber > rules.MaxTurns {
		finish(room, models.WinnerMrX)
		return true
	}

	exhausted := true
	for _, d := range detectives {
		if d.Tickets.Total() > 0 {
			exhausted = false
			break
		}
	}
	if exhausted {
		finish(room, models.WinnerMrX)
		return true
	}
	return false
}

// finish ends the game with winner.
func finish(room RoomContext, winner models.Winner) {
	game := room.Game()
	game.Winner = winner
	game.CurrentTurn = ""
	changeState(room, NewFinishedState(room))
}
