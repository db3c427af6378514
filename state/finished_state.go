package state

import (
	"github.com/wfunc/mrxserver/logger"
	"github.com/wfunc/mrxserver/models"
)

// FinishedState 终止状态，只接受离开
type FinishedState struct {
	RoomStateBase
}

func NewFinishedState(room RoomContext) *FinishedState {
	return &FinishedState{
		RoomStateBase: RoomStateBase{
			ID:   models.StateFinished,
			Room: room,
		},
	}
}

func (s *FinishedState) OnEnter() {
	s.RoomStateBase.OnEnter()
	game := s.Room.Game()
	logger.Log.Infof("房间 %s 游戏结束，胜利方: %s", s.Room.GetID(), game.Winner)
	s.Room.Emit(models.Event{Type: models.EventGameEnded, TurnNumber: game.TurnNumber, Winner: game.Winner})
}
