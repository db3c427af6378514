package state

import (
	"github.com/wfunc/mrxserver/logger"
	"github.com/wfunc/mrxserver/models"
)

// depart removes playerID from the room in any phase. During a running game
// the configured DisconnectPolicy decides whether the game ends or the
// leaver's turn is passed on.
func depart(room RoomContext, playerID string) error {
	game := room.Game()
	p, idx := game.FindPlayer(playerID)
	if p == nil {
		return models.ErrNotInRoom
	}

	hadTurn := game.CurrentTurn == playerID
	role := p.Role
	game.RemovePlayer(idx)
	logger.Log.Infof("玩家 %s 离开房间 %s，剩余 %d 人", playerID, room.GetID(), len(game.Players))

	if len(game.Players) == 0 {
		game.CurrentTurn = ""
		return nil
	}
	if !game.GameState.Active() {
		return nil
	}

	if room.Rules().DisconnectPolicy == models.DisconnectEnd {
		finish(room, models.WinnerDisconnected)
		return nil
	}

	if role == models.RoleMrX {
		finish(room, models.WinnerDetectives)
		return nil
	}
	if len(game.Detectives()) == 0 {
		finish(room, models.WinnerMrX)
		return nil
	}
	if !hadTurn {
		return nil
	}

	// 轮到的侦探离开：按正常流程交出回合。列表已删除该玩家，
	// 原来排在他之后的侦探现在从 idx 开始。
	switch game.GameState {
	case models.StateDetectivePlacement:
		advancePlacement(room)
	case models.StateInProgress:
		advanceTurn(room, models.RoleDetective, idx)
		checkWin(room)
	}
	return nil
}
