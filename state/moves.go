package state

import (
	"github.com/wfunc/mrxserver/gamemap"
	"github.com/wfunc/mrxserver/models"
)

// ValidMoves lists what playerID may do right now: free start nodes during
// placement, affordable edges during play. It is empty when it is not the
// player's turn.
func ValidMoves(game *models.Room, m *gamemap.Map, playerID string) []models.MoveOption {
	moves := make([]models.MoveOption, 0)
	p, _ := game.FindPlayer(playerID)
	if p == nil || game.CurrentTurn != playerID {
		return moves
	}

	switch game.GameState {
	case models.StateMrXPlacement, models.StateDetectivePlacement:
		for _, id := range m.StartNodes() {
			if !game.Occupied(id) {
				moves = append(moves, models.MoveOption{NodeID: id, Transports: []models.TransportType{}})
			}
		}
	case models.StateInProgress:
		if p.Position == nil {
			return moves
		}
		for _, c := range m.Connections(*p.Position) {
			var usable []models.TransportType
			for _, t := range c.Transports {
				if p.Tickets[t] > 0 {
					usable = append(usable, t)
				}
			}
			if len(usable) > 0 {
				moves = append(moves, models.MoveOption{NodeID: c.To, Transports: usable})
			}
		}
	}
	return moves
}
