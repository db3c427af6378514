// models/rules.go
package models

import "slices"

// DisconnectPolicy decides what happens when a player leaves a running game.
type DisconnectPolicy string

const (
	// DisconnectSkip keeps the game going: the leaver's turn is passed on.
	DisconnectSkip DisconnectPolicy = "skip"
	// DisconnectEnd finishes the game with WinnerDisconnected.
	DisconnectEnd DisconnectPolicy = "end"
)

// Rules 一局游戏的可配置规则
type Rules struct {
	MaxPlayers         int
	MaxTurns           int
	RevealTurns        []int
	MrXTickets         Tickets
	DetectiveTickets   Tickets
	DisconnectPolicy   DisconnectPolicy
	RedactHiddenPlayer bool
}

// DefaultRules returns the standard ruleset.
func DefaultRules() Rules {
	return Rules{
		MaxPlayers:  6,
		MaxTurns:    15,
		RevealTurns: []int{3, 8, 13},
		MrXTickets: Tickets{
			Rickshaw: 4,
			Bus:      3,
			Metro:    3,
			Train:    2,
		},
		DetectiveTickets: Tickets{
			Rickshaw: 10,
			Bus:      8,
			Metro:    4,
			Train:    3,
		},
		DisconnectPolicy: DisconnectSkip,
	}
}

// IsRevealTurn reports whether mrx's move on turn is made public.
func (r Rules) IsRevealTurn(turn int) bool {
	return slices.Contains(r.RevealTurns, turn)
}
