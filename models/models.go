// models/models.go
package models

import (
	"time"
)

// GameRecord 已结束对局的记录
type GameRecord struct {
	RoomCode   string       `json:"room_code"`
	Winner     Winner       `json:"winner"`
	TurnNumber int          `json:"turn_number"`
	Players    []PlayerInfo `json:"players"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// PlayerInfo 玩家信息（用于游戏记录）
type PlayerInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
	Outcome string `json:"outcome"` // win/lose/none
}

const (
	OutcomeWin  = "win"
	OutcomeLose = "lose"
	// OutcomeNone is recorded when the game ended because a player left.
	OutcomeNone = "none"
)

// RoomInfo is the lobby-list view of a live room.
type RoomInfo struct {
	Code      string    `json:"code"`
	Players   int       `json:"players"`
	GameState GameState `json:"gameState"`
}

// PlayerStats 玩家历史战绩
type PlayerStats struct {
	PlayerID string `json:"player_id"`
	Games    int    `json:"games"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
}
