package network

import "github.com/wfunc/mrxserver/models"

// 请求体

type JoinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type CreateRoomRequest struct {
	PlayerName string `json:"playerName"`
}

// RoomRequest is the body of intents that only name a room:
// leaveRoom, startGame and validMoves.
type RoomRequest struct {
	RoomCode string `json:"roomCode"`
}

type PlacePlayerRequest struct {
	RoomCode string `json:"roomCode"`
	NodeID   string `json:"nodeId"`
}

type MakeMoveRequest struct {
	RoomCode      string               `json:"roomCode"`
	NodeID        string               `json:"nodeId"`
	TransportType models.TransportType `json:"transportType"`
}

// 响应与通知

type ValidMovesResponse struct {
	Moves []models.MoveOption `json:"moves"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type MrXMovedNotice struct{}

type MrXRevealNotice struct {
	TurnNumber int `json:"turnNumber"`
}

type GameEndedNotice struct {
	Winner models.Winner `json:"winner"`
}
