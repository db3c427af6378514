package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/mrxserver/logger"
	"github.com/wfunc/mrxserver/models"
	"github.com/wfunc/mrxserver/room"
	"github.com/wfunc/mrxserver/services"
)

const callTimeout = 5 * time.Second

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer creates a new RPC server listening on addr.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      rpc.NewServer(),
	}, nil
}

// Register exposes rcvr's exported methods under its type name.
func (s *Server) Register(rcvr interface{}) error {
	return s.rpc.Register(rcvr)
}

// Addr returns the address the listener is bound to.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// GameService is the struct that exposes admin RPC methods.
// Methods must follow the net/rpc signature: exported method, exported
// arguments, second argument is a pointer, return type is error.
type GameService struct {
	rooms   *room.Manager
	records *services.RecordService
}

// NewGameService creates a new GameService.
func NewGameService(rooms *room.Manager, records *services.RecordService) *GameService {
	return &GameService{rooms: rooms, records: records}
}

// ListRoomsArgs filters by phase; an empty GameState lists every room.
type ListRoomsArgs struct {
	GameState models.GameState
}

type ListRoomsReply struct {
	Rooms []models.RoomInfo
}

func (gs *GameService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	for _, info := range gs.rooms.ListRooms() {
		if args.GameState == "" || info.GameState == args.GameState {
			reply.Rooms = append(reply.Rooms, info)
		}
	}
	return nil
}

type GetRoomArgs struct {
	Code string
}

type GetRoomReply struct {
	Room models.Room
}

// GetRoom returns the full, unredacted snapshot of a room.
func (gs *GameService) GetRoom(args *GetRoomArgs, reply *GetRoomReply) error {
	r, err := gs.rooms.GetRoom(args.Code)
	if err != nil {
		return err
	}
	reply.Room = r.Snapshot()
	return nil
}

type DeleteRoomArgs struct {
	Code string
}

// DeleteRoomReply reports how many players were still seated.
type DeleteRoomReply struct {
	Players int
}

// DeleteRoom 强制关闭房间，座位上的玩家之后收到 RoomNotFound
func (gs *GameService) DeleteRoom(args *DeleteRoomArgs, reply *DeleteRoomReply) error {
	r, err := gs.rooms.GetRoom(args.Code)
	if err != nil {
		return err
	}
	reply.Players = r.NumPlayers()
	return gs.rooms.DeleteRoom(args.Code)
}

type RecentGamesArgs struct {
	Limit int
}

type RecentGamesReply struct {
	Records []models.GameRecord
}

func (gs *GameService) RecentGames(args *RecentGamesArgs, reply *RecentGamesReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	records, err := gs.records.Recent(ctx, args.Limit)
	if err != nil {
		return err
	}
	reply.Records = records
	return nil
}

type PlayerStatsArgs struct {
	PlayerID string
}

type PlayerStatsReply struct {
	Stats models.PlayerStats
}

func (gs *GameService) PlayerStats(args *PlayerStatsArgs, reply *PlayerStatsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	stats, err := gs.records.PlayerStats(ctx, args.PlayerID)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}
