package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/mrxserver/broadcast"
	"github.com/wfunc/mrxserver/gamemap"
	"github.com/wfunc/mrxserver/logger"
	"github.com/wfunc/mrxserver/models"
	"github.com/wfunc/mrxserver/monitor"
	"github.com/wfunc/mrxserver/network"
	"github.com/wfunc/mrxserver/persistence"
	"github.com/wfunc/mrxserver/room"
	mrxrpc "github.com/wfunc/mrxserver/rpc"
	"github.com/wfunc/mrxserver/services"
	"github.com/wfunc/mrxserver/session"
	"github.com/wfunc/mrxserver/timer"
)

const (
	heartbeatInterval = 30 * time.Second
	gaugeInterval     = 5 * time.Second
)

// Options 服务器依赖
type Options struct {
	HTTPAddress string
	// RPCAddress 为空时不启动 RPC
	RPCAddress    string
	Rules         models.Rules
	Map           *gamemap.Map
	TurnTimeLimit time.Duration
	// WriteTimeout bounds each websocket write; zero uses network.DefaultWriteTimeout.
	WriteTimeout time.Duration
	Database     persistence.Database
	Monitor      *monitor.Monitor
	// RandIndex picks mrx; nil uses math/rand.
	RandIndex func(n int) int
}

type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	httpServer     *http.Server
	roomManager    *room.Manager
	sessionManager *session.Manager
	records        *services.RecordService
	broadcaster    broadcast.Broadcaster
	timers         *timer.TimerManager
	monitor        *monitor.Monitor
	mapJSON        []byte
	rpcServer      *mrxrpc.Server
	writeTimeout   time.Duration
	shutdownOnce   sync.Once
	shutdownChan   chan struct{}

	// conns 跟踪仍在运行的连接循环，closing 之后不再接受新连接
	conns     sync.WaitGroup
	connMutex sync.Mutex
	closing   bool
}

func NewGameServer(opts Options) (*GameServer, error) {
	mapJSON, err := json.Marshal(opts.Map)
	if err != nil {
		return nil, err
	}

	s := &GameServer{
		addr:           opts.HTTPAddress,
		sessionManager: session.NewManager(),
		records:        services.NewRecordService(opts.Database),
		timers:         timer.NewTimerManager(),
		monitor:        opts.Monitor,
		mapJSON:        mapJSON,
		writeTimeout:   opts.WriteTimeout,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	if s.monitor == nil {
		s.monitor = monitor.NewMonitor("mrx")
	}

	// 初始化广播器
	s.broadcaster = broadcast.NewSessionBroadcaster(s.sessionManager)

	s.roomManager = room.NewRoomManager(room.Config{
		Rules:         opts.Rules,
		Map:           opts.Map,
		Broadcaster:   s.broadcaster,
		Scheduler:     s.timers,
		TurnTimeLimit: opts.TurnTimeLimit,
		RandIndex:     opts.RandIndex,
		Hooks: room.Hooks{
			OnStart: func(game models.Room) {
				s.monitor.GameStarted()
			},
			OnFinish: func(game models.Room, roster []models.Player, startedAt time.Time) {
				s.monitor.GameFinished(game.Winner)
				s.records.Record(game, roster, startedAt)
			},
		},
	})

	// 初始化RPC服务器
	if opts.RPCAddress != "" {
		rpcServer, err := mrxrpc.NewServer(opts.RPCAddress)
		if err != nil {
			s.timers.Stop()
			return nil, err
		}
		// 注册RPC服务
		if err := rpcServer.Register(mrxrpc.NewGameService(s.roomManager, s.records)); err != nil {
			rpcServer.Stop()
			s.timers.Stop()
			return nil, err
		}
		s.rpcServer = rpcServer
	}

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}
	return s, nil
}

// Handler returns the HTTP routes: websocket gateway, map, lobby list,
// health and metrics.
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/map", s.handleMap)
	mux.HandleFunc("/rooms", s.handleRooms)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", s.monitor.Handler())
	return mux
}

func (s *GameServer) Start() error {
	if s.rpcServer != nil {
		go s.rpcServer.Start()
	}

	s.timers.AddTimer(gaugeInterval, gaugeInterval, func() {
		s.monitor.SetActiveRooms(s.roomManager.Count())
	})

	logger.Log.Infof("Game server listening on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, closes the live ones so their players
// leave their rooms, then waits for pending game records.
func (s *GameServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
		s.connMutex.Lock()
		s.closing = true
		s.connMutex.Unlock()

		err = s.httpServer.Shutdown(ctx)
		if s.rpcServer != nil {
			s.rpcServer.Stop()
		}

		// http.Server.Shutdown 不会关闭已升级的 websocket 连接
		for _, sess := range s.sessionManager.All() {
			sess.Close()
		}
		done := make(chan struct{})
		go func() {
			s.conns.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}

		s.timers.Stop()
		s.records.Close()
	})
	return err
}

// trackConn registers a connection loop unless the server is shutting down.
func (s *GameServer) trackConn() bool {
	s.connMutex.Lock()
	defer s.connMutex.Unlock()
	if s.closing {
		return false
	}
	s.conns.Add(1)
	return true
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.trackConn() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.conns.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	wsConn := network.NewWSConnection(conn)
	wsConn.SetWriteTimeout(s.writeTimeout)
	s.handleConnection(wsConn)
}

func (s *GameServer) handleConnection(conn network.Connection) {
	// 连接 id 即玩家 id
	sess := session.NewSession(uuid.New().String(), conn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()
	conn.SetHeartbeat(heartbeatInterval)

	logger.Log.Infof("New connection from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
		// 断线等同于离开房间
		s.leaveCurrentRoom(sess)
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlinePlayers()
		conn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := conn.ReadPacket()
			if errors.Is(err, io.ErrShortBuffer) {
				// 残缺帧只拒绝本条，不断开连接
				s.replyError(sess, 0, models.ErrBadRequest)
				continue
			}
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	s.monitor.IncMessagesReceived()
	sess.Touch()
	defer func() {
		s.monitor.ObserveMessageLatency(time.Since(start))
	}()

	var err error
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		return
	case network.MsgTypeJoinRoom:
		err = s.handleJoinRoom(sess, packet)
	case network.MsgTypeCreateRoom:
		err = s.handleCreateRoom(sess, packet)
	case network.MsgTypeLeaveRoom:
		err = s.handleLeaveRoom(sess, packet)
	case network.MsgTypeStartGame:
		err = s.handleStartGame(sess, packet)
	case network.MsgTypePlacePlayer:
		err = s.handlePlacePlayer(sess, packet)
	case network.MsgTypeMakeMove:
		err = s.handleMakeMove(sess, packet)
	case network.MsgTypeValidMoves:
		err = s.handleValidMoves(sess, packet)
	case network.MsgTypeGetMap:
		err = s.broadcaster.SendToPlayer(sess.GetID(), network.MsgTypeGetMap, s.mapJSON)
	default:
		logger.Log.Debugf("Unknown message type %d from session %s", packet.MsgID, sess.GetID())
		return
	}

	if err != nil {
		s.replyError(sess, packet.MsgID, err)
	}
}

// replyError 只回复给发起请求的连接，其他玩家看不到任何变化
func (s *GameServer) replyError(sess *session.Session, msgID uint16, err error) {
	resp := network.ErrorResponse{Code: "Internal", Message: "internal error"}

	var gameErr *models.GameError
	if errors.As(err, &gameErr) {
		resp.Code = gameErr.Code
		resp.Message = gameErr.Message
		logger.Log.Debugf("Session %s %s rejected: %s", sess.GetID(), network.MsgName(msgID), gameErr.Code)
	} else {
		logger.Log.Errorf("Session %s %s failed: %v", sess.GetID(), network.MsgName(msgID), err)
	}
	s.monitor.IntentRejected(resp.Code)

	data, _ := json.Marshal(resp)
	if err := s.broadcaster.SendToPlayer(sess.GetID(), network.MsgTypeError, data); err != nil {
		logger.Log.Warnf("Failed to send error to session %s: %v", sess.GetID(), err)
	}
}

func decode(packet *network.Packet, v interface{}) error {
	if err := json.Unmarshal(packet.Data, v); err != nil {
		return models.ErrBadRequest
	}
	return nil
}

func (s *GameServer) handleJoinRoom(sess *session.Session, packet *network.Packet) error {
	var req network.JoinRoomRequest
	if err := decode(packet, &req); err != nil {
		return err
	}
	if req.RoomCode == "" {
		return models.ErrBadRequest
	}
	if sess.RoomCode() == req.RoomCode {
		// 重复加入是幂等的，仍然刷新一次快照
		r, err := s.roomManager.GetRoom(req.RoomCode)
		if err != nil {
			return err
		}
		return r.Join(sess.GetID(), req.PlayerName)
	}

	s.leaveCurrentRoom(sess)
	r, err := s.roomManager.JoinOrCreate(req.RoomCode, sess.GetID(), req.PlayerName)
	if err != nil {
		return err
	}
	sess.SetRoomCode(r.Code())
	logger.Log.Infof("Session %s joined room %s", sess.GetID(), r.Code())
	return nil
}

func (s *GameServer) handleCreateRoom(sess *session.Session, packet *network.Packet) error {
	var req network.CreateRoomRequest
	if len(packet.Data) > 0 {
		if err := decode(packet, &req); err != nil {
			return err
		}
	}

	s.leaveCurrentRoom(sess)
	r, err := s.roomManager.CreateWithGeneratedCode(sess.GetID(), req.PlayerName)
	if err != nil {
		return err
	}
	sess.SetRoomCode(r.Code())
	logger.Log.Infof("Session %s created room %s", sess.GetID(), r.Code())
	return nil
}

func (s *GameServer) handleLeaveRoom(sess *session.Session, packet *network.Packet) error {
	var req network.RoomRequest
	if err := decode(packet, &req); err != nil {
		return err
	}
	r, err := s.roomManager.GetRoom(req.RoomCode)
	if err != nil {
		return err
	}
	if err := r.Leave(sess.GetID()); err != nil {
		return err
	}
	if sess.RoomCode() == req.RoomCode {
		sess.SetRoomCode("")
	}
	return nil
}

// leaveCurrentRoom removes the player from the room it is seated in, if any.
func (s *GameServer) leaveCurrentRoom(sess *session.Session) {
	code := sess.RoomCode()
	if code == "" {
		return
	}
	sess.SetRoomCode("")

	r, err := s.roomManager.GetRoom(code)
	if err != nil {
		return
	}
	if err := r.Leave(sess.GetID()); err != nil && !errors.Is(err, models.ErrNotInRoom) && !errors.Is(err, models.ErrRoomClosed) {
		logger.Log.Warnf("Session %s failed to leave room %s: %v", sess.GetID(), code, err)
	}
}

// roomFor decodes a request naming a room and looks the room up.
func (s *GameServer) roomFor(packet *network.Packet, req interface{ code() string }) (*room.Room, error) {
	if err := decode(packet, req); err != nil {
		return nil, err
	}
	return s.roomManager.GetRoom(req.code())
}

type roomReq struct{ network.RoomRequest }

func (r *roomReq) code() string { return r.RoomCode }

type placeReq struct{ network.PlacePlayerRequest }

func (r *placeReq) code() string { return r.RoomCode }

type moveReq struct{ network.MakeMoveRequest }

func (r *moveReq) code() string { return r.RoomCode }

func (s *GameServer) handleStartGame(sess *session.Session, packet *network.Packet) error {
	var req roomReq
	r, err := s.roomFor(packet, &req)
	if err != nil {
		return err
	}
	return r.Start(sess.GetID())
}

func (s *GameServer) handlePlacePlayer(sess *session.Session, packet *network.Packet) error {
	var req placeReq
	r, err := s.roomFor(packet, &req)
	if err != nil {
		return err
	}
	return r.Place(sess.GetID(), req.NodeID)
}

func (s *GameServer) handleMakeMove(sess *session.Session, packet *network.Packet) error {
	var req moveReq
	r, err := s.roomFor(packet, &req)
	if err != nil {
		return err
	}
	return r.Move(sess.GetID(), req.NodeID, req.TransportType)
}

func (s *GameServer) handleValidMoves(sess *session.Session, packet *network.Packet) error {
	var req roomReq
	r, err := s.roomFor(packet, &req)
	if err != nil {
		return err
	}
	moves, err := r.ValidMoves(sess.GetID())
	if err != nil {
		return err
	}
	data, err := json.Marshal(network.ValidMovesResponse{Moves: moves})
	if err != nil {
		return err
	}
	return s.broadcaster.SendToPlayer(sess.GetID(), network.MsgTypeValidMoves, data)
}

// --- HTTP ---

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warnf("Failed to write response: %v", err)
	}
}

func (s *GameServer) handleMap(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(s.mapJSON)
}

func (s *GameServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.roomManager.ListRooms())
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":   "ok",
		"rooms":    s.roomManager.Count(),
		"sessions": s.sessionManager.Count(),
	})
}
