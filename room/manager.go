package room

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wfunc/mrxserver/gamemap"
	"github.com/wfunc/mrxserver/logger"
	"github.com/wfunc/mrxserver/models"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
	codeAttempts = 16
	joinAttempts = 3
)

// Config 创建房间时共享的依赖与规则
type Config struct {
	Rules         models.Rules
	Map           *gamemap.Map
	Broadcaster   Broadcaster
	Scheduler     Scheduler
	TurnTimeLimit time.Duration
	Hooks         Hooks
	// RandIndex picks mrx; nil uses math/rand.
	RandIndex func(n int) int
}

// --- 房间管理器 ---

// Manager 管理所有房间，房间码 -> 房间
type Manager struct {
	cfg   Config
	rooms map[string]*Room
	mutex sync.RWMutex
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(cfg Config) *Manager {
	return &Manager{
		cfg:   cfg,
		rooms: make(map[string]*Room),
	}
}

// CreateRoom 创建一个空房间并登记，房间码已存在时返回 ErrRoomExists
func (m *Manager) CreateRoom(code string) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.createLocked(code)
}

func (m *Manager) createLocked(code string) (*Room, error) {
	if _, exists := m.rooms[code]; exists {
		return nil, models.ErrRoomExists
	}
	room := NewRoom(code, m.cfg)
	room.onEmpty = m.removeRoom
	m.rooms[code] = room
	logger.Log.Infof("创建房间 %s", code)
	return room, nil
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(code string) (*Room, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[code]
	if !exists {
		return nil, models.ErrRoomNotFound
	}
	return room, nil
}

// getOrCreate returns the room for code, creating it when absent.
func (m *Manager) getOrCreate(code string) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[code]; exists {
		return room
	}
	room, _ := m.createLocked(code)
	return room
}

// JoinOrCreate joins playerID to the room with code, creating the room on
// first use. A room torn down between lookup and join is replaced.
func (m *Manager) JoinOrCreate(code, playerID, name string) (*Room, error) {
	var err error
	for i := 0; i < joinAttempts; i++ {
		room := m.getOrCreate(code)
		err = room.Join(playerID, name)
		if !errors.Is(err, models.ErrRoomClosed) {
			if err != nil {
				return nil, err
			}
			return room, nil
		}
	}
	return nil, err
}

// CreateWithGeneratedCode opens a room under a fresh code and seats playerID as host.
func (m *Manager) CreateWithGeneratedCode(playerID, name string) (*Room, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := GenerateCode()
		if err != nil {
			return nil, err
		}
		room, err := m.CreateRoom(code)
		if errors.Is(err, models.ErrRoomExists) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := room.Join(playerID, name); err != nil {
			return nil, err
		}
		return room, nil
	}
	return nil, fmt.Errorf("no free room code after %d attempts", codeAttempts)
}

// DeleteRoom 注销并关闭房间码对应的房间，之后对该实例的意图返回 ErrRoomClosed。
func (m *Manager) DeleteRoom(code string) error {
	room := m.unregister(code, nil)
	if room == nil {
		return models.ErrRoomNotFound
	}
	room.Close()
	logger.Log.Infof("删除房间 %s", code)
	return nil
}

// removeRoom 房间清空时回调（持有房间锁）。只删除仍登记为同一实例的房间。
func (m *Manager) removeRoom(room *Room) {
	m.unregister(room.GetID(), room)
}

// unregister drops code from the registry and returns the room it held.
// A non-nil expect only matches that instance.
func (m *Manager) unregister(code string, expect *Room) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	current, exists := m.rooms[code]
	if !exists || (expect != nil && current != expect) {
		return nil
	}
	delete(m.rooms, code)
	return current
}

// ListRooms returns a summary of every live room ordered by code.
func (m *Manager) ListRooms() []models.RoomInfo {
	// 先复制再逐个加锁，避免与房间回调 removeRoom 形成锁顺序反转
	m.mutex.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mutex.RUnlock()

	infos := make([]models.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		infos = append(infos, r.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Code < infos[j].Code })
	return infos
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// Map returns the map every room plays on.
func (m *Manager) Map() *gamemap.Map {
	return m.cfg.Map
}

// GenerateCode returns a random room code made of unambiguous characters.
func GenerateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate room code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
