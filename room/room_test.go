package room

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/mrxserver/gamemap"
	"github.com/wfunc/mrxserver/models"
	"github.com/wfunc/mrxserver/network"
)

const testMapYAML = `
nodes:
  - id: s1
    type: start
    connections:
      - {to: a, transport: [rickshaw, bus]}
  - id: s2
    type: start
    connections:
      - {to: a, transport: [rickshaw]}
  - id: s3
    type: start
    connections:
      - {to: b, transport: [metro]}
  - id: a
    connections:
      - {to: s1, transport: [rickshaw, bus]}
      - {to: s2, transport: [rickshaw]}
  - id: b
    connections:
      - {to: s3, transport: [metro]}
`

type sentPacket struct {
	to    []string
	msgID uint16
	data  []byte
}

// MockBroadcaster records every packet it is asked to send.
type MockBroadcaster struct {
	mu   sync.Mutex
	sent []sentPacket
}

func (m *MockBroadcaster) BroadcastToPlayers(playerIDs []string, msgID uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentPacket{to: append([]string(nil), playerIDs...), msgID: msgID, data: data})
	return nil
}

func (m *MockBroadcaster) ids() []uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint16, len(m.sent))
	for i, p := range m.sent {
		out[i] = p.msgID
	}
	return out
}

func (m *MockBroadcaster) reset() {
	m.mu.Lock()
	m.sent = nil
	m.mu.Unlock()
}

// MockScheduler keeps timers until the test fires them.
type MockScheduler struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]func()
}

func (s *MockScheduler) AddTimer(delay time.Duration, interval time.Duration, callback func()) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tasks == nil {
		s.tasks = make(map[int64]func())
	}
	s.nextID++
	s.tasks[s.nextID] = callback
	return s.nextID
}

func (s *MockScheduler) RemoveTimer(timerId int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, timerId)
}

func (s *MockScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// fireAll runs every pending callback outside the scheduler lock.
func (s *MockScheduler) fireAll() {
	s.mu.Lock()
	var cbs []func()
	for id, cb := range s.tasks {
		cbs = append(cbs, cb)
		delete(s.tasks, id)
	}
	s.mu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}

func testConfig(t *testing.T, b Broadcaster) Config {
	t.Helper()
	m, err := gamemap.Parse([]byte(testMapYAML))
	if err != nil {
		t.Fatalf("test map: %v", err)
	}
	return Config{
		Rules:       models.DefaultRules(),
		Map:         m,
		Broadcaster: b,
		RandIndex:   func(n int) int { return 0 },
	}
}

// startedRoom seats p1 (mrx), p2 and p3 and places them on s1, s2, s3.
func startedRoom(t *testing.T, cfg Config) *Room {
	t.Helper()
	r := NewRoom("TEST01", cfg)
	for _, id := range []string{"p1", "p2", "p3"} {
		if err := r.Join(id, ""); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}
	if err := r.Start("p1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i, id := range []string{"p1", "p2", "p3"} {
		if err := r.Place(id, []string{"s1", "s2", "s3"}[i]); err != nil {
			t.Fatalf("place %s: %v", id, err)
		}
	}
	return r
}

func TestRoom_JoinBroadcastsState(t *testing.T) {
	b := &MockBroadcaster{}
	r := NewRoom("TEST01", testConfig(t, b))

	if err := r.Join("p1", "Alice"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := r.Join("p2", ""); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	if len(b.sent) != 2 {
		t.Fatalf("Expected one roomState per join, got %d packets", len(b.sent))
	}
	last := b.sent[1]
	if last.msgID != network.MsgTypeRoomState || len(last.to) != 2 {
		t.Errorf("Expected roomState to both players, got %d to %v", last.msgID, last.to)
	}

	var snap models.Room
	if err := json.Unmarshal(last.data, &snap); err != nil {
		t.Fatalf("roomState is not valid JSON: %v", err)
	}
	if snap.Code != "TEST01" || len(snap.Players) != 2 || snap.Host != "p1" {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
	if snap.Players[1].Name != "Player 2" {
		t.Errorf("Expected default name, got %q", snap.Players[1].Name)
	}
}

func TestRoom_RejectedIntentIsSilent(t *testing.T) {
	b := &MockBroadcaster{}
	r := NewRoom("TEST01", testConfig(t, b))
	r.Join("p1", "")
	b.reset()

	if err := r.Start("p1"); !errors.Is(err, models.ErrNotEnoughPlayers) {
		t.Fatalf("Expected ErrNotEnoughPlayers, got %v", err)
	}
	if len(b.sent) != 0 {
		t.Errorf("A rejected intent must not broadcast, got %v", b.ids())
	}
}

func TestRoom_BroadcastOrderOnCapture(t *testing.T) {
	b := &MockBroadcaster{}
	cfg := testConfig(t, b)
	cfg.Rules.RevealTurns = []int{1}
	r := startedRoom(t, cfg)

	b.reset()
	if err := r.Move("p1", "a", models.Bus); err != nil {
		t.Fatalf("mrx move: %v", err)
	}
	want := []uint16{network.MsgTypeMrXMoved, network.MsgTypeMrXLocationReveal, network.MsgTypeRoomState}
	if got := b.ids(); !equalIDs(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	b.reset()
	if err := r.Move("p2", "a", models.Rickshaw); err != nil {
		t.Fatalf("detective move: %v", err)
	}
	want = []uint16{network.MsgTypeRoomState, network.MsgTypeGameEnded}
	if got := b.ids(); !equalIDs(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	var ended network.GameEndedNotice
	json.Unmarshal(b.sent[1].data, &ended)
	if ended.Winner != models.WinnerDetectives {
		t.Errorf("Expected detectives in gameEnded, got %q", ended.Winner)
	}

	snap := r.Snapshot()
	if snap.GameState != models.StateFinished || snap.CurrentTurn != "" {
		t.Errorf("Expected a finished room with no turn, got %s/%q", snap.GameState, snap.CurrentTurn)
	}
}

func TestRoom_RedactedState(t *testing.T) {
	b := &MockBroadcaster{}
	cfg := testConfig(t, b)
	cfg.Rules.RedactHiddenPlayer = true
	r := startedRoom(t, cfg)

	b.reset()
	if err := r.Move("p1", "a", models.Bus); err != nil {
		t.Fatalf("mrx move: %v", err)
	}

	for _, p := range b.sent {
		if p.msgID != network.MsgTypeRoomState {
			continue
		}
		if len(p.to) != 1 {
			t.Fatalf("Redacted snapshots go to one player at a time, got %v", p.to)
		}
		var snap models.Room
		json.Unmarshal(p.data, &snap)
		mrx := snap.MrX()
		if p.to[0] == "p1" && (mrx.Position == nil || *mrx.Position != "a") {
			t.Errorf("mrx should see its own position")
		}
		if p.to[0] != "p1" && mrx.Position != nil {
			t.Errorf("%s should not see the mrx position", p.to[0])
		}
	}

	if snap := r.SnapshotFor("p2"); snap.MrX().Position != nil {
		t.Error("SnapshotFor should redact for a detective")
	}
	if snap := r.Snapshot(); snap.MrX().Position == nil {
		t.Error("Snapshot should be complete")
	}
}

func TestRoom_Hooks(t *testing.T) {
	var started []models.Room
	var finished []models.Room
	var rosters [][]models.Player
	cfg := testConfig(t, &MockBroadcaster{})
	cfg.Hooks = Hooks{
		OnStart: func(game models.Room) { started = append(started, game) },
		OnFinish: func(game models.Room, roster []models.Player, startedAt time.Time) {
			finished = append(finished, game)
			rosters = append(rosters, roster)
		},
	}

	r := startedRoom(t, cfg)
	if len(started) != 1 || started[0].Code != "TEST01" || started[0].MrX() == nil {
		t.Fatalf("Expected one OnStart for TEST01 with roles dealt, got %+v", started)
	}

	r.Leave("p1")
	if len(finished) != 1 || finished[0].Winner != models.WinnerDetectives {
		t.Fatalf("Expected one OnFinish with detectives, got %+v", finished)
	}
	// mrx 已离开，但开局名单仍包含他
	if len(finished[0].Players) != 2 || len(rosters[0]) != 3 {
		t.Fatalf("Expected 2 players at finish and 3 in the roster, got %d and %d", len(finished[0].Players), len(rosters[0]))
	}
	if rosters[0][0].ID != "p1" || rosters[0][0].Role != models.RoleMrX {
		t.Errorf("Expected the roster to keep the departed mrx, got %+v", rosters[0][0])
	}

	r.Leave("p2")
	if len(finished) != 1 {
		t.Errorf("OnFinish must fire only once, got %d", len(finished))
	}
}

func TestRoom_TurnDeadline(t *testing.T) {
	sched := &MockScheduler{}
	cfg := testConfig(t, &MockBroadcaster{})
	cfg.Scheduler = sched
	cfg.TurnTimeLimit = time.Minute

	r := NewRoom("TEST01", cfg)
	r.Join("p1", "")
	r.Join("p2", "")
	if sched.pending() != 0 {
		t.Fatalf("No deadline expected while waiting, got %d", sched.pending())
	}

	r.Start("p1")
	if sched.pending() != 1 {
		t.Fatalf("Expected one deadline for mrx placement, got %d", sched.pending())
	}

	// mrx times out and is placed automatically
	sched.fireAll()
	snap := r.Snapshot()
	if !snap.MrX().At("s1") || snap.CurrentTurn != "p2" {
		t.Fatalf("Expected mrx auto-placed on s1 and p2 to play, got %v %q", snap.MrX().Position, snap.CurrentTurn)
	}
	if sched.pending() != 1 {
		t.Fatalf("Expected a fresh deadline for p2, got %d", sched.pending())
	}

	// p2 acts in time: the old deadline is replaced
	r.Place("p2", "s3")
	if sched.pending() != 1 {
		t.Fatalf("Expected exactly one deadline after the turn passed, got %d", sched.pending())
	}

	// mrx skips its move
	sched.fireAll()
	snap = r.Snapshot()
	if snap.CurrentTurn != "p2" || !snap.MrX().At("s1") {
		t.Errorf("Expected the mrx turn to be skipped, got %q at %v", snap.CurrentTurn, snap.MrX().Position)
	}
}

func TestRoom_StaleDeadlineIgnored(t *testing.T) {
	sched := &MockScheduler{}
	cfg := testConfig(t, &MockBroadcaster{})
	cfg.Scheduler = sched
	cfg.TurnTimeLimit = time.Minute

	r := NewRoom("TEST01", cfg)
	r.Join("p1", "")
	r.Join("p2", "")
	r.Start("p1")

	// capture the callback before the turn advances
	sched.mu.Lock()
	var stale func()
	for _, cb := range sched.tasks {
		stale = cb
	}
	sched.mu.Unlock()

	r.Place("p1", "s2")
	stale()

	snap := r.Snapshot()
	if snap.CurrentTurn != "p2" || snap.Players[1].Placed() {
		t.Errorf("A stale deadline must not act for p2, got %q", snap.CurrentTurn)
	}
}

func TestRoom_ValidMoves(t *testing.T) {
	r := startedRoom(t, testConfig(t, &MockBroadcaster{}))

	moves, err := r.ValidMoves("p1")
	if err != nil {
		t.Fatalf("ValidMoves failed: %v", err)
	}
	if len(moves) != 1 || moves[0].NodeID != "a" || len(moves[0].Transports) != 2 {
		t.Errorf("Expected a via rickshaw and bus, got %+v", moves)
	}
	if _, err := r.ValidMoves("ghost"); !errors.Is(err, models.ErrNotInRoom) {
		t.Errorf("Expected ErrNotInRoom, got %v", err)
	}
}

func TestRoom_ClosedWhenEmpty(t *testing.T) {
	cfg := testConfig(t, &MockBroadcaster{})
	var emptied int
	r := NewRoom("TEST01", cfg)
	r.onEmpty = func(*Room) { emptied++ }

	r.Join("p1", "")
	r.Leave("p1")

	if emptied != 1 {
		t.Fatalf("Expected onEmpty once, got %d", emptied)
	}
	if err := r.Join("p2", ""); !errors.Is(err, models.ErrRoomClosed) {
		t.Errorf("Expected ErrRoomClosed, got %v", err)
	}
}

func equalIDs(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
