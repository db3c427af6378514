package room

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/wfunc/mrxserver/models"
)

func TestRoomManager_CreateAndGetRoom(t *testing.T) {
	manager := NewRoomManager(testConfig(t, &MockBroadcaster{}))

	room, err := manager.CreateRoom("ROOM01")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if room.Code() != "ROOM01" {
		t.Errorf("Expected room code ROOM01, got %s", room.Code())
	}

	if _, err := manager.CreateRoom("ROOM01"); !errors.Is(err, models.ErrRoomExists) {
		t.Errorf("Expected ErrRoomExists, got %v", err)
	}

	retrievedRoom, err := manager.GetRoom("ROOM01")
	if err != nil {
		t.Fatalf("GetRoom should find the created room: %v", err)
	}
	if retrievedRoom != room {
		t.Error("GetRoom should return the same room instance")
	}

	if _, err := manager.GetRoom("NOPE00"); !errors.Is(err, models.ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}
}

func TestRoomManager_JoinOrCreate(t *testing.T) {
	manager := NewRoomManager(testConfig(t, &MockBroadcaster{}))

	r1, err := manager.JoinOrCreate("ROOM01", "p1", "Alice")
	if err != nil {
		t.Fatalf("JoinOrCreate failed: %v", err)
	}
	r2, err := manager.JoinOrCreate("ROOM01", "p2", "Bob")
	if err != nil {
		t.Fatalf("JoinOrCreate failed: %v", err)
	}
	if r1 != r2 {
		t.Fatal("Both players should land in the same room")
	}
	if snap := r1.Snapshot(); snap.Host != "p1" || len(snap.Players) != 2 {
		t.Errorf("Expected host p1 with 2 players, got %q with %d", snap.Host, len(snap.Players))
	}

	// rejoining is idempotent
	if _, err := manager.JoinOrCreate("ROOM01", "p1", "Alice"); err != nil {
		t.Fatalf("Rejoin failed: %v", err)
	}
	if r1.NumPlayers() != 2 {
		t.Errorf("Expected 2 players after rejoin, got %d", r1.NumPlayers())
	}
}

func TestRoomManager_RemovedWhenEmpty(t *testing.T) {
	manager := NewRoomManager(testConfig(t, &MockBroadcaster{}))

	room, _ := manager.JoinOrCreate("ROOM01", "p1", "")
	manager.JoinOrCreate("ROOM01", "p2", "")

	room.Leave("p1")
	if manager.Count() != 1 {
		t.Fatalf("Room should survive while a player remains")
	}
	room.Leave("p2")
	if manager.Count() != 0 {
		t.Fatalf("Expected the empty room to be removed, %d rooms left", manager.Count())
	}

	// the code is free again and gets a fresh room
	fresh, err := manager.JoinOrCreate("ROOM01", "p3", "")
	if err != nil {
		t.Fatalf("JoinOrCreate failed: %v", err)
	}
	if fresh == room {
		t.Error("Expected a new room instance")
	}
	if fresh.Snapshot().Host != "p3" {
		t.Errorf("Expected p3 to host the new room")
	}
}

func TestRoomManager_StaleRemoveKeepsNewRoom(t *testing.T) {
	manager := NewRoomManager(testConfig(t, &MockBroadcaster{}))

	old, _ := manager.CreateRoom("ROOM01")
	manager.removeRoom(old)
	fresh, _ := manager.CreateRoom("ROOM01")

	manager.removeRoom(old)
	if got, err := manager.GetRoom("ROOM01"); err != nil || got != fresh {
		t.Error("Removing a stale instance must not drop the new room")
	}
}

func TestRoomManager_DeleteRoom(t *testing.T) {
	manager := NewRoomManager(testConfig(t, &MockBroadcaster{}))

	room, _ := manager.JoinOrCreate("ROOM01", "p1", "")
	if err := manager.DeleteRoom("ROOM01"); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
	if _, err := manager.GetRoom("ROOM01"); !errors.Is(err, models.ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound after delete, got %v", err)
	}
	if err := room.Join("p2", ""); !errors.Is(err, models.ErrRoomClosed) {
		t.Errorf("Expected the deleted room to refuse intents, got %v", err)
	}
	if err := manager.DeleteRoom("ROOM01"); !errors.Is(err, models.ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound on second delete, got %v", err)
	}

	fresh, err := manager.JoinOrCreate("ROOM01", "p2", "")
	if err != nil || fresh == room {
		t.Errorf("Expected a fresh room under the freed code, got %v", err)
	}
}

func TestRoomManager_CreateWithGeneratedCode(t *testing.T) {
	manager := NewRoomManager(testConfig(t, &MockBroadcaster{}))

	room, err := manager.CreateWithGeneratedCode("p1", "Alice")
	if err != nil {
		t.Fatalf("CreateWithGeneratedCode failed: %v", err)
	}
	code := room.Code()
	if len(code) != codeLength {
		t.Errorf("Expected a %d character code, got %q", codeLength, code)
	}
	for _, c := range code {
		if !strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("Unexpected character %q in %q", c, code)
		}
	}
	if snap := room.Snapshot(); snap.Host != "p1" {
		t.Errorf("Expected the creator to host, got %q", snap.Host)
	}
}

func TestRoomManager_ListRooms(t *testing.T) {
	manager := NewRoomManager(testConfig(t, &MockBroadcaster{}))
	manager.JoinOrCreate("BBBBBB", "p1", "")
	manager.JoinOrCreate("AAAAAA", "p2", "")
	manager.JoinOrCreate("AAAAAA", "p3", "")

	infos := manager.ListRooms()
	if len(infos) != 2 {
		t.Fatalf("Expected 2 rooms, got %d", len(infos))
	}
	if infos[0].Code != "AAAAAA" || infos[0].Players != 2 || infos[0].GameState != models.StateWaiting {
		t.Errorf("Unexpected first room %+v", infos[0])
	}
}

func TestRoomManager_ConcurrentJoin(t *testing.T) {
	manager := NewRoomManager(testConfig(t, &MockBroadcaster{}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	joined, full := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := manager.JoinOrCreate("ROOM01", fmt.Sprintf("p%d", i), "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				joined++
			case errors.Is(err, models.ErrRoomFull):
				full++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	maxPlayers := models.DefaultRules().MaxPlayers
	if joined != maxPlayers || full != 20-maxPlayers {
		t.Errorf("Expected %d joined and %d rejected, got %d and %d", maxPlayers, 20-maxPlayers, joined, full)
	}
	if manager.Count() != 1 {
		t.Errorf("Expected a single room, got %d", manager.Count())
	}
}
