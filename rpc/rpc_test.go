package rpc

import (
	"net/rpc"
	"strings"
	"testing"
	"time"

	"github.com/wfunc/mrxserver/gamemap"
	"github.com/wfunc/mrxserver/models"
	"github.com/wfunc/mrxserver/persistence"
	"github.com/wfunc/mrxserver/room"
	"github.com/wfunc/mrxserver/services"
)

func startTestServer(t *testing.T) (*rpc.Client, *room.Manager, *services.RecordService) {
	t.Helper()

	rooms := room.NewRoomManager(room.Config{
		Rules: models.DefaultRules(),
		Map:   gamemap.Default(),
	})
	records := services.NewRecordService(persistence.NewMemory())

	srv, err := NewServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if err := srv.Register(NewGameService(rooms, records)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	go srv.Start()
	t.Cleanup(srv.Stop)

	client, err := rpc.Dial("tcp", srv.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, rooms, records
}

func TestGameService_Rooms(t *testing.T) {
	client, rooms, _ := startTestServer(t)
	rooms.JoinOrCreate("ROOM01", "p1", "Alice")

	var list ListRoomsReply
	if err := client.Call("GameService.ListRooms", &ListRoomsArgs{}, &list); err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(list.Rooms) != 1 || list.Rooms[0].Code != "ROOM01" || list.Rooms[0].Players != 1 {
		t.Errorf("Unexpected rooms %+v", list.Rooms)
	}

	var playing ListRoomsReply
	if err := client.Call("GameService.ListRooms", &ListRoomsArgs{GameState: models.StateInProgress}, &playing); err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(playing.Rooms) != 0 {
		t.Errorf("Expected no rooms in progress, got %+v", playing.Rooms)
	}

	var got GetRoomReply
	if err := client.Call("GameService.GetRoom", &GetRoomArgs{Code: "ROOM01"}, &got); err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if got.Room.Host != "p1" || len(got.Room.Players) != 1 {
		t.Errorf("Unexpected room %+v", got.Room)
	}

	err := client.Call("GameService.GetRoom", &GetRoomArgs{Code: "NOPE00"}, &got)
	if err == nil || !strings.Contains(err.Error(), "room not found") {
		t.Errorf("Expected room not found, got %v", err)
	}
}

func TestGameService_Records(t *testing.T) {
	client, _, records := startTestServer(t)

	game := models.NewRoom("ROOM01")
	game.GameState = models.StateFinished
	game.Winner = models.WinnerMrX
	game.Players = []*models.Player{{ID: "p1", Role: models.RoleMrX}}
	records.Record(game.Clone(), nil, time.Now())
	records.Wait()

	var recent RecentGamesReply
	if err := client.Call("GameService.RecentGames", &RecentGamesArgs{Limit: 5}, &recent); err != nil {
		t.Fatalf("RecentGames failed: %v", err)
	}
	if len(recent.Records) != 1 || recent.Records[0].Winner != models.WinnerMrX {
		t.Errorf("Unexpected records %+v", recent.Records)
	}

	var stats PlayerStatsReply
	if err := client.Call("GameService.PlayerStats", &PlayerStatsArgs{PlayerID: "p1"}, &stats); err != nil {
		t.Fatalf("PlayerStats failed: %v", err)
	}
	if stats.Stats.Wins != 1 {
		t.Errorf("Expected 1 win, got %+v", stats.Stats)
	}
}

func TestGameService_DeleteRoom(t *testing.T) {
	client, rooms, _ := startTestServer(t)
	rooms.JoinOrCreate("ROOM01", "p1", "Alice")
	rooms.JoinOrCreate("ROOM01", "p2", "Bob")

	var reply DeleteRoomReply
	if err := client.Call("GameService.DeleteRoom", &DeleteRoomArgs{Code: "ROOM01"}, &reply); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
	if reply.Players != 2 {
		t.Errorf("Expected 2 seated players, got %d", reply.Players)
	}
	if rooms.Count() != 0 {
		t.Errorf("Expected the room to be gone, %d left", rooms.Count())
	}

	err := client.Call("GameService.DeleteRoom", &DeleteRoomArgs{Code: "ROOM01"}, &reply)
	if err == nil || !strings.Contains(err.Error(), "room not found") {
		t.Errorf("Expected room not found, got %v", err)
	}
}
