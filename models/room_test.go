package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRoom_JSONNulls(t *testing.T) {
	room := NewRoom("ROOM01")
	room.Host = "p1"
	room.Players = append(room.Players, &Player{
		ID:      "p1",
		Name:    "Alice",
		IsHost:  true,
		Tickets: DefaultRules().DetectiveTickets.Clone(),
	})

	data, err := json.Marshal(room)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	got := string(data)
	for _, want := range []string{
		`"role":null`,
		`"position":null`,
		`"winner":null`,
		`"mrxLastKnownPosition":null`,
		`"mrxLastKnownTurn":null`,
		`"gameState":"WAITING"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %s in %s", want, got)
		}
	}

	var decoded Room
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Winner != WinnerNone || decoded.Players[0].Role != RoleNone {
		t.Errorf("null should decode to the zero value, got winner %q role %q", decoded.Winner, decoded.Players[0].Role)
	}
}

func TestRoom_JSONStartedValues(t *testing.T) {
	room := NewRoom("ROOM01")
	room.Players = append(room.Players, &Player{ID: "p1", Role: RoleMrX})
	room.GameState = StateFinished
	room.Winner = WinnerDetectives

	data, err := json.Marshal(room)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, `"role":"mrx"`) || !strings.Contains(got, `"winner":"detectives"`) {
		t.Errorf("Unexpected encoding %s", got)
	}
}
