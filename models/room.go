// models/room.go
package models

// Player 房间内的玩家
type Player struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	IsHost   bool    `json:"isHost"`
	Role     Role    `json:"role"`
	Position *string `json:"position"`
	Tickets  Tickets `json:"tickets"`
}

// Placed reports whether the player has chosen a node.
func (p *Player) Placed() bool {
	return p.Position != nil
}

// At reports whether the player stands on nodeID.
func (p *Player) At(nodeID string) bool {
	return p.Position != nil && *p.Position == nodeID
}

// Clone returns a deep copy of the player.
func (p *Player) Clone() Player {
	out := *p
	if p.Position != nil {
		pos := *p.Position
		out.Position = &pos
	}
	out.Tickets = p.Tickets.Clone()
	return out
}

// Room 房间快照，既是状态机的可变数据，也是广播给客户端的结构
type Room struct {
	Code                 string    `json:"code"`
	Host                 string    `json:"host"`
	Players              []*Player `json:"players"`
	GameState            GameState `json:"gameState"`
	CurrentTurn          string    `json:"currentTurn"`
	TurnNumber           int       `json:"turnNumber"`
	MrXLastKnownPosition *string   `json:"mrxLastKnownPosition"`
	MrXLastKnownTurn     *int      `json:"mrxLastKnownTurn"`
	Winner               Winner    `json:"winner"`
}

// NewRoom returns an empty room in the waiting phase.
func NewRoom(code string) *Room {
	return &Room{
		Code:      code,
		Players:   make([]*Player, 0),
		GameState: StateWaiting,
	}
}

// FindPlayer returns the player and its index in join order, or nil and -1.
func (r *Room) FindPlayer(id string) (*Player, int) {
	for i, p := range r.Players {
		if p.ID == id {
			return p, i
		}
	}
	return nil, -1
}

// MrX returns the hidden player, or nil before the game starts.
func (r *Room) MrX() *Player {
	for _, p := range r.Players {
		if p.Role == RoleMrX {
			return p
		}
	}
	return nil
}

// Detectives returns the detectives in join order.
func (r *Room) Detectives() []*Player {
	out := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		if p.Role == RoleDetective {
			out = append(out, p)
		}
	}
	return out
}

// NextDetective returns the first detective at or after index from.
func (r *Room) NextDetective(from int) *Player {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(r.Players); i++ {
		if r.Players[i].Role == RoleDetective {
			return r.Players[i]
		}
	}
	return nil
}

// FirstUnplacedDetective 按加入顺序找到第一个尚未落子的侦探
func (r *Room) FirstUnplacedDetective() *Player {
	for _, p := range r.Players {
		if p.Role == RoleDetective && !p.Placed() {
			return p
		}
	}
	return nil
}

// Occupied reports whether any player stands on nodeID.
func (r *Room) Occupied(nodeID string) bool {
	for _, p := range r.Players {
		if p.At(nodeID) {
			return true
		}
	}
	return false
}

// RemovePlayer deletes the player at index i and hands host to the first
// remaining player when needed.
func (r *Room) RemovePlayer(i int) {
	if i < 0 || i >= len(r.Players) {
		return
	}
	id := r.Players[i].ID
	r.Players = append(r.Players[:i], r.Players[i+1:]...)
	if r.Host == id {
		r.Host = ""
		if len(r.Players) > 0 {
			r.Host = r.Players[0].ID
			r.Players[0].IsHost = true
		}
	}
}

// PlayerIDs returns the ids of every player in join order.
func (r *Room) PlayerIDs() []string {
	ids := make([]string, len(r.Players))
	for i, p := range r.Players {
		ids[i] = p.ID
	}
	return ids
}

// Clone returns a deep copy safe to hand to other goroutines.
func (r *Room) Clone() Room {
	out := *r
	out.Players = make([]*Player, len(r.Players))
	for i, p := range r.Players {
		cp := p.Clone()
		out.Players[i] = &cp
	}
	if r.MrXLastKnownPosition != nil {
		pos := *r.MrXLastKnownPosition
		out.MrXLastKnownPosition = &pos
	}
	if r.MrXLastKnownTurn != nil {
		turn := *r.MrXLastKnownTurn
		out.MrXLastKnownTurn = &turn
	}
	return out
}

// ViewFor returns a copy of the room as seen by viewerID: detectives (and
// strangers) do not see the live mrx position until the game is over.
func (r *Room) ViewFor(viewerID string) Room {
	view := r.Clone()
	if view.GameState == StateFinished {
		return view
	}
	for _, p := range view.Players {
		if p.Role == RoleMrX && p.ID != viewerID {
			p.Position = nil
		}
	}
	return view
}
