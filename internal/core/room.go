package core

// Room is the broadcast set for one group: every subscribed connection
// receives that group's message events. Membership is resolved once at
// connection setup; rooms are owned by the hub goroutine and need no
// locking.
type Room struct {
	ID    string
	conns map[*Conn]struct{}
}

// NewRoom constructs a room with no connections.
func NewRoom(id string) *Room {
	return &Room{
		ID:    id,
		conns: make(map[*Conn]struct{}),
	}
}

// Add inserts a connection into the room. Returns true if newly added.
func (r *Room) Add(c *Conn) bool {
	if _, exists := r.conns[c]; exists {
		return false
	}
	r.conns[c] = struct{}{}
	return true
}

// Remove deletes a connection from the room. Returns true if removed.
func (r *Room) Remove(c *Conn) bool {
	if _, exists := r.conns[c]; !exists {
		return false
	}
	delete(r.conns, c)
	return true
}

// Conns returns the subscribed connections.
func (r *Room) Conns() []*Conn {
	out := make([]*Conn, 0, len(r.conns))
	for c := range r.conns {
		out = append(out, c)
	}
	return out
}

// Empty returns true if no connections are subscribed.
func (r *Room) Empty() bool {
	return len(r.conns) == 0
}

// roomTable tracks rooms by group ID, creating them on first subscribe
// and dropping them once empty.
type roomTable struct {
	rooms map[string]*Room
}

func newRoomTable() *roomTable {
	return &roomTable{rooms: make(map[string]*Room)}
}

func (t *roomTable) subscribe(c *Conn, roomIDs []string) {
	for _, id := range roomIDs {
		room, ok := t.rooms[id]
		if !ok {
			room = NewRoom(id)
			t.rooms[id] = room
		}
		room.Add(c)
		c.rooms[id] = struct{}{}
	}
}

func (t *roomTable) unsubscribeAll(c *Conn) {
	for id := range c.rooms {
		room, ok := t.rooms[id]
		if !ok {
			continue
		}
		room.Remove(c)
		if room.Empty() {
			delete(t.rooms, id)
		}
	}
	c.rooms = make(map[string]struct{})
}

func (t *roomTable) room(id string) *Room {
	return t.rooms[id]
}
