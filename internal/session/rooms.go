package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Registry tracks the room worklist for an agent session. At most one
// room is active at a time; the rest accumulate unread counts.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]*Room
	order    []string // arrival order, keeps activity-time ties stable
	activeID string
	now      func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryNow replaces the activity clock, for tests.
func WithRegistryNow(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{rooms: make(map[string]*Room), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Upsert merges an update into the registry and returns the stored
// room. Merging keeps the later LastActivityAt and never blanks a
// non-empty field with an empty one.
func (r *Registry) Upsert(room Room) Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.upsertLocked(room)
}

func (r *Registry) upsertLocked(room Room) *Room {
	cur, ok := r.rooms[room.ID]
	if !ok {
		cp := room
		if cp.Status == "" {
			cp.Status = RoomStatusActive
		}
		r.rooms[room.ID] = &cp
		r.order = append(r.order, room.ID)
		return &cp
	}

	if room.Counterpart != "" {
		cur.Counterpart = room.Counterpart
	}
	if room.LastMessage != "" {
		cur.LastMessage = room.LastMessage
	}
	if room.LastActivityAt.After(cur.LastActivityAt) {
		cur.LastActivityAt = room.LastActivityAt
	}
	if room.Status != "" {
		cur.Status = room.Status
	}
	if room.Unread > 0 {
		cur.Unread = room.Unread
	}
	return cur
}

// Touch records message activity on a room. Unknown rooms get an
// implicit placeholder entry so the worklist never silently drops an
// event that raced ahead of its room_updated.
func (r *Registry) Touch(roomID, preview string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.rooms[roomID]
	if !ok {
		slog.Debug("creating placeholder room", "room", roomID, "implicit", true)
		cur = r.upsertLocked(Room{
			ID:             roomID,
			Status:         RoomStatusActive,
			LastActivityAt: at,
			Implicit:       true,
		})
	}
	if preview != "" {
		cur.LastMessage = preview
	}
	if at.After(cur.LastActivityAt) {
		cur.LastActivityAt = at
	}
	if roomID != r.activeID {
		cur.Unread++
	}
}

// SetActive selects the single active room and clears its unread count.
// The previously active room was live until this moment, so its
// LastActivityAt is stamped at the transition to keep the worklist
// order honest.
func (r *Registry) SetActive(roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	r.stampActiveLocked()
	r.activeID = roomID
	room.Unread = 0
	return nil
}

// ClearActive deselects the active room, if any, stamping its activity
// time at the transition.
func (r *Registry) ClearActive() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stampActiveLocked()
	r.activeID = ""
}

func (r *Registry) stampActiveLocked() {
	prev, ok := r.rooms[r.activeID]
	if !ok {
		return
	}
	if at := r.now(); at.After(prev.LastActivityAt) {
		prev.LastActivityAt = at
	}
}

// Active returns the active room.
func (r *Registry) Active() (Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeID == "" {
		return Room{}, false
	}
	room, ok := r.rooms[r.activeID]
	if !ok {
		return Room{}, false
	}
	return *room, true
}

// Get returns a room by id.
func (r *Registry) Get(roomID string) (Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return Room{}, false
	}
	return *room, true
}

// Close marks a room closed and deselects it if it was active.
func (r *Registry) Close(roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	room.Status = RoomStatusClosed
	if r.activeID == roomID {
		r.activeID = ""
	}
	return nil
}

// Remove drops a room from the registry entirely.
func (r *Registry) Remove(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[roomID]; !ok {
		return
	}
	delete(r.rooms, roomID)
	for i, id := range r.order {
		if id == roomID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.activeID == roomID {
		r.activeID = ""
	}
}

// Available returns the open rooms, most recent activity first. Ties
// keep arrival order.
func (r *Registry) Available() []Room {
	return r.list(func(room *Room) bool { return room.Status == RoomStatusActive })
}

// All returns every room, most recent activity first.
func (r *Registry) All() []Room {
	return r.list(func(*Room) bool { return true })
}

func (r *Registry) list(keep func(*Room) bool) []Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Room, 0, len(r.order))
	for _, id := range r.order {
		room := r.rooms[id]
		if room != nil && keep(room) {
			out = append(out, *room)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActivityAt.After(out[j].LastActivityAt)
	})
	return out
}

// ReplaceAvailable merges a server-pushed room list into the registry.
func (r *Registry) ReplaceAvailable(rooms []Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, room := range rooms {
		r.upsertLocked(room)
	}
}

// Len returns the number of tracked rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
