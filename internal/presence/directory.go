package presence

import (
	"slices"
	"sort"
)

// Directory maps room ids to their members in join order. Empty rooms are
// deleted as soon as their last member is removed. Not safe for concurrent
// use.
type Directory struct {
	rooms map[string][]string
}

func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string][]string)}
}

// AddMember creates the room if needed and appends the connection.
// Adding an existing member leaves its position unchanged.
func (d *Directory) AddMember(room, id string) {
	members := d.rooms[room]
	if slices.Contains(members, id) {
		return
	}
	d.rooms[room] = append(members, id)
}

// RemoveMember drops the connection and deletes the room once it is empty.
func (d *Directory) RemoveMember(room, id string) {
	members, ok := d.rooms[room]
	if !ok {
		return
	}
	i := slices.Index(members, id)
	if i < 0 {
		return
	}
	members = slices.Delete(members, i, i+1)
	if len(members) == 0 {
		delete(d.rooms, room)
		return
	}
	d.rooms[room] = members
}

// MembersOf returns a copy of the member ids, empty for an unknown room.
func (d *Directory) MembersOf(room string) []string {
	return slices.Clone(d.rooms[room])
}

func (d *Directory) Has(room string) bool {
	_, ok := d.rooms[room]
	return ok
}

// Rooms returns the ids of all non-empty rooms, sorted.
func (d *Directory) Rooms() []string {
	ids := make([]string, 0, len(d.rooms))
	for id := range d.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (d *Directory) Len() int {
	return len(d.rooms)
}
