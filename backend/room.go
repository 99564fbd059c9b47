package backend

import (
	"fmt"

	"github.com/ec429/howzat/proto"
	"github.com/ec429/howzat/proto/snowflake"
)

// A Room is a set of mutually visible sessions. Entering and leaving are
// broadcast to every occupant, newcomer included.
type Room struct {
	name      string
	occupants map[string]*client
}

func newRoom(name string) *Room {
	return &Room{name: name, occupants: map[string]*client{}}
}

func (r *Room) contains(c *client) bool {
	_, ok := r.occupants[c.name]
	return ok
}

func (r *Room) enter(c *client) {
	c.send(proto.EnterType, &proto.EnterEvent{User: c.name})
	for _, o := range r.occupants {
		o.send(proto.EnterType, &proto.EnterEvent{User: c.name})
		c.send(proto.EnterType, &proto.EnterEvent{User: o.name})
	}
	r.occupants[c.name] = c
	c.room = r
}

func (r *Room) exit(c *client) error {
	if c.room != r {
		return fmt.Errorf("%s is not in %s", c.name, r.name)
	}
	for _, o := range r.occupants {
		o.send(proto.ExitType, &proto.ExitEvent{User: c.name})
	}
	delete(r.occupants, c.name)
	c.room = nil
	return nil
}

func (r *Room) wall(from, message string) {
	id, err := snowflake.New()
	if err != nil {
		id = 0
	}
	for _, o := range r.occupants {
		o.send(proto.WallType, &proto.WallMessage{ID: id, From: from, Message: message})
	}
}
