// Package client is a minimal synchronous client for the howzat protocol,
// suitable for bots and tests.
package client

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/ec429/howzat/proto"
)

type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

func New(conn net.Conn) *Client {
	return &Client{conn: conn, r: bufio.NewReader(conn)}
}

func (c *Client) Close() error { return c.conn.Close() }

// Read blocks until the next frame and decodes it.
func (c *Client) Read() (*proto.Packet, error) {
	line, err := c.r.ReadBytes(proto.Terminator)
	if err != nil {
		return nil, err
	}
	return proto.ParsePacket(line[:len(line)-1])
}

// ReadTimeout is Read with a deadline, for tests that must not hang.
func (c *Client) ReadTimeout(d time.Duration) (*proto.Packet, error) {
	c.conn.SetReadDeadline(time.Now().Add(d))
	defer c.conn.SetReadDeadline(time.Time{})
	return c.Read()
}

// WaitFor reads until a packet of one of the given types arrives, discarding
// everything else.
func (c *Client) WaitFor(types ...proto.PacketType) (*proto.Packet, error) {
	for {
		p, err := c.Read()
		if err != nil {
			return nil, err
		}
		for _, t := range types {
			if p.Type == t {
				return p, nil
			}
		}
	}
}

func (c *Client) Send(msgType proto.PacketType, payload interface{}) error {
	p, err := proto.MakePacket(msgType, payload)
	if err != nil {
		return err
	}
	data, err := p.Encode()
	if err != nil {
		return err
	}
	_, err = c.conn.Write(append(data, proto.Terminator))
	return err
}

// SendRaw writes one pre-encoded frame, terminator included. For exercising
// the server's handling of arbitrary bytes.
func (c *Client) SendRaw(frame string) error {
	_, err := fmt.Fprint(c.conn, frame)
	return err
}

func (c *Client) Hello(username, player string) error {
	return c.Send(proto.HelloType, &proto.HelloCommand{Username: username, Player: player})
}

func (c *Client) Goodbye() error {
	return c.Send(proto.GoodbyeType, &proto.GoodbyeCommand{})
}

func (c *Client) Wall(message string) error {
	return c.Send(proto.WallType, &proto.WallMessage{Message: message})
}

func (c *Client) Invite(invitation, to string) error {
	return c.Send(proto.InviteType, &proto.InviteMessage{Invitation: invitation, To: to})
}

func (c *Client) Revoke(invitation, to string) error {
	return c.Send(proto.RevokeType, &proto.RevokeMessage{Invitation: invitation, To: to})
}

func (c *Client) Accept(invitation, from string) error {
	return c.Send(proto.AcceptType, &proto.AcceptMessage{Invitation: invitation, To: from})
}

func (c *Client) Reject(invitation, from string) error {
	return c.Send(proto.RejectType, &proto.RejectMessage{Invitation: invitation, To: from})
}

// Action sends an action command with the given extra fields.
func (c *Client) Action(action string, fields map[string]interface{}) error {
	doc := map[string]interface{}{"type": "action", "action": action}
	for k, v := range fields {
		doc[k] = v
	}
	return c.Send(proto.ActionType, doc)
}
