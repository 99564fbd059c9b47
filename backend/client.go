package backend

import (
	"fmt"
	"io"
	"net"

	"golang.org/x/net/context"

	"github.com/ec429/howzat/proto"
)

// A transport is one peer's byte-stream endpoint. ReadChunk blocks until
// bytes arrive; Write delivers whole frames queued by a SendBuffer.
type transport interface {
	io.Writer
	ReadChunk() ([]byte, error)
	Close() error
	Remote() string
}

type tcpTransport struct {
	conn net.Conn
	buf  [256]byte
}

func newTCPTransport(conn net.Conn) *tcpTransport { return &tcpTransport{conn: conn} }

func (t *tcpTransport) ReadChunk() ([]byte, error) {
	n, err := t.conn.Read(t.buf[:])
	var chunk []byte
	if n > 0 {
		chunk = make([]byte, n)
		copy(chunk, t.buf[:n])
	}
	if err == io.EOF {
		err = proto.ErrConnectionClosed
	}
	return chunk, err
}

func (t *tcpTransport) Write(p []byte) (int, error) { return t.conn.Write(p) }
func (t *tcpTransport) Close() error                { return t.conn.Close() }
func (t *tcpTransport) Remote() string              { return t.conn.RemoteAddr().String() }

// A client is one connection plus its session state: display identity,
// current room, and outstanding invitations indexed by kind. All fields
// other than the rx/tx buffers are owned by the dispatch goroutine.
type client struct {
	server *Server
	ctx    context.Context
	t      transport

	name       string
	player     string
	registered bool
	room       *Room
	inInvites  map[string]map[string]bool

	rx proto.FrameBuffer
	tx proto.SendBuffer

	wake   chan struct{}
	done   chan struct{}
	closed bool
}

func newClient(s *Server, t transport, name string) *client {
	return &client{
		server: s,
		ctx:    LoggingContext(context.Background(), fmt.Sprintf("[%s] ", name)),
		t:      t,
		name:   name,
		inInvites: map[string]map[string]bool{
			proto.InviteNew:  {},
			proto.InviteJoin: {},
		},
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (c *client) send(msgType proto.PacketType, payload interface{}) {
	p, err := proto.MakePacket(msgType, payload)
	if err != nil {
		Logger(c.ctx).Printf("error: encode %s: %s", msgType, err)
		return
	}
	data, _ := p.Encode()
	c.tx.Queue(data)
	packetsOut.Inc()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *client) sendError(format string, args ...interface{}) {
	protocolErrors.Inc()
	c.send(proto.ErrorType, &proto.ErrorEvent{Error: fmt.Sprintf(format, args...)})
}

// readLoop feeds raw chunks to the dispatch loop until the transport fails.
func (c *client) readLoop() {
	for {
		chunk, err := c.t.ReadChunk()
		if len(chunk) > 0 {
			c.server.post(event{c: c, data: chunk})
		}
		if err != nil {
			c.server.post(event{c: c, err: err})
			return
		}
	}
}

// writeLoop drains the send buffer whenever send signals new output.
func (c *client) writeLoop() {
	for {
		select {
		case <-c.wake:
			if err := c.flush(); err != nil {
				c.server.post(event{c: c, err: err})
				return
			}
		case <-c.done:
			c.flush()
			return
		}
	}
}

func (c *client) flush() error {
	for {
		pending, err := c.tx.Flush(c.t)
		if err != nil {
			return err
		}
		if pending == 0 {
			return nil
		}
	}
}

// close is called only from the dispatch goroutine.
func (c *client) close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	c.t.Close()
}
