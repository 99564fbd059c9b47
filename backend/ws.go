package backend

import (
	"bytes"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ec429/howzat/proto"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	connectionsAccepted.Inc()
	t := &wsTransport{conn: conn}
	s.do(func(s *Server) { s.attach(t) })
}

// wsTransport adapts a websocket to the line protocol: each text message is
// one frame, so reads append a terminator and writes split on it.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadChunk() ([]byte, error) {
	for {
		mt, data, err := t.conn.ReadMessage()
		if err != nil {
			return nil, proto.ErrConnectionClosed
		}
		if mt != websocket.TextMessage {
			continue
		}
		return append(data, proto.Terminator), nil
	}
}

func (t *wsTransport) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(p, []byte{proto.Terminator}) {
		if len(line) == 0 {
			continue
		}
		if err := t.conn.WriteMessage(websocket.TextMessage, line); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (t *wsTransport) Close() error { return t.conn.Close() }

func (t *wsTransport) Remote() string { return t.conn.RemoteAddr().String() }
