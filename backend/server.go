package backend

import (
	"fmt"
	"net"
	"net/http"
	"sort"

	"euphoria.io/scope"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/context"

	"github.com/ec429/howzat/backend/console"
	"github.com/ec429/howzat/coro"
	"github.com/ec429/howzat/proto"
	"github.com/ec429/howzat/proto/snowflake"
)

// ErrHalted terminates the server's scope when an operator shuts it down.
var ErrHalted = fmt.Errorf("server halted")

// An event is one unit of work for the dispatch loop: inbound bytes or a
// transport failure from a connection's reader/writer, or a closure posted
// by another goroutine wanting a word with the server's state.
type event struct {
	c    *client
	data []byte
	err  error
	fn   func(*Server)
}

// A Server owns every session, room, and game. All of that state is touched
// only from the goroutine running Serve; connections and the HTTP and console
// surfaces post events to reach it.
type Server struct {
	ctx  scope.Context
	bctx context.Context
	motd string

	reactor *coro.Reactor
	clients map[string]*client
	lobby   *Room
	games   map[snowflake.Snowflake]*Game

	events   chan event
	listener net.Listener
	router   *mux.Router
}

func NewServer(ctx scope.Context, motd string) *Server {
	if motd == "" {
		motd = DefaultMOTD
	}
	s := &Server{
		ctx:     ctx,
		bctx:    LoggingContext(context.Background(), "[server] "),
		motd:    motd,
		reactor: coro.New(),
		clients: map[string]*client{},
		lobby:   newRoom("lobby"),
		games:   map[snowflake.Snowflake]*Game{},
		events:  make(chan event, 64),
	}
	s.router = mux.NewRouter()
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.HandleFunc("/status", s.handleStatus)
	s.router.HandleFunc("/ws", s.handleWS)
	return s
}

func (s *Server) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

// do runs fn on the dispatch goroutine.
func (s *Server) do(fn func(*Server)) { s.post(event{fn: fn}) }

// Accept takes ownership of l and feeds its connections to the dispatch
// loop until the listener closes.
func (s *Server) Accept(l net.Listener) {
	s.listener = l
	for {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		connectionsAccepted.Inc()
		t := newTCPTransport(conn)
		s.do(func(s *Server) { s.attach(t) })
	}
}

// attach adopts a transport as a new session under a placeholder name, sends
// the welcome, and starts its pump goroutines.
func (s *Server) attach(t transport) *client {
	name := t.Remote()
	for i := 2; ; i++ {
		if _, ok := s.clients[name]; !ok {
			break
		}
		name = fmt.Sprintf("%s#%d", t.Remote(), i)
	}
	c := newClient(s, t, name)
	s.clients[name] = c
	sessionsActive.Set(float64(len(s.clients)))
	Logger(c.ctx).Printf("accepted connection")

	c.send(proto.WelcomeType, &proto.WelcomeEvent{Version: proto.ServerVersion, Message: s.motd})
	go c.readLoop()
	go c.writeLoop()
	return c
}

// Serve is the dispatch loop. It returns when the server's scope terminates.
func (s *Server) Serve() error {
	Logger(s.bctx).Printf("serving")
	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case ev := <-s.events:
			s.process(ev)
		}
	}
}

func (s *Server) process(ev event) {
	switch {
	case ev.fn != nil:
		ev.fn(s)
	case ev.c == nil || ev.c.closed:
		// Stale event from a connection already torn down.
	case ev.err != nil:
		s.teardown(ev.c, ev.err)
	default:
		ev.c.rx.Feed(ev.data)
		s.dispatch(ev.c)
	}
}

// halt notifies every session, flushes, and terminates the scope.
func (s *Server) halt(reason string) {
	Logger(s.bctx).Printf("halting: %s", reason)
	if s.listener != nil {
		s.listener.Close()
	}
	for _, c := range s.clients {
		c.send(proto.ErrorType, &proto.ErrorEvent{Error: "Server halted by operator"})
		c.flush()
		c.close()
	}
	s.clients = map[string]*client{}
	sessionsActive.Set(0)
	s.ctx.Terminate(ErrHalted)
}

// Halt requests an orderly shutdown. Safe to call from any goroutine.
func (s *Server) Halt(reason string) { s.do(func(s *Server) { s.halt(reason) }) }

// Who snapshots the session directory. Safe to call from any goroutine.
func (s *Server) Who() []console.SessionInfo {
	reply := make(chan []console.SessionInfo, 1)
	s.do(func(s *Server) {
		infos := make([]console.SessionInfo, 0, len(s.clients))
		for name, c := range s.clients {
			info := console.SessionInfo{Name: name}
			if c.room != nil {
				info.Room = c.room.name
			}
			infos = append(infos, info)
		}
		sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
		reply <- infos
	})
	select {
	case infos := <-reply:
		return infos
	case <-s.ctx.Done():
		return nil
	}
}

func (s *Server) MOTD() string { return s.motd }

// Announce walls a message from the operator to every session.
func (s *Server) Announce(message string) {
	s.do(func(s *Server) {
		for _, c := range s.clients {
			c.send(proto.WallType, &proto.WallMessage{From: "server", Message: message})
		}
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	infos := s.Who()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "howzat server\nsessions: %d\n", len(infos))
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\n", info.Name, info.Room)
	}
}
