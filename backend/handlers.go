package backend

import (
	"errors"

	"github.com/ec429/howzat/coro"
	"github.com/ec429/howzat/proto"
	"golang.org/x/net/context"
)

// A fatalError is a protocol violation serious enough to end the session
// after the error report is delivered.
type fatalError struct{ error }

func fatal(err error) error { return fatalError{err} }

// dispatch handles every complete frame buffered for c, reporting errors to
// the peer. A panic in a handler is contained to the message that caused it.
func (s *Server) dispatch(c *client) {
	for !c.closed {
		frame, ok := c.rx.Next()
		if !ok {
			return
		}
		packetsIn.Inc()
		if err := s.dispatchFrame(c, frame); err != nil {
			c.sendError("%s", err)
			var f fatalError
			if errors.As(err, &f) {
				s.teardown(c, nil)
				return
			}
		}
	}
}

func (s *Server) dispatchFrame(c *client, frame []byte) (err error) {
	defer func() {
		if p := recover(); p != nil {
			Logger(c.ctx).Printf("panic handling frame: %v", p)
			err = proto.Violation("internal error")
		}
	}()

	packet, perr := proto.ParsePacket(frame)
	if perr != nil {
		// A malformed frame is reported but does not end the session.
		return perr
	}
	payload, perr := packet.Payload()
	if perr != nil {
		var unknown *proto.UnknownMessageError
		if errors.As(perr, &unknown) {
			return fatal(perr)
		}
		return perr
	}

	if !c.registered {
		switch payload.(type) {
		case *proto.HelloCommand:
		case *proto.GoodbyeCommand:
			// Goodbye ends the session cleanly from any state.
		default:
			return fatal(proto.Violation("Say 'hello' first"))
		}
	}

	switch msg := payload.(type) {
	case *proto.HelloCommand:
		return s.handleHello(c, msg)
	case *proto.GoodbyeCommand:
		return s.handleGoodbye(c)
	case *proto.WallMessage:
		return s.handleWall(c, msg)
	case *proto.InviteMessage:
		return s.handleInvite(c, msg)
	case *proto.RevokeMessage:
		return s.handleRevoke(c, msg)
	case *proto.AcceptMessage:
		return s.handleAccept(c, msg)
	case *proto.RejectMessage:
		return s.handleReject(c, msg)
	case *proto.ActionCommand:
		return s.handleAction(c, msg)
	default:
		// Recognized on the wire, but only ever sent by the server.
		return fatal(proto.Violation("'%s' is not a client message", packet.Type))
	}
}

func (s *Server) handleHello(c *client, msg *proto.HelloCommand) error {
	if c.registered {
		return proto.Violation("Already registered as %s", c.name)
	}
	if msg.Username == "" {
		return fatal(proto.Violation("Bad 'username' in 'hello'"))
	}
	if _, taken := s.clients[msg.Username]; taken {
		return fatal(proto.Violation("Username %s already in use", msg.Username))
	}

	Logger(c.ctx).Printf("registered as %q", msg.Username)
	delete(s.clients, c.name)
	c.name = msg.Username
	c.player = msg.Player
	if c.player == "" {
		c.player = msg.Username
	}
	c.registered = true
	c.ctx = LoggingContext(context.Background(), "["+c.name+"] ")
	s.clients[c.name] = c

	if g := s.gameFor(c.name); g != nil {
		// Returning participant: rejoin the game and restart any decision
		// that was suspended when they dropped.
		g.enter(c)
		token := coro.Token(c.name)
		if s.reactor.Waiting(token) {
			// The match prompted for a decision while they were away; force
			// the prompt to be reissued.
			s.reactor.Park(token)
		}
		if s.reactor.Parked(token) {
			if err := s.reactor.Poke(token); err != nil {
				Logger(c.ctx).Printf("error: poke %s: %s", token, err)
			}
			waitsPending.Set(float64(s.reactor.Pending()))
		}
		return nil
	}
	s.lobby.enter(c)
	return nil
}

func (s *Server) handleGoodbye(c *client) error {
	Logger(c.ctx).Printf("goodbye")
	s.teardown(c, nil)
	return nil
}

func (s *Server) handleWall(c *client, msg *proto.WallMessage) error {
	if c.room == nil {
		return proto.Violation("Not in a room, can't wall")
	}
	if msg.Message == "" {
		return nil
	}
	c.room.wall(c.name, msg.Message)
	return nil
}

// checkInvitee resolves the counterparty of an invitation-related command.
func (s *Server) checkInvitee(verb, name string) (*client, error) {
	to, ok := s.clients[name]
	if !ok || !to.registered {
		return nil, proto.Violation("No such 'to' %q in '%s'", name, verb)
	}
	return to, nil
}

func (s *Server) handleInvite(c *client, msg *proto.InviteMessage) error {
	to, err := s.checkInvitee("invite", msg.To)
	if err != nil {
		return err
	}
	if to == c {
		return proto.Violation("Can't invite yourself!")
	}
	switch msg.Invitation {
	case proto.InviteNew:
		if !s.lobby.contains(to) {
			return proto.Violation("Can't invite: %s is not in the lobby", to.name)
		}
		if !s.lobby.contains(c) {
			return proto.Violation("Can't invite to a new game while not in the lobby")
		}
	case proto.InviteJoin:
		if s.gameFor(to.name) == nil {
			return proto.Violation("Can't invite to 'join': %s is not in a game", to.name)
		}
	default:
		return proto.Violation("Bad 'invite': unhandled 'invitation' %q", msg.Invitation)
	}
	// Re-inviting is idempotent; the invitee just sees the event again.
	to.inInvites[msg.Invitation][c.name] = true
	to.send(proto.InviteType, &proto.InviteMessage{Invitation: msg.Invitation, From: c.name})
	return nil
}

func (s *Server) handleRevoke(c *client, msg *proto.RevokeMessage) error {
	to, err := s.checkInvitee("revoke", msg.To)
	if err != nil {
		return err
	}
	if !to.inInvites[msg.Invitation][c.name] {
		return proto.Violation("No outstanding %q invitation to %s to revoke", msg.Invitation, to.name)
	}
	delete(to.inInvites[msg.Invitation], c.name)
	to.send(proto.RevokeType, &proto.RevokeMessage{Invitation: msg.Invitation, From: c.name})
	return nil
}

func (s *Server) handleAccept(c *client, msg *proto.AcceptMessage) error {
	from, err := s.checkInvitee("accept", msg.To)
	if err != nil {
		return err
	}
	if !c.inInvites[msg.Invitation][from.name] {
		return proto.Violation("No outstanding %q invitation from %s to accept", msg.Invitation, from.name)
	}

	switch msg.Invitation {
	case proto.InviteNew:
		if !s.lobby.contains(c) || !s.lobby.contains(from) {
			return proto.Violation("Can't accept: both parties must be in the lobby")
		}
		delete(c.inInvites[msg.Invitation], from.name)
		// A stale counter-invitation must not survive into the game.
		delete(from.inInvites[msg.Invitation], c.name)
		s.lobby.exit(c)
		s.lobby.exit(from)
		from.send(proto.AcceptType, &proto.AcceptMessage{Invitation: msg.Invitation, From: c.name})
		s.newGame(from, c)
		return nil
	case proto.InviteJoin:
		return proto.Violation("Can't accept 'join': joining a game in progress is not yet possible")
	default:
		return proto.Violation("Bad 'accept': unhandled 'invitation' %q", msg.Invitation)
	}
}

func (s *Server) handleReject(c *client, msg *proto.RejectMessage) error {
	from, err := s.checkInvitee("reject", msg.To)
	if err != nil {
		return err
	}
	if !c.inInvites[msg.Invitation][from.name] {
		return proto.Violation("No outstanding %q invitation from %s to reject", msg.Invitation, from.name)
	}
	delete(c.inInvites[msg.Invitation], from.name)
	from.send(proto.RejectType, &proto.RejectMessage{Invitation: msg.Invitation, From: c.name})
	return nil
}

func (s *Server) handleAction(c *client, msg *proto.ActionCommand) error {
	token := coro.Token(c.name)
	if !s.reactor.Waiting(token) {
		return proto.Violation("No action expected from you")
	}
	consumed, err := s.reactor.Offer(token, msg)
	if err != nil {
		Logger(c.ctx).Printf("error: action %q: %s", msg.Action, err)
		return proto.Violation("internal error")
	}
	if !consumed {
		Logger(c.ctx).Printf("queued action %q for later", msg.Action)
	}
	waitsPending.Set(float64(s.reactor.Pending()))
	return nil
}

// teardown removes c from the directory and its room, invalidates its
// invitations in both directions, and disposes of its decision state: a
// participant mid-game keeps a parked wait for reconnection, anyone else is
// forgotten outright.
func (s *Server) teardown(c *client, cause error) {
	if c.closed {
		return
	}
	if cause != nil && cause != proto.ErrConnectionClosed {
		Logger(c.ctx).Printf("connection lost: %s", cause)
	} else {
		Logger(c.ctx).Printf("connection closed")
	}

	delete(s.clients, c.name)
	if c.room != nil {
		c.room.exit(c)
	}
	for _, other := range s.clients {
		for kind := range other.inInvites {
			delete(other.inInvites[kind], c.name)
		}
	}

	token := coro.Token(c.name)
	if c.registered && s.gameFor(c.name) != nil {
		s.reactor.Park(token)
	} else {
		s.reactor.Cancel(token)
	}

	c.close()
	sessionsActive.Set(float64(len(s.clients)))
	waitsPending.Set(float64(s.reactor.Pending()))
}
