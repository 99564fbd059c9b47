package backend

import (
	"bytes"
	"testing"

	"euphoria.io/scope"

	"github.com/ec429/howzat/coro"
	"github.com/ec429/howzat/proto"

	. "github.com/smartystreets/goconvey/convey"
)

// nullTransport swallows writes. Tests drive the dispatch synchronously and
// read replies straight out of each client's send buffer, so neither pump
// goroutine ever runs.
type nullTransport struct{ closed bool }

func (t *nullTransport) ReadChunk() ([]byte, error) { select {} }
func (t *nullTransport) Write(p []byte) (int, error) { return len(p), nil }
func (t *nullTransport) Close() error {
	t.closed = true
	return nil
}
func (t *nullTransport) Remote() string { return "test" }

func testServer() *Server { return NewServer(scope.New(), "test motd") }

func connect(s *Server, placeholder string) *client {
	c := newClient(s, &nullTransport{}, placeholder)
	s.clients[placeholder] = c
	return c
}

func say(s *Server, c *client, doc string) {
	c.rx.Feed(append([]byte(doc), proto.Terminator))
	s.dispatch(c)
}

func hello(s *Server, c *client, username string) {
	say(s, c, `{"type":"hello","username":"`+username+`"}`)
}

// replies drains and decodes everything queued for c since the last call.
func replies(c *client) []*proto.Packet {
	var buf bytes.Buffer
	for {
		pending, err := c.tx.Flush(&buf)
		So(err, ShouldBeNil)
		if pending == 0 {
			break
		}
	}
	ps := []*proto.Packet{}
	for _, line := range bytes.Split(buf.Bytes(), []byte{proto.Terminator}) {
		if len(line) == 0 {
			continue
		}
		p, err := proto.ParsePacket(line)
		So(err, ShouldBeNil)
		ps = append(ps, p)
	}
	return ps
}

func ofType(ps []*proto.Packet, typ proto.PacketType) []*proto.Packet {
	out := []*proto.Packet{}
	for _, p := range ps {
		if p.Type == typ {
			out = append(out, p)
		}
	}
	return out
}

func errorsIn(ps []*proto.Packet) []string {
	out := []string{}
	for _, p := range ofType(ps, proto.ErrorType) {
		payload, err := p.Payload()
		So(err, ShouldBeNil)
		out = append(out, payload.(*proto.ErrorEvent).Error)
	}
	return out
}

func TestRegistration(t *testing.T) {
	Convey("With a fresh server", t, func() {
		s := testServer()
		c := connect(s, "conn1")

		Convey("hello registers and enters the lobby", func() {
			hello(s, c, "alice")
			So(s.clients["alice"], ShouldEqual, c)
			So(c.registered, ShouldBeTrue)
			So(s.lobby.contains(c), ShouldBeTrue)

			enters := ofType(replies(c), proto.EnterType)
			So(len(enters), ShouldEqual, 1)
			payload, err := enters[0].Payload()
			So(err, ShouldBeNil)
			So(payload.(*proto.EnterEvent).User, ShouldEqual, "alice")

			Convey("a second hello is refused but not fatal", func() {
				hello(s, c, "alice2")
				So(errorsIn(replies(c)), ShouldContain, "Already registered as alice")
				So(c.closed, ShouldBeFalse)
				So(c.name, ShouldEqual, "alice")
			})

			Convey("a duplicate username ends the newcomer's session", func() {
				c2 := connect(s, "conn2")
				hello(s, c2, "alice")
				So(errorsIn(replies(c2)), ShouldContain, "Username alice already in use")
				So(c2.closed, ShouldBeTrue)
				So(s.clients["alice"], ShouldEqual, c)
			})
		})

		Convey("an empty username ends the session", func() {
			say(s, c, `{"type":"hello","username":""}`)
			So(errorsIn(replies(c)), ShouldContain, "Bad 'username' in 'hello'")
			So(c.closed, ShouldBeTrue)
		})

		Convey("anything but hello before registration ends the session", func() {
			say(s, c, `{"type":"wall","message":"hi"}`)
			So(errorsIn(replies(c)), ShouldContain, "Say 'hello' first")
			So(c.closed, ShouldBeTrue)
		})

		Convey("goodbye before registration closes cleanly", func() {
			say(s, c, `{"type":"goodbye"}`)
			So(c.closed, ShouldBeTrue)
			So(len(errorsIn(replies(c))), ShouldEqual, 0)
			So(s.clients["conn1"], ShouldBeNil)
		})

		Convey("a malformed frame is reported and the session survives", func() {
			say(s, c, `this is not json`)
			errs := errorsIn(replies(c))
			So(len(errs), ShouldEqual, 1)
			So(c.closed, ShouldBeFalse)

			hello(s, c, "alice")
			So(c.registered, ShouldBeTrue)
		})

		Convey("an unknown message type ends the session", func() {
			hello(s, c, "alice")
			replies(c)
			say(s, c, `{"type":"zorp"}`)
			errs := errorsIn(replies(c))
			So(len(errs), ShouldEqual, 1)
			So(errs[0], ShouldContainSubstring, "unknown message type")
			So(c.closed, ShouldBeTrue)
		})

		Convey("a server-only type from a client ends the session", func() {
			hello(s, c, "alice")
			replies(c)
			say(s, c, `{"type":"welcome","version":[1],"message":"hi"}`)
			So(errorsIn(replies(c)), ShouldContain, "'welcome' is not a client message")
			So(c.closed, ShouldBeTrue)
		})
	})
}

func TestLobby(t *testing.T) {
	Convey("With alice and bob in the lobby", t, func() {
		s := testServer()
		a := connect(s, "conn1")
		b := connect(s, "conn2")
		hello(s, a, "alice")
		hello(s, b, "bob")

		Convey("each introduction was mutual", func() {
			// alice: her own enter, then both sides of bob's arrival.
			So(len(ofType(replies(a), proto.EnterType)), ShouldEqual, 2)
			// bob: his own enter plus alice's presence.
			So(len(ofType(replies(b), proto.EnterType)), ShouldEqual, 2)
		})

		Convey("wall reaches every occupant", func() {
			replies(a)
			replies(b)
			say(s, a, `{"type":"wall","message":"howdy"}`)
			for _, c := range []*client{a, b} {
				walls := ofType(replies(c), proto.WallType)
				So(len(walls), ShouldEqual, 1)
				payload, err := walls[0].Payload()
				So(err, ShouldBeNil)
				ev := payload.(*proto.WallMessage)
				So(ev.From, ShouldEqual, "alice")
				So(ev.Message, ShouldEqual, "howdy")
				So(ev.ID.IsZero(), ShouldBeFalse)
			}
		})

		Convey("an empty wall is dropped silently", func() {
			replies(b)
			say(s, a, `{"type":"wall","message":""}`)
			So(len(replies(b)), ShouldEqual, 0)
		})

		Convey("goodbye departs cleanly", func() {
			replies(a)
			say(s, b, `{"type":"goodbye"}`)
			So(b.closed, ShouldBeTrue)
			So(s.clients["bob"], ShouldBeNil)
			So(s.lobby.contains(b), ShouldBeFalse)

			exits := ofType(replies(a), proto.ExitType)
			So(len(exits), ShouldEqual, 1)
		})

		Convey("a transport error tears the session down", func() {
			replies(a)
			s.process(event{c: b, err: proto.ErrConnectionClosed})
			So(b.closed, ShouldBeTrue)
			So(s.clients["bob"], ShouldBeNil)
			So(len(ofType(replies(a), proto.ExitType)), ShouldEqual, 1)
		})

		Convey("an action with no pending decision is refused", func() {
			say(s, a, `{"type":"action","action":"roll"}`)
			So(errorsIn(replies(a)), ShouldContain, "No action expected from you")
			So(a.closed, ShouldBeFalse)
		})
	})
}

func TestInvitations(t *testing.T) {
	Convey("With alice and bob in the lobby", t, func() {
		s := testServer()
		a := connect(s, "conn1")
		b := connect(s, "conn2")
		hello(s, a, "alice")
		hello(s, b, "bob")
		replies(a)
		replies(b)

		Convey("inviting yourself is refused", func() {
			say(s, a, `{"type":"invite","invitation":"new","to":"alice"}`)
			So(errorsIn(replies(a)), ShouldContain, "Can't invite yourself!")
		})

		Convey("inviting a stranger is refused", func() {
			say(s, a, `{"type":"invite","invitation":"new","to":"carol"}`)
			So(errorsIn(replies(a)), ShouldContain, `No such 'to' "carol" in 'invite'`)
		})

		Convey("an unknown invitation kind is refused", func() {
			say(s, a, `{"type":"invite","invitation":"duel","to":"bob"}`)
			So(errorsIn(replies(a)), ShouldContain, `Bad 'invite': unhandled 'invitation' "duel"`)
		})

		Convey("accept without an invitation is refused", func() {
			say(s, b, `{"type":"accept","invitation":"new","to":"alice"}`)
			So(errorsIn(replies(b)), ShouldContain, `No outstanding "new" invitation from alice to accept`)
		})

		Convey("after alice invites bob", func() {
			say(s, a, `{"type":"invite","invitation":"new","to":"bob"}`)
			invites := ofType(replies(b), proto.InviteType)
			So(len(invites), ShouldEqual, 1)
			payload, err := invites[0].Payload()
			So(err, ShouldBeNil)
			So(payload.(*proto.InviteMessage).From, ShouldEqual, "alice")
			So(payload.(*proto.InviteMessage).Invitation, ShouldEqual, proto.InviteNew)

			Convey("re-inviting is idempotent", func() {
				say(s, a, `{"type":"invite","invitation":"new","to":"bob"}`)
				So(len(errorsIn(replies(a))), ShouldEqual, 0)
				So(len(ofType(replies(b), proto.InviteType)), ShouldEqual, 1)
			})

			Convey("alice can revoke, and then accept fails", func() {
				say(s, a, `{"type":"revoke","invitation":"new","to":"bob"}`)
				So(len(ofType(replies(b), proto.RevokeType)), ShouldEqual, 1)

				say(s, b, `{"type":"accept","invitation":"new","to":"alice"}`)
				So(errorsIn(replies(b)), ShouldContain, `No outstanding "new" invitation from alice to accept`)
				So(len(s.games), ShouldEqual, 0)
			})

			Convey("revoking twice fails", func() {
				say(s, a, `{"type":"revoke","invitation":"new","to":"bob"}`)
				replies(b)
				say(s, a, `{"type":"revoke","invitation":"new","to":"bob"}`)
				So(errorsIn(replies(a)), ShouldContain, `No outstanding "new" invitation to bob to revoke`)
			})

			Convey("bob can reject", func() {
				say(s, b, `{"type":"reject","invitation":"new","to":"alice"}`)
				rejects := ofType(replies(a), proto.RejectType)
				So(len(rejects), ShouldEqual, 1)
				So(s.lobby.contains(a), ShouldBeTrue)
				So(s.lobby.contains(b), ShouldBeTrue)
			})

			Convey("bob's disconnection invalidates the invitation", func() {
				s.process(event{c: b, err: proto.ErrConnectionClosed})
				c2 := connect(s, "conn3")
				hello(s, c2, "bob")
				say(s, c2, `{"type":"accept","invitation":"new","to":"alice"}`)
				So(errorsIn(replies(c2)), ShouldContain, `No outstanding "new" invitation from alice to accept`)
			})

			Convey("alice's disconnection invalidates the invitation", func() {
				s.process(event{c: a, err: proto.ErrConnectionClosed})
				So(b.inInvites[proto.InviteNew]["alice"], ShouldBeFalse)
			})

			Convey("bob accepting forms a game atomically", func() {
				say(s, b, `{"type":"accept","invitation":"new","to":"alice"}`)
				So(len(s.games), ShouldEqual, 1)
				So(s.lobby.contains(a), ShouldBeFalse)
				So(s.lobby.contains(b), ShouldBeFalse)

				var g *Game
				for _, gg := range s.games {
					g = gg
				}
				So(g.contains(a), ShouldBeTrue)
				So(g.contains(b), ShouldBeTrue)
				So(g.ID.IsZero(), ShouldBeFalse)

				aPackets := replies(a)
				So(len(ofType(aPackets, proto.AcceptType)), ShouldEqual, 1)
				So(len(ofType(aPackets, proto.JoinType)), ShouldEqual, 2)

				bPackets := replies(b)
				So(len(ofType(bPackets, proto.JoinType)), ShouldEqual, 2)

				Convey("and the away captain is prompted to call the toss", func() {
					prompts := ofType(bPackets, proto.ActionType)
					So(len(prompts), ShouldEqual, 1)
					payload, err := prompts[0].Payload()
					So(err, ShouldBeNil)
					So(payload.(*proto.ActionCommand).Action, ShouldEqual, "call toss")
					So(s.reactor.Waiting(coro.Token("bob")), ShouldBeTrue)
				})

				Convey("and neither can be invited until it ends", func() {
					c3 := connect(s, "conn3")
					hello(s, c3, "carol")
					say(s, c3, `{"type":"invite","invitation":"new","to":"alice"}`)
					So(errorsIn(replies(c3)), ShouldContain, "Can't invite: alice is not in the lobby")
				})
			})
		})
	})
}

func TestReconnection(t *testing.T) {
	Convey("With a game waiting on bob's call", t, func() {
		s := testServer()
		a := connect(s, "conn1")
		b := connect(s, "conn2")
		hello(s, a, "alice")
		hello(s, b, "bob")
		say(s, a, `{"type":"invite","invitation":"new","to":"bob"}`)
		say(s, b, `{"type":"accept","invitation":"new","to":"alice"}`)
		So(s.reactor.Waiting(coro.Token("bob")), ShouldBeTrue)
		replies(a)
		replies(b)

		Convey("bob dropping parks the decision", func() {
			s.process(event{c: b, err: proto.ErrConnectionClosed})
			So(s.reactor.Parked(coro.Token("bob")), ShouldBeTrue)
			So(s.reactor.Waiting(coro.Token("bob")), ShouldBeFalse)
			So(len(s.games), ShouldEqual, 1)
			So(len(ofType(replies(a), proto.ExitType)), ShouldEqual, 1)

			Convey("and his return rejoins the game and reissues the prompt", func() {
				c2 := connect(s, "conn3")
				hello(s, c2, "bob")
				So(s.lobby.contains(c2), ShouldBeFalse)
				So(s.reactor.Waiting(coro.Token("bob")), ShouldBeTrue)

				ps := replies(c2)
				So(len(ofType(ps, proto.EnterType)), ShouldBeGreaterThanOrEqualTo, 2)
				prompts := ofType(ps, proto.ActionType)
				So(len(prompts), ShouldEqual, 1)
				payload, err := prompts[0].Payload()
				So(err, ShouldBeNil)
				So(payload.(*proto.ActionCommand).Action, ShouldEqual, "call toss")

				Convey("and the game continues from where it stopped", func() {
					say(s, c2, `{"type":"action","action":"call toss","tails":true}`)
					prompts := ofType(replies(a), proto.ActionType)
					So(len(prompts), ShouldEqual, 1)
					payload, err := prompts[0].Payload()
					So(err, ShouldBeNil)
					So(payload.(*proto.ActionCommand).Action, ShouldEqual, "flip coin")
				})
			})
		})

		Convey("a wrong-field action is rejected and the wait stays", func() {
			say(s, b, `{"type":"action","action":"call toss","tails":"yes"}`)
			So(errorsIn(replies(b)), ShouldContain, "'call toss' requires 'tails': bool")
			So(s.reactor.Waiting(coro.Token("bob")), ShouldBeTrue)
		})

		Convey("a mistimed action is queued, not lost", func() {
			say(s, b, `{"type":"action","action":"choose first","bat":true}`)
			So(len(errorsIn(replies(b))), ShouldEqual, 0)
			So(s.reactor.QueueLen(coro.Token("bob")), ShouldEqual, 1)
			So(s.reactor.Waiting(coro.Token("bob")), ShouldBeTrue)
		})
	})
}
