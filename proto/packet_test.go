package proto

import (
	"encoding/json"
	"testing"

	"github.com/ec429/howzat/proto/snowflake"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParsePacket(t *testing.T) {
	Convey("Valid documents parse by type", t, func() {
		p, err := ParsePacket([]byte(`{"type":"hello","username":"ann","player":"Ann"}`))
		So(err, ShouldBeNil)
		So(p.Type, ShouldEqual, HelloType)

		payload, err := p.Payload()
		So(err, ShouldBeNil)
		So(payload, ShouldResemble, &HelloCommand{Username: "ann", Player: "Ann"})
	})

	Convey("Non-JSON input is malformed", t, func() {
		_, err := ParsePacket([]byte("not json"))
		So(err, ShouldNotBeNil)
		So(err, ShouldHaveSameTypeAs, &MalformedError{})
	})

	Convey("A document without a type is malformed", t, func() {
		_, err := ParsePacket([]byte(`{"username":"ann"}`))
		So(err, ShouldHaveSameTypeAs, &MalformedError{})

		_, err = ParsePacket([]byte(`{"type":42}`))
		So(err, ShouldHaveSameTypeAs, &MalformedError{})
	})

	Convey("An unrecognized type is a first-class error", t, func() {
		p, err := ParsePacket([]byte(`{"type":"launch-missiles"}`))
		So(err, ShouldBeNil)
		_, err = p.Payload()
		So(err, ShouldResemble, &UnknownMessageError{Type: "launch-missiles"})
	})
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		msgType PacketType
		payload interface{}
	}{
		{WelcomeType, &WelcomeEvent{Version: []int{1, 0, 0}, Message: "hi"}},
		{WallType, &WallMessage{Message: "anyone for a game?"}},
		{WallType, &WallMessage{ID: 12345, From: "ann", Message: "anyone?"}},
		{InviteType, &InviteMessage{Invitation: InviteNew, To: "bob"}},
		{InviteType, &InviteMessage{Invitation: InviteNew, From: "ann"}},
		{AcceptType, &AcceptMessage{Invitation: InviteNew, To: "ann"}},
		{RevokeType, &RevokeMessage{Invitation: InviteJoin, From: "bob"}},
		{EnterType, &EnterEvent{User: "ann"}},
		{JoinType, &JoinEvent{From: "ann", Player: "Ann", Team: "ann"}},
		{ErrorType, &ErrorEvent{Error: "username already in use"}},
	}

	Convey("Encoded packets decode to equivalent documents", t, func() {
		for _, c := range cases {
			p, err := MakePacket(c.msgType, c.payload)
			So(err, ShouldBeNil)

			encoded, err := p.Encode()
			So(err, ShouldBeNil)

			back, err := ParsePacket(encoded)
			So(err, ShouldBeNil)
			So(back.Type, ShouldEqual, c.msgType)

			payload, err := back.Payload()
			So(err, ShouldBeNil)
			So(payload, ShouldResemble, c.payload)
		}
	})

	Convey("Server-stamped fields survive decoding", t, func() {
		id, err := snowflake.New()
		So(err, ShouldBeNil)
		p, err := MakePacket(WallType, &WallMessage{ID: id, From: "ann", Message: "hi"})
		So(err, ShouldBeNil)

		back, err := ParsePacket(p.Data)
		So(err, ShouldBeNil)
		payload, err := back.Payload()
		So(err, ShouldBeNil)

		wall := payload.(*WallMessage)
		So(wall.ID, ShouldEqual, id)
		So(wall.From, ShouldEqual, "ann")
		So(wall.Message, ShouldEqual, "hi")
	})

	Convey("Encoded documents are flat", t, func() {
		p, err := MakePacket(WallType, &WallMessage{Message: "hi"})
		So(err, ShouldBeNil)
		fields := map[string]interface{}{}
		So(json.Unmarshal(p.Data, &fields), ShouldBeNil)
		So(fields["type"], ShouldEqual, "wall")
		So(fields["message"], ShouldEqual, "hi")
	})
}

func TestActionCommand(t *testing.T) {
	Convey("Actions keep their extra fields", t, func() {
		p, err := ParsePacket([]byte(`{"type":"action","action":"call toss","tails":true}`))
		So(err, ShouldBeNil)

		payload, err := p.Payload()
		So(err, ShouldBeNil)
		cmd := payload.(*ActionCommand)
		So(cmd.Action, ShouldEqual, "call toss")

		tails, ok := cmd.Bool("tails")
		So(ok, ShouldBeTrue)
		So(tails, ShouldBeTrue)

		_, ok = cmd.Bool("bat")
		So(ok, ShouldBeFalse)
		_, ok = cmd.String("tails")
		So(ok, ShouldBeFalse)
	})

	Convey("Named fields validate by type", t, func() {
		p, err := ParsePacket([]byte(`{"type":"action","action":"choose bowler","bowler":7}`))
		So(err, ShouldBeNil)
		payload, err := p.Payload()
		So(err, ShouldBeNil)
		cmd := payload.(*ActionCommand)
		_, ok := cmd.String("bowler")
		So(ok, ShouldBeFalse)
	})
}
