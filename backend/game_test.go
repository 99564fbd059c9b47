package backend

import (
	"encoding/json"
	"testing"

	"github.com/ec429/howzat/proto"

	. "github.com/smartystreets/goconvey/convey"
)

// answer builds the action document a cooperative participant would send in
// response to a prompt.
func answer(ev *proto.ActionEvent) string {
	fields := map[string]interface{}{"type": "action", "action": ev.Action}
	switch ev.Action {
	case "call toss":
		fields["tails"] = true
	case "choose first":
		fields["bat"] = true
	case "choose bowler":
		fields["bowler"] = ev.Legal[0]
	case "choose keeper":
		fields["keeper"] = ev.Legal[0]
	case "next bat":
		fields["batsman"] = ev.Legal[0]
	}
	data, err := json.Marshal(fields)
	So(err, ShouldBeNil)
	return string(data)
}

func TestRemoteMatch(t *testing.T) {
	Convey("Two captains answering every prompt play a match to completion", t, func() {
		s := testServer()
		a := connect(s, "conn1")
		b := connect(s, "conn2")
		hello(s, a, "alice")
		hello(s, b, "bob")
		say(s, a, `{"type":"invite","invitation":"new","to":"bob"}`)
		say(s, b, `{"type":"accept","invitation":"new","to":"alice"}`)
		So(len(s.games), ShouldEqual, 1)

		var g *Game
		for _, gg := range s.games {
			g = gg
		}

		for i := 0; i < 100000 && len(s.games) > 0; i++ {
			acted := false
			for _, c := range []*client{a, b} {
				for _, p := range replies(c) {
					if p.Type != proto.ActionType {
						continue
					}
					var ev proto.ActionEvent
					So(json.Unmarshal(p.Data, &ev), ShouldBeNil)
					say(s, c, answer(&ev))
					acted = true
				}
			}
			if len(s.games) > 0 {
				So(acted, ShouldBeTrue)
			}
		}

		So(len(s.games), ShouldEqual, 0)
		So(g.match.Result, ShouldNotBeEmpty)

		Convey("with the result walled to the room", func() {
			sawResult := false
			for _, p := range ofType(replies(a), proto.WallType) {
				payload, err := p.Payload()
				So(err, ShouldBeNil)
				if payload.(*proto.WallMessage).Message == g.match.Result {
					sawResult = true
				}
			}
			So(sawResult, ShouldBeTrue)
		})

		Convey("with both innings accounted for", func() {
			So(g.match.First, ShouldNotBeNil)
			So(g.match.Second, ShouldNotBeNil)
			So(g.match.First.InPlay, ShouldBeFalse)
			So(g.match.Second.InPlay, ShouldBeFalse)
		})

		Convey("and both captains are returned to the lobby", func() {
			So(s.lobby.contains(a), ShouldBeTrue)
			So(s.lobby.contains(b), ShouldBeTrue)
			So(s.reactor.Pending(), ShouldEqual, 0)
		})
	})
}
