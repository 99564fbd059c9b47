package backend

import (
	"time"

	"github.com/ec429/howzat/coro"
	"github.com/ec429/howzat/cricket"
	"github.com/ec429/howzat/proto"
)

// A remotePlayer is a cricket.Chooser whose every decision suspends on the
// named session's action token. The client is looked up in the directory at
// each prompt, so a participant who reconnects under the same name picks up
// where they left off.
type remotePlayer struct {
	server *Server
	game   *Game
	name   string
}

func (p *remotePlayer) token() coro.Token { return coro.Token(p.name) }

func (p *remotePlayer) client() *client { return p.server.clients[p.name] }

func (p *remotePlayer) prompt(ev *proto.ActionEvent) {
	if c := p.client(); c != nil {
		c.send(proto.ActionType, ev)
	}
}

func (p *remotePlayer) complain(format string, args ...interface{}) {
	if c := p.client(); c != nil {
		c.sendError(format, args...)
	}
}

func actionPred(actions ...string) coro.Pred {
	return func(msg interface{}) bool {
		cmd, ok := msg.(*proto.ActionCommand)
		if !ok {
			return false
		}
		for _, a := range actions {
			if cmd.Action == a {
				return true
			}
		}
		return false
	}
}

// awaitAction prompts and suspends until a matching action arrives. A nil
// resume value means the participant reconnected; the prompt is reissued.
func (p *remotePlayer) awaitAction(send func(), actions ...string) coro.Task {
	var task coro.Task
	task = func() coro.Yield {
		send()
		return coro.Wait(p.token(), actionPred(actions...), func(v interface{}) coro.Yield {
			if v == nil {
				return task()
			}
			return coro.Done(v)
		})
	}
	return task
}

// wheel derives n-sided randomness from the sub-millisecond phase of the
// clock at the moment the participant's action was processed.
func wheel(n int) int {
	t := time.Now().UnixNano() % int64(time.Millisecond)
	return int(t * int64(n) / int64(time.Millisecond))
}

func (p *remotePlayer) FlipCoin(reason string) coro.Task {
	if reason == "" {
		reason = "the toss"
	}
	wait := p.awaitAction(func() {
		p.prompt(&proto.ActionEvent{Action: "flip coin", Reason: reason})
	}, "flip coin")
	return coro.Bind(wait, func(interface{}) coro.Task {
		tails := wheel(2) == 1
		side := "heads"
		if tails {
			side = "tails"
		}
		p.game.Printf("%s flipped %s", p.name, side)
		return coro.Pure(tails)
	})
}

func (p *remotePlayer) RollD6(reason string) coro.Task {
	wait := p.awaitAction(func() {
		p.prompt(&proto.ActionEvent{Action: "roll", Dice: 1, Reason: reason})
	}, "roll")
	return coro.Bind(wait, func(interface{}) coro.Task {
		r := wheel(6) + 1
		p.game.Printf("%s rolled d6 %c", p.name, cricket.DieFace(r))
		return coro.Pure(r)
	})
}

func (p *remotePlayer) Roll2D6(reason string) coro.Task {
	wait := p.awaitAction(func() {
		p.prompt(&proto.ActionEvent{Action: "roll", Dice: 2, Reason: reason})
	}, "roll")
	return coro.Bind(wait, func(interface{}) coro.Task {
		a := wheel(6) + 1
		b := wheel(36)%6 + 1
		p.game.Printf("%s rolled 2d6 %c%c -> %d", p.name, cricket.DieFace(a), cricket.DieFace(b), a+b)
		return coro.Pure(a + b)
	})
}

func (p *remotePlayer) CallToss() coro.Task {
	var task coro.Task
	wait := p.awaitAction(func() {
		p.prompt(&proto.ActionEvent{Action: "call toss"})
	}, "call toss")
	task = coro.Bind(wait, func(v interface{}) coro.Task {
		cmd := v.(*proto.ActionCommand)
		tails, ok := cmd.Bool("tails")
		if !ok {
			p.complain("'call toss' requires 'tails': bool")
			return task
		}
		return coro.Pure(tails)
	})
	return task
}

func (p *remotePlayer) ChooseToBat() coro.Task {
	var task coro.Task
	wait := p.awaitAction(func() {
		p.prompt(&proto.ActionEvent{Action: "choose first", Reason: "You won the toss"})
	}, "choose first")
	task = coro.Bind(wait, func(v interface{}) coro.Task {
		cmd := v.(*proto.ActionCommand)
		bat, ok := cmd.Bool("bat")
		if !ok {
			p.complain("'choose first' requires 'bat': bool")
			return task
		}
		return coro.Pure(bat)
	})
	return task
}

func (p *remotePlayer) ChooseBowler(inns *cricket.Innings, legal []*cricket.Player) coro.Task {
	var task coro.Task
	wait := p.awaitAction(func() {
		p.prompt(&proto.ActionEvent{
			Action:  "choose bowler",
			Legal:   playerNames(legal),
			Current: inns.Bowling.Name,
		})
	}, "choose bowler", "choose keeper")
	task = coro.Bind(wait, func(v interface{}) coro.Task {
		cmd := v.(*proto.ActionCommand)
		if cmd.Action == "choose keeper" {
			name, _ := cmd.String("keeper")
			q := findPlayer(inns.Fielding.Field, name)
			if q == nil {
				p.complain("'choose keeper' requires 'keeper' from the fielding side")
			} else {
				inns.ChooseKeeper(q)
			}
			return task
		}
		name, _ := cmd.String("bowler")
		q := findPlayer(legal, name)
		if q == nil {
			p.complain("'choose bowler' requires 'bowler' from the legal list")
			return task
		}
		if q.Keeper {
			p.complain("'choose bowler': %s is currently keeping wicket (try 'choose keeper' to change)", q.Name)
			return task
		}
		return coro.Pure(q)
	})
	return task
}

func (p *remotePlayer) ChooseKeeper(legal []*cricket.Player) coro.Task {
	var task coro.Task
	wait := p.awaitAction(func() {
		p.prompt(&proto.ActionEvent{Action: "choose keeper", Legal: playerNames(legal)})
	}, "choose keeper")
	task = coro.Bind(wait, func(v interface{}) coro.Task {
		cmd := v.(*proto.ActionCommand)
		name, _ := cmd.String("keeper")
		q := findPlayer(legal, name)
		if q == nil {
			p.complain("'choose keeper' requires 'keeper' from the legal list")
			return task
		}
		return coro.Pure(q)
	})
	return task
}

func (p *remotePlayer) ChooseBatsman(legal []*cricket.Player) coro.Task {
	var task coro.Task
	wait := p.awaitAction(func() {
		p.prompt(&proto.ActionEvent{Action: "next bat", Legal: playerNames(legal)})
	}, "next bat")
	task = coro.Bind(wait, func(v interface{}) coro.Task {
		cmd := v.(*proto.ActionCommand)
		name, _ := cmd.String("batsman")
		q := findPlayer(legal, name)
		if q == nil {
			p.complain("'next bat' requires 'batsman' from the legal list")
			return task
		}
		return coro.Pure(q)
	})
	return task
}

func playerNames(ps []*cricket.Player) []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return names
}

func findPlayer(ps []*cricket.Player, name string) *cricket.Player {
	for _, p := range ps {
		if p.Name == name {
			return p
		}
	}
	return nil
}
