package cricket

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/ec429/howzat/coro"
)

// Commentary receives the running description of play.
type Commentary interface {
	Printf(format string, args ...interface{})
}

type nullCommentary struct{}

func (nullCommentary) Printf(string, ...interface{}) {}

// NullCommentary discards all commentary.
var NullCommentary Commentary = nullCommentary{}

// A Chooser supplies one participant's randomness and decisions. Every
// method returns a task so an implementation may suspend awaiting remote
// input; local implementations complete immediately.
type Chooser interface {
	// FlipCoin completes with true for tails.
	FlipCoin(reason string) coro.Task
	// RollD6 completes with an int in 1..6.
	RollD6(reason string) coro.Task
	// Roll2D6 completes with an int in 2..12.
	Roll2D6(reason string) coro.Task
	// CallToss completes with true if the caller calls tails.
	CallToss() coro.Task
	// ChooseToBat completes with true to bat first.
	ChooseToBat() coro.Task
	// ChooseBowler completes with a *Player from legal to bowl the next
	// over. The innings is provided so interactive implementations can
	// offer a keeper change mid-decision.
	ChooseBowler(inns *Innings, legal []*Player) coro.Task
	// ChooseKeeper completes with a *Player from legal to keep wicket.
	ChooseKeeper(legal []*Player) coro.Task
	// ChooseBatsman completes with a *Player from legal to bat next.
	ChooseBatsman(legal []*Player) coro.Task
}

// A Player is one of the eleven on a side, holding innings and bowling
// figures as they accumulate.
type Player struct {
	Name    string
	Chooser Chooser
	Keeper  bool

	Faced   []*Ball // balls faced with the bat
	Bowling []*Over
	Out     *Ball
}

// Score is the player's runs with the bat.
func (p *Player) Score() int {
	total := 0
	for _, b := range p.Faced {
		total += b.BatRuns
	}
	return total
}

// Wkts is the player's wickets taken as bowler.
func (p *Player) Wkts() int {
	total := 0
	for _, o := range p.Bowling {
		total += o.Wickets
	}
	return total
}

// Conceded is the player's runs conceded as bowler.
func (p *Player) Conceded() int {
	total := 0
	for _, o := range p.Bowling {
		total += o.Runs
	}
	return total
}

func (p *Player) Maidens() int {
	total := 0
	for _, o := range p.Bowling {
		if o.Runs == 0 && o.ToCome == 0 {
			total++
		}
	}
	return total
}

func (p *Player) NoBalls() int {
	total := 0
	for _, o := range p.Bowling {
		total += o.NoBalls
	}
	return total
}

func (p *Player) Wides() int {
	total := 0
	for _, o := range p.Bowling {
		total += o.Wides
	}
	return total
}

// A Team is eleven players with a batting order and fielding positions.
// Field position 6 keeps wicket.
type Team struct {
	Name    string
	Players []*Player
	Order   []*Player
	Field   []*Player
}

func NewTeam(name string, players []*Player) (*Team, error) {
	if len(players) != 11 {
		return nil, fmt.Errorf("team %s has %d players, want 11", name, len(players))
	}
	t := &Team{Name: name, Players: players}
	t.Order = append([]*Player{}, players...)
	t.Field = append([]*Player{}, players...)
	return t, nil
}

// Captain is the player whose chooser makes the team's decisions.
func (t *Team) Captain() *Player { return t.Players[0] }

// ShortTeam builds a team of local players named prefix1..prefix11.
func ShortTeam(prefix string, commentary Commentary) *Team {
	players := make([]*Player, 11)
	for i := range players {
		players[i] = NewLocalPlayer(fmt.Sprintf("%s%d", prefix, i+1), commentary)
	}
	t, _ := NewTeam(prefix, players)
	return t
}

// NewLocalPlayer makes a player whose dice and decisions are all local: a
// deterministic per-name RNG for rolls, and default picks for choices.
func NewLocalPlayer(name string, commentary Commentary) *Player {
	p := &Player{Name: name}
	p.Chooser = &LocalChooser{player: p, rng: nameRand(name), commentary: commentary}
	return p
}

func nameRand(name string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(name))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// LocalChooser rolls a seeded RNG and takes the default option for every
// decision: bowl with the rested opener, keep the current keeper, send in
// the next batsman in the order.
type LocalChooser struct {
	player     *Player
	rng        *rand.Rand
	commentary Commentary
}

func (c *LocalChooser) comment() Commentary {
	if c.commentary == nil {
		return NullCommentary
	}
	return c.commentary
}

func (c *LocalChooser) d6() int { return c.rng.Intn(6) + 1 }

func (c *LocalChooser) FlipCoin(reason string) coro.Task {
	tails := c.rng.Intn(2) == 1
	side := "heads"
	if tails {
		side = "tails"
	}
	c.comment().Printf("%s flipped %s", c.player.Name, side)
	return coro.Pure(tails)
}

func (c *LocalChooser) RollD6(reason string) coro.Task {
	r := c.d6()
	c.comment().Printf("%s rolled d6 %c", c.player.Name, DieFace(r))
	return coro.Pure(r)
}

func (c *LocalChooser) Roll2D6(reason string) coro.Task {
	a, b := c.d6(), c.d6()
	c.comment().Printf("%s rolled 2d6 %c%c -> %d", c.player.Name, DieFace(a), DieFace(b), a+b)
	return coro.Pure(a + b)
}

func (c *LocalChooser) CallToss() coro.Task {
	return coro.Pure(c.rng.Intn(2) == 1)
}

func (c *LocalChooser) ChooseToBat() coro.Task {
	return coro.Pure(true)
}

func (c *LocalChooser) ChooseBowler(inns *Innings, legal []*Player) coro.Task {
	// Prefer the rested bowler, preserving the two-opener rotation.
	for _, p := range legal {
		if p == inns.Resting {
			return coro.Pure(p)
		}
	}
	return coro.Pure(legal[0])
}

func (c *LocalChooser) ChooseKeeper(legal []*Player) coro.Task {
	return coro.Pure(legal[0])
}

func (c *LocalChooser) ChooseBatsman(legal []*Player) coro.Task {
	return coro.Pure(legal[0])
}
