package cricket

import (
	"fmt"
	"strings"

	"github.com/ec429/howzat/coro"
)

// An Over is up to six legal deliveries by one bowler.
type Over struct {
	Bowler  *Player
	Balls   []*Ball
	NoBalls int
	Wides   int
	Runs    int
	Wickets int
	ToCome  int
}

func newOverFor(bowler *Player) *Over {
	o := &Over{Bowler: bowler, ToCome: 6}
	bowler.Bowling = append(bowler.Bowling, o)
	return o
}

func (o *Over) deliver(ball *Ball) {
	o.Balls = append(o.Balls, ball)
	switch {
	case ball.NoBall:
		o.NoBalls++
	case ball.Wide:
		o.Wides++
	default:
		o.ToCome--
	}
	if ball.Wicket != nil && ball.Wicket.How != "run out" {
		o.Wickets++
	}
	o.Runs += ball.BowlRuns
}

func (o *Over) frac(partial bool) string {
	if o.ToCome == 0 && !partial {
		return ""
	}
	return fmt.Sprintf(".%d", 6-o.ToCome)
}

// Desc renders the over count as "n" or "n.b" for an incomplete over.
func (o *Over) Desc(onum int, partial bool) string {
	return fmt.Sprintf("%d%s", onum, o.frac(partial))
}

// A FallOfWicket records who fell, at what total, after how many overs.
type FallOfWicket struct {
	Batsman *Player
	Total   int
	Overs   string
}

// An Innings tracks one side's turn at the crease. Chasing is the total to
// beat, or -1 when setting the pace.
type Innings struct {
	Batting  *Team
	Fielding *Team
	Chasing  int
	MaxOvers int

	Remaining  []*Player // yet to bat
	Striker    *Player
	NonStriker *Player
	Resting    *Player
	Bowling    *Player

	Total   int
	Byes    int
	LegByes int
	Overs   []*Over
	FOW     []FallOfWicket
	InPlay  bool

	comment Commentary
}

func NewInnings(batting, fielding *Team, chasing, maxOvers int, commentary Commentary) *Innings {
	if commentary == nil {
		commentary = NullCommentary
	}
	inns := &Innings{
		Batting:  batting,
		Fielding: fielding,
		Chasing:  chasing,
		MaxOvers: maxOvers,
		InPlay:   true,
		comment:  commentary,
	}
	for _, p := range fielding.Players {
		p.Keeper = false
	}
	fielding.Field[6].Keeper = true
	inns.Remaining = append([]*Player{}, batting.Order...)
	inns.NonStriker = inns.Remaining[0]
	inns.Striker = inns.Remaining[1]
	inns.Remaining = inns.Remaining[2:]
	inns.Resting = fielding.Field[0]
	inns.Bowling = fielding.Field[1]
	inns.newOver(nil)
	return inns
}

func (inns *Innings) swapStrike() {
	inns.Striker, inns.NonStriker = inns.NonStriker, inns.Striker
}

// newOver starts a fresh over. A nil bowler swaps in whoever rested the
// last over.
func (inns *Innings) newOver(bowler *Player) {
	if bowler == nil {
		inns.Bowling, inns.Resting = inns.Resting, inns.Bowling
	} else {
		inns.Resting = inns.Bowling
		inns.Bowling = bowler
	}
	inns.swapStrike()
	inns.Overs = append(inns.Overs, newOverFor(inns.Bowling))
	inns.comment.Printf("Over %d; %s to %s", len(inns.Overs), inns.Bowling.Name, inns.Striker.Name)
}

// Over is the over currently in progress.
func (inns *Innings) Over() *Over { return inns.Overs[len(inns.Overs)-1] }

// ODesc renders the current over count, e.g. "12.4".
func (inns *Innings) ODesc() string {
	return inns.Over().Desc(len(inns.Overs), false)
}

// LegalBowlers is everyone on the fielding side except the bowler of the
// over just finished. The keeper stays listed; interactive captains are told
// to change keeper first if they pick them.
func (inns *Innings) LegalBowlers() []*Player {
	legal := []*Player{}
	for _, p := range inns.Fielding.Field {
		if p != inns.Bowling {
			legal = append(legal, p)
		}
	}
	return legal
}

// Keeper is the current wicketkeeper.
func (inns *Innings) Keeper() *Player { return inns.Fielding.Field[6] }

// ChooseKeeper swaps p into the keeper's fielding position.
func (inns *Innings) ChooseKeeper(p *Player) {
	field := inns.Fielding.Field
	for i, q := range field {
		if q == p {
			field[6].Keeper = false
			field[i], field[6] = field[6], field[i]
			p.Keeper = true
			inns.comment.Printf("%s takes the gloves", p.Name)
			return
		}
	}
}

// Play bowls until the innings closes.
func (inns *Innings) Play() coro.Task {
	return coro.Bind(inns.bowlOne(), func(interface{}) coro.Task {
		if inns.InPlay {
			return inns.Play()
		}
		return coro.Pure(nil)
	})
}

func (inns *Innings) bowlOne() coro.Task {
	return coro.Bind(inns.maybeNewOver(), func(interface{}) coro.Task {
		return coro.Bind(inns.rollBall(), func(v interface{}) coro.Task {
			return inns.deliver(v.(*Ball))
		})
	})
}

func (inns *Innings) maybeNewOver() coro.Task {
	if inns.Over().ToCome > 0 {
		return coro.Pure(nil)
	}
	captain := inns.Fielding.Captain()
	return coro.Bind(captain.Chooser.ChooseBowler(inns, inns.LegalBowlers()), func(v interface{}) coro.Task {
		inns.newOver(v.(*Player))
		return coro.Pure(nil)
	})
}

func (inns *Innings) rollBall() coro.Task {
	bowler, striker := inns.Bowling, inns.Striker
	return coro.Bind(bowler.Chooser.RollD6("bowl"), func(v interface{}) coro.Task {
		bowl := v.(int)
		if bowl == 1 {
			// Possible extra; roll again.
			return coro.Bind(bowler.Chooser.RollD6("extra"), func(v interface{}) coro.Task {
				extra := extraFromRoll(v.(int))
				if extra == Wide {
					// Batsman does not roll against a wide.
					return coro.Pure(newBall(bowler, striker, 0, nil, Wide))
				}
				return inns.batRoll(bowler, striker, bowl, extra)
			})
		}
		return inns.batRoll(bowler, striker, bowl, NoExtra)
	})
}

func (inns *Innings) batRoll(bowler, striker *Player, bowl int, extra Extra) coro.Task {
	return coro.Bind(striker.Chooser.RollD6("bat"), func(v interface{}) coro.Task {
		switch bat := v.(int); bat {
		case 5:
			return coro.Bind(inns.rollWicket(bowler, striker, bowl), func(v interface{}) coro.Task {
				return coro.Pure(newBall(bowler, striker, 0, v.(*Wicket), extra))
			})
		case 3:
			return coro.Pure(newBall(bowler, striker, 0, nil, extra))
		default:
			return coro.Pure(newBall(bowler, striker, bat, nil, extra))
		}
	})
}

// rollWicket resolves a potential dismissal from the bowler's roll: not out,
// bowled, caught, stumped, lbw, run out. Completes with a *Wicket, nil if
// the batsman survives.
func (inns *Innings) rollWicket(bowler, striker *Player, bowl int) coro.Task {
	inns.comment.Printf("Howzat?")
	switch bowl {
	case 2:
		return coro.Pure(&Wicket{How: "bowled"})
	case 3:
		// Batsman rolls 2d6 to decide where it goes; 12 wraps to 1.
		return coro.Bind(striker.Chooser.Roll2D6("hit"), func(v interface{}) coro.Task {
			fielder := inns.Fielding.Field[(v.(int)-1)%11]
			inns.comment.Printf("In the air to %s...", fielder.Name)
			return coro.Bind(fielder.Chooser.RollD6("catch"), func(v interface{}) coro.Task {
				if v.(int) > 2 {
					return coro.Pure(&Wicket{How: "caught", Who: fielder, CaughtAndBowled: fielder == bowler})
				}
				inns.comment.Printf("Dropped it!")
				return coro.Pure((*Wicket)(nil))
			})
		})
	case 4:
		return coro.Pure(&Wicket{How: "stumped", Who: inns.Keeper()})
	case 5:
		return coro.Pure(&Wicket{How: "lbw"})
	case 6:
		return coro.Pure(&Wicket{How: "run out"})
	}
	return coro.Pure((*Wicket)(nil))
}

func (inns *Innings) deliver(ball *Ball) coro.Task {
	inns.Over().deliver(ball)
	ball.Batsman.Faced = append(ball.Batsman.Faced, ball)
	switch {
	case ball.NoBall:
		inns.comment.Printf("No-Ball called")
	case ball.Wide:
		inns.comment.Printf("Wide ball")
	case ball.Bye:
		inns.comment.Printf("Byes taken")
	case ball.LegBye:
		inns.comment.Printf("Leg Byes taken")
	}
	inns.comment.Printf("%s %s", ball.Batsman.Name, ball)

	next := coro.Pure(nil)
	if ball.Wicket != nil {
		ball.Batsman.Out = ball
		inns.FOW = append(inns.FOW, FallOfWicket{Batsman: ball.Batsman, Total: inns.Total, Overs: inns.ODesc()})
		if len(inns.Remaining) > 0 {
			legal := append([]*Player{}, inns.Remaining...)
			captain := inns.Batting.Captain()
			next = coro.Bind(captain.Chooser.ChooseBatsman(legal), func(v interface{}) coro.Task {
				inns.sendIn(v.(*Player))
				return coro.Pure(nil)
			})
		} else {
			inns.InPlay = false
		}
	} else if ball.Runs%2 == 1 {
		inns.swapStrike()
	}

	return coro.Bind(next, func(interface{}) coro.Task {
		inns.Total += ball.TotalRuns
		if ball.Bye {
			inns.Byes += ball.Runs
		} else if ball.LegBye {
			inns.LegByes += ball.Runs
		}
		if inns.Over().ToCome == 0 && len(inns.Overs) == inns.MaxOvers {
			inns.InPlay = false
		}
		if inns.Chasing >= 0 && inns.Total > inns.Chasing {
			inns.InPlay = false
		}
		return coro.Pure(nil)
	})
}

func (inns *Innings) sendIn(p *Player) {
	for i, q := range inns.Remaining {
		if q == p {
			inns.Remaining = append(inns.Remaining[:i:i], inns.Remaining[i+1:]...)
			inns.Striker = p
			return
		}
	}
	// Not in the remaining order; fall back to the next in.
	inns.Striker = inns.Remaining[0]
	inns.Remaining = inns.Remaining[1:]
}

func (inns *Innings) didNotBat(p *Player) bool {
	for _, q := range inns.Remaining {
		if q == p {
			return true
		}
	}
	return false
}

// BattingSummary walls the scorecard for the batting side.
func (inns *Innings) BattingSummary() {
	if inns.Chasing >= 0 {
		inns.comment.Printf("Chasing %d", inns.Chasing)
	}
	for _, bat := range inns.Batting.Order {
		if inns.didNotBat(bat) {
			inns.comment.Printf("%s  did not bat", bat.Name)
			continue
		}
		line := strings.Builder{}
		for _, b := range bat.Faced {
			line.WriteString(b.BatString())
		}
		notOut := "not  out  "
		if bat.Out != nil {
			notOut = ""
		}
		inns.comment.Printf("%s  %s  %s%d (%d)", bat.Name,
			strings.ReplaceAll(line.String(), "..", ":"), notOut, bat.Score(), len(bat.Faced))
	}
	nb, w := 0, 0
	for _, o := range inns.Overs {
		nb += o.NoBalls
		w += o.Wides
	}
	inns.comment.Printf("Extras: %dnb %dw %db %dlb", nb, w, inns.Byes, inns.LegByes)
	fow := make([]string, len(inns.FOW))
	for i, f := range inns.FOW {
		fow[i] = fmt.Sprintf("%d %s %d (%s)", i+1, f.Batsman.Name, f.Total, f.Overs)
	}
	inns.comment.Printf("FOW: %s", strings.Join(fow, "; "))
	fer := fmt.Sprintf("/%d", len(inns.FOW))
	if len(inns.FOW) == 10 {
		fer = " all out"
	}
	inns.comment.Printf("Total: %d%s (%s ovs)", inns.Total, fer, inns.ODesc())
}

// BowlingSummary walls the analysis for every fielder who bowled.
func (inns *Innings) BowlingSummary() {
	for _, bwl := range inns.Fielding.Field {
		if len(bwl.Bowling) == 0 {
			continue
		}
		last := bwl.Bowling[len(bwl.Bowling)-1]
		exes := []string{}
		if bwl.NoBalls() > 0 {
			exes = append(exes, fmt.Sprintf("%dnb", bwl.NoBalls()))
		}
		if bwl.Wides() > 0 {
			exes = append(exes, fmt.Sprintf("%dw", bwl.Wides()))
		}
		exs := ""
		if len(exes) > 0 {
			exs = fmt.Sprintf(" (%s)", strings.Join(exes, " "))
		}
		analysis := make([]string, len(bwl.Bowling))
		for i, o := range bwl.Bowling {
			line := strings.Builder{}
			for _, b := range o.Balls {
				line.WriteString(b.BowlString())
			}
			analysis[i] = line.String()
		}
		inns.comment.Printf("%s: %s  %so %dm %d/%d%s", bwl.Name,
			strings.Join(analysis, " "), last.Desc(len(bwl.Bowling), false),
			bwl.Maidens(), bwl.Conceded(), bwl.Wkts(), exs)
	}
}
