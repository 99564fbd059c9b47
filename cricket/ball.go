// Package cricket implements the howzat dice-cricket rules engine. All
// randomness and every captain's decision comes from a Chooser, so a match
// can be driven by local dice or suspended mid-ball awaiting a remote
// participant.
package cricket

import "fmt"

// Extra outcomes of the bowler's second roll after a 1.
type Extra int

const (
	NoExtra Extra = iota
	NoBall
	Wide
	Bye
	LegBye
)

// extraFromRoll maps the extra die to an Extra; 5 and 6 mean no extra.
func extraFromRoll(r int) Extra {
	if r >= 5 {
		return NoExtra
	}
	return Extra(r)
}

// A Wicket records how a batsman got out, and by whom where relevant.
type Wicket struct {
	How             string
	Who             *Player
	CaughtAndBowled bool
}

func (w *Wicket) String() string {
	if w.How == "caught" && w.CaughtAndBowled {
		return "caught & bowled"
	}
	if w.Who != nil {
		return fmt.Sprintf("%s %s", w.How, w.Who.Name)
	}
	return w.How
}

// A Ball is one delivery and its outcome.
type Ball struct {
	Bowler  *Player
	Batsman *Player
	Runs    int
	Wicket  *Wicket
	NoBall  bool
	Wide    bool
	Bye     bool
	LegBye  bool

	TotalRuns int // added to the innings total
	BatRuns   int // credited to the batsman
	BowlRuns  int // charged to the bowler
}

func newBall(bowler, batsman *Player, runs int, wicket *Wicket, extra Extra) *Ball {
	b := &Ball{
		Bowler:  bowler,
		Batsman: batsman,
		Runs:    runs,
		Wicket:  wicket,
		NoBall:  extra == NoBall,
		Wide:    extra == Wide,
		Bye:     extra == Bye,
		LegBye:  extra == LegBye,
	}
	// No sixes off byes or leg byes; dot ball instead.
	if (b.Bye || b.LegBye) && b.Runs == 6 {
		b.Runs = 0
	}
	if b.Runs == 0 {
		b.Bye = false
		b.LegBye = false
	}
	b.TotalRuns = b.Runs
	if b.NoBall {
		b.TotalRuns++
	}
	if b.Wide {
		b.TotalRuns++
	}
	if b.Bye || b.LegBye {
		b.BatRuns = 0
		b.BowlRuns = 0
	} else {
		b.BatRuns = b.Runs
		b.BowlRuns = b.TotalRuns
	}
	return b
}

// DieFace renders a d6 roll as its die-face glyph.
func DieFace(r int) rune { return rune(0x267f + r) }

func circledDigit(n int) rune { return rune(0x245f + n) }

func (b *Ball) String() string {
	if b.Wicket != nil {
		if b.Wicket.How == "run out" {
			return ">> run  out"
		}
		return fmt.Sprintf(">> %s  %s", b.Wicket, b.Bowler.Name)
	}
	if b.NoBall {
		if b.Runs > 0 {
			return string(circledDigit(b.Runs))
		}
		return "○"
	}
	if b.Wide {
		return "+"
	}
	if b.Runs > 0 {
		if b.Bye {
			return fmt.Sprintf("△%d", b.Runs)
		}
		if b.LegBye {
			return fmt.Sprintf("▽%d", b.Runs)
		}
		return fmt.Sprintf("%d", b.Runs)
	}
	return "."
}

// BatString renders the ball for the batsman's scorecard line.
func (b *Ball) BatString() string {
	if b.Wicket != nil {
		if b.Wicket.How == "run out" {
			return "» run  out"
		}
		return fmt.Sprintf("» %s  %s", b.Wicket, b.Bowler.Name)
	}
	if b.Wide {
		return ""
	}
	if b.Bye || b.LegBye {
		return "."
	}
	if b.Runs > 0 {
		return fmt.Sprintf("%d", b.Runs)
	}
	if b.NoBall {
		return ""
	}
	return "."
}

// BowlString renders the ball for the bowler's analysis.
func (b *Ball) BowlString() string {
	if b.Wicket != nil {
		if b.Wicket.How == "run out" {
			return "."
		}
		return "W"
	}
	if b.NoBall {
		if b.Runs > 0 {
			return string(circledDigit(b.Runs))
		}
		return "○"
	}
	if b.Wide {
		return "+"
	}
	if b.Bye {
		return "△"
	}
	if b.LegBye {
		return "▽"
	}
	if b.Runs > 0 {
		return fmt.Sprintf("%d", b.Runs)
	}
	return "."
}
