package cricket

import (
	"fmt"

	"github.com/ec429/howzat/coro"
)

// DefaultOvers caps each innings, Twenty20 style.
const DefaultOvers = 20

// A Match is two limited-overs innings between Home and Away, with the toss
// deciding who bats first. Play completes with the result string.
type Match struct {
	Home *Team
	Away *Team

	First  *Innings
	Second *Innings
	Result string

	overs   int
	comment Commentary
}

func NewMatch(home, away *Team, commentary Commentary) *Match {
	if commentary == nil {
		commentary = NullCommentary
	}
	return &Match{Home: home, Away: away, overs: DefaultOvers, comment: commentary}
}

// toss completes with the team that won it: the away captain calls while
// the home captain flips.
func (m *Match) toss() coro.Task {
	return coro.Bind(m.Away.Captain().Chooser.CallToss(), func(v interface{}) coro.Task {
		tails := v.(bool)
		call := "heads"
		if tails {
			call = "tails"
		}
		m.comment.Printf("%s calls %s", m.Away.Captain().Name, call)
		return coro.Bind(m.Home.Captain().Chooser.FlipCoin("toss"), func(v interface{}) coro.Task {
			winner := m.Home
			if v.(bool) == tails {
				winner = m.Away
			}
			m.comment.Printf("%s won the toss", winner.Name)
			return coro.Pure(winner)
		})
	})
}

func (m *Match) Play() coro.Task {
	return coro.Bind(m.toss(), func(v interface{}) coro.Task {
		winner := v.(*Team)
		loser := m.Home
		if winner == m.Home {
			loser = m.Away
		}
		return coro.Bind(winner.Captain().Chooser.ChooseToBat(), func(v interface{}) coro.Task {
			batFirst, fieldFirst := winner, loser
			if !v.(bool) {
				batFirst, fieldFirst = loser, winner
			}
			m.comment.Printf("%s will bat first", batFirst.Name)
			m.First = NewInnings(batFirst, fieldFirst, -1, m.overs, m.comment)
			return coro.Bind(m.First.Play(), func(interface{}) coro.Task {
				m.First.BattingSummary()
				m.First.BowlingSummary()
				m.Second = NewInnings(fieldFirst, batFirst, m.First.Total, m.overs, m.comment)
				return coro.Bind(m.Second.Play(), func(interface{}) coro.Task {
					m.Second.BattingSummary()
					m.Second.BowlingSummary()
					m.Result = m.result()
					m.comment.Printf("%s", m.Result)
					return coro.Pure(m.Result)
				})
			})
		})
	})
}

func (m *Match) result() string {
	first, second := m.First, m.Second
	switch {
	case first.Total > second.Total:
		return fmt.Sprintf("%s beat %s by %d runs",
			first.Batting.Name, second.Batting.Name, first.Total-second.Total)
	case second.Total > first.Total:
		return fmt.Sprintf("%s beat %s by %d wickets",
			second.Batting.Name, first.Batting.Name, 1+len(second.Remaining))
	default:
		return fmt.Sprintf("%s and %s tied", first.Batting.Name, second.Batting.Name)
	}
}
