package backend

import (
	"fmt"

	"github.com/ec429/howzat/coro"
	"github.com/ec429/howzat/cricket"
	"github.com/ec429/howzat/proto"
	"github.com/ec429/howzat/proto/snowflake"
)

// A Game is a room bound to a match in progress. Each captain's decisions
// come from a remotePlayer keyed by session name; the rest of each side is
// filled out with local players.
type Game struct {
	*Room
	ID     snowflake.Snowflake
	server *Server

	remotes map[string]*remotePlayer
	match   *cricket.Match
}

// newGame forms a game room around the two captains, fills out their teams,
// and starts the match task. Both captains must already be out of the lobby.
func (s *Server) newGame(a, b *client) *Game {
	id, err := snowflake.New()
	if err != nil {
		Logger(s.bctx).Printf("error: game id: %s", err)
	}
	g := &Game{
		Room:    newRoom("game:" + id.String()),
		ID:      id,
		server:  s,
		remotes: map[string]*remotePlayer{},
	}

	captains := []*client{a, b}
	teams := make([]*cricket.Team, 2)
	for i, captain := range captains {
		g.enter(captain)
		rp := &remotePlayer{server: s, game: g, name: captain.name}
		g.remotes[captain.name] = rp

		players := make([]*cricket.Player, 11)
		players[0] = &cricket.Player{Name: captain.player, Chooser: rp}
		for j := 1; j < 11; j++ {
			players[j] = cricket.NewLocalPlayer(fmt.Sprintf("%s%d", captain.name, j+1), g)
		}
		team, err := cricket.NewTeam(captain.name, players)
		if err != nil {
			Logger(s.bctx).Printf("error: team %s: %s", captain.name, err)
		}
		teams[i] = team
	}

	for _, captain := range captains {
		for _, d := range captains {
			d.send(proto.JoinType, &proto.JoinEvent{
				From:   captain.name,
				Player: captain.player,
				Team:   captain.name,
			})
		}
	}

	g.match = cricket.NewMatch(teams[0], teams[1], g)
	s.games[id] = g
	gamesStarted.Inc()
	gamesActive.Set(float64(len(s.games)))

	if err := s.reactor.Start(g.match.Play(), func(interface{}) { s.finishGame(g) }); err != nil {
		Logger(s.bctx).Printf("error: start match %s: %s", id, err)
		s.finishGame(g)
	}
	return g
}

// Printf makes a Game its own match commentary: every line is walled to the
// game room and logged.
func (g *Game) Printf(format string, args ...interface{}) {
	Logger(g.server.bctx).Printf("[%s] %s", g.ID, fmt.Sprintf(format, args...))
	g.wall("howzat", fmt.Sprintf(format, args...))
}

// finishGame returns the occupants to the lobby and releases the game's
// decision tokens.
func (s *Server) finishGame(g *Game) {
	for name := range g.remotes {
		s.reactor.Cancel(coro.Token(name))
	}
	for _, c := range g.occupants {
		g.exit(c)
		s.lobby.enter(c)
	}
	delete(s.games, g.ID)
	gamesActive.Set(float64(len(s.games)))
	waitsPending.Set(float64(s.reactor.Pending()))
}

// gameFor finds the game, if any, holding a decision binding for name.
func (s *Server) gameFor(name string) *Game {
	for _, g := range s.games {
		if _, ok := g.remotes[name]; ok {
			return g
		}
	}
	return nil
}
