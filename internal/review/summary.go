package review

import (
	"sort"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/board"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/classify"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/rating"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/store"
)

func (s *Service) summarize(gameID string, g *board.Game, cs []classify.Classification) store.GameSummary {
	white, black := rating.PerSide(cs, func(ply int) bool { return g.Mover(ply) == board.White })
	tc := g.Tag("TimeControl")
	sum := store.GameSummary{
		GameID:      gameID,
		Result:      g.Tag("Result"),
		TimeControl: tc,
		TotalPlies:  g.TotalPlies(),
		White:       side(g.Tag("White"), white, tc),
		Black:       side(g.Tag("Black"), black, tc),
	}
	// Opening names only apply to games from the initial position.
	if g.Start().FEN() == board.StartFEN {
		if o := s.cfg.Openings.LookupMoves(g.SANs()); o != nil {
			sum.ECO, sum.Opening = o.ECO, o.Name
		}
	}
	return sum
}

func side(player string, cs []classify.Classification, timeControl string) store.SideSummary {
	acc := rating.GameAccuracy(cs)
	return store.SideSummary{
		Player:     player,
		Accuracy:   acc,
		Estimate:   rating.EstimateRating(acc.Accuracy, acc.Blunders, timeControl),
		Weaknesses: rating.Weaknesses(cs),
	}
}

func sortErrors(errs []PlyError) {
	sort.Slice(errs, func(i, j int) bool { return errs[i].Ply < errs[j].Ply })
}
