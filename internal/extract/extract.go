// Package extract identifies punt plays in drive histories and pairs each
// with its context play.
package extract

import (
	"strings"

	"github.com/puntwatch/puntwatch/internal/model"
)

// Candidate is a punt play paired with the play immediately before it.
// ScoringPlay is the play the index should be computed from: normally the
// punt itself, but with the context play's pre-snap situation when a
// delay-of-game penalty moved the ball first.
type Candidate struct {
	Punt        model.Play
	Context     model.Play
	ScoringPlay model.Play
	DelayOfGame bool
}

// IsPunt reports whether a drive's result category is a punt.
func IsPunt(drive model.Drive) bool {
	return strings.Contains(strings.ToLower(drive.Result), "punt")
}

// PuntCandidate extracts the punt candidate from a drive, if any. A drive
// qualifies only when it is a punt result with at least two plays. The
// punt is the last play whose type text mentions a punt; when none match,
// the drive's final two plays are used.
func PuntCandidate(drive model.Drive) (Candidate, bool) {
	if !IsPunt(drive) || len(drive.Plays) < 2 {
		return Candidate{}, false
	}

	var punt, context model.Play
	found := false
	for i, play := range drive.Plays {
		if i == 0 {
			continue
		}
		if strings.Contains(strings.ToLower(play.TypeText), "punt") {
			punt = play
			context = drive.Plays[i-1]
			found = true
		}
	}
	if !found {
		punt = drive.Plays[len(drive.Plays)-1]
		context = drive.Plays[len(drive.Plays)-2]
	}

	c := Candidate{
		Punt:        punt,
		Context:     context,
		ScoringPlay: punt,
		DelayOfGame: isDelayOfGame(punt, context),
	}
	if c.DelayOfGame {
		c.ScoringPlay = withStartOf(punt, context)
	}
	return c, true
}

// isDelayOfGame detects a (likely intentional) delay-of-game penalty:
// the context play mentions one and the distance to go strictly grew.
func isDelayOfGame(punt, context model.Play) bool {
	return strings.Contains(strings.ToLower(context.Text), "delay of game") &&
		punt.Distance-context.Distance > 0
}

// withStartOf returns the punt play with its pre-snap situation replaced
// by the context play's, so scoring sees the pre-penalty spot.
func withStartOf(punt, context model.Play) model.Play {
	adjusted := punt
	adjusted.Down = context.Down
	adjusted.Distance = context.Distance
	adjusted.YardLine = context.YardLine
	adjusted.YardsToEndzone = context.YardsToEndzone
	adjusted.PossessionText = context.PossessionText
	adjusted.DownDistanceText = context.DownDistanceText
	adjusted.PossessingTeamID = context.PossessingTeamID
	return adjusted
}
