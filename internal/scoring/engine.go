// Package scoring implements the surrender index formula: a deterministic
// score rating how unfavorable the game situation was for a punting
// decision. Higher means more cowardly.
package scoring

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/puntwatch/puntwatch/internal/model"
)

// TerritoryFunc decides whether a play starts in opposing territory.
// Exactly one rule is canonical; see OpposingByYardsToEndzone.
type TerritoryFunc func(play model.Play) bool

// OpposingByYardsToEndzone is the canonical territory rule: a team whose
// line of scrimmage is fewer than 50 yards from the opposing endzone has
// crossed midfield.
func OpposingByYardsToEndzone(play model.Play) bool {
	return play.YardsToEndzone < 50
}

// Breakdown holds the four multiplicative factors of an index.
type Breakdown struct {
	FieldPosition float64 `json:"field_position"`
	YardsToGo     float64 `json:"yards_to_go"`
	Score         float64 `json:"score"`
	Clock         float64 `json:"clock"`
	Index         float64 `json:"index"`
}

// Engine computes surrender indices. It is pure and deterministic; the
// only side effect is debug logging on malformed input.
type Engine struct {
	opposing TerritoryFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithTerritoryFunc overrides the territory rule.
func WithTerritoryFunc(fn TerritoryFunc) Option {
	return func(e *Engine) {
		if fn != nil {
			e.opposing = fn
		}
	}
}

// NewEngine creates an Engine using the canonical territory rule.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{opposing: OpposingByYardsToEndzone}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Index computes the surrender index for a punt play. The previous play
// supplies the pre-punt score; the game summary resolves the possessing
// team. Malformed input degrades to 0, it never aborts the caller.
func (e *Engine) Index(play, prev model.Play, game *model.GameSummary) float64 {
	return e.Explain(play, prev, game).Index
}

// Explain computes the index along with its factor breakdown.
func (e *Engine) Explain(play, prev model.Play, game *model.GameSummary) Breakdown {
	b := Breakdown{
		FieldPosition: e.fieldPositionScore(play),
		YardsToGo:     yardsToGoMultiplier(play.Distance),
	}

	diff, ok := scoreDiff(prev, game)
	if !ok {
		zap.L().Debug("scoring: possessing team not in boxscore, degrading to 0",
			zap.String("team_id", prev.PossessingTeamID),
		)
		return b
	}
	b.Score = scoreMultiplier(diff)
	b.Clock = clockMultiplier(play, diff, game.Postseason)
	b.Index = b.FieldPosition * b.YardsToGo * b.Score * b.Clock
	return b
}

// fieldPositionScore grows exponentially the deeper into friendly or
// opposing territory the punt came from. Parse failures are defined as 0.
func (e *Engine) fieldPositionScore(play model.Play) float64 {
	if play.YardLine == 50 {
		return math.Pow(1.1, 10)
	}
	yrdln, err := yardlineFromPossession(play.PossessionText)
	if err != nil {
		zap.L().Debug("scoring: unparseable field position",
			zap.String("possession_text", play.PossessionText),
			zap.Error(err),
		)
		return 0
	}
	if e.opposing(play) {
		return math.Pow(1.2, float64(50-yrdln)) * math.Pow(1.1, 10)
	}
	return math.Max(1, math.Pow(1.1, float64(yrdln-40)))
}

// yardlineFromPossession extracts the yard line from possession text like
// "NYJ 24".
func yardlineFromPossession(text string) (int, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return 0, errMalformedPossession(text)
	}
	return strconv.Atoi(fields[1])
}

type errMalformedPossession string

func (e errMalformedPossession) Error() string {
	return "malformed possession text " + strconv.Quote(string(e))
}

func yardsToGoMultiplier(distance int) float64 {
	switch {
	case distance >= 10:
		return 0.2
	case distance >= 7:
		return 0.4
	case distance >= 4:
		return 0.6
	case distance >= 2:
		return 0.8
	default:
		return 1.0
	}
}

// scoreDiff computes the possessing team's score differential from the
// previous play, so the punt's own resulting score never contaminates it.
func scoreDiff(prev model.Play, game *model.GameSummary) (int, bool) {
	team, ok := game.TeamByID(prev.PossessingTeamID)
	if !ok {
		return 0, false
	}
	if team.ID == game.Home.ID {
		return prev.HomeScore - prev.AwayScore, true
	}
	return prev.AwayScore - prev.HomeScore, true
}

func scoreMultiplier(diff int) float64 {
	switch {
	case diff > 0:
		return 1.0
	case diff == 0:
		return 2.0
	case diff < -8:
		return 3.0
	default:
		return 4.0
	}
}

// clockMultiplier punishes late-game punts while not winning. It is 1
// before halftime or while ahead, and grows cubically with seconds elapsed
// since halftime otherwise.
func clockMultiplier(play model.Play, diff int, postseason bool) float64 {
	if diff > 0 || play.Period <= 2 {
		return 1.0
	}
	since, err := secondsSinceHalftime(play, postseason)
	if err != nil {
		zap.L().Debug("scoring: unparseable clock, using neutral multiplier",
			zap.String("clock", play.Clock),
			zap.Error(err),
		)
		return 1.0
	}
	return math.Pow(float64(since)*0.001, 3) + 1
}

func secondsSinceHalftime(play model.Play, postseason bool) (int, error) {
	remaining, err := clockSeconds(play.Clock)
	if err != nil {
		return 0, err
	}
	// Regular season games have a single 10-minute overtime.
	periodLen := 15 * 60
	if !postseason && play.Period == 5 {
		periodLen = 10 * 60
	}
	elapsed := periodLen - remaining
	since := elapsed + 15*60*(play.Period-3)
	if since < 0 {
		since = 0
	}
	return since, nil
}

// clockSeconds parses a remaining-clock display like "4:31".
func clockSeconds(display string) (int, error) {
	mins, secs, ok := strings.Cut(display, ":")
	if !ok {
		return 0, errMalformedClock(display)
	}
	m, err := strconv.Atoi(strings.TrimSpace(mins))
	if err != nil {
		return 0, errMalformedClock(display)
	}
	s, err := strconv.Atoi(strings.TrimSpace(secs))
	if err != nil {
		return 0, errMalformedClock(display)
	}
	return m*60 + s, nil
}

type errMalformedClock string

func (e errMalformedClock) Error() string {
	return "malformed clock display " + strconv.Quote(string(e))
}
