// Package compose renders surrender scores and their percentile ranks
// into the posted notification text.
package compose

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/puntwatch/puntwatch/internal/model"
)

// Labels names the two populations in the rendered text.
type Labels struct {
	// Season describes the current-season population, e.g. "the 2025 season".
	Season string
	// Historical describes the baseline population, e.g. "all punts since 1999".
	Historical string
}

// Notification renders the main notification text for a scored punt. The
// asterisk marks field-position and down-distance values that were
// adjusted for a delay-of-game penalty.
func Notification(play, prev model.Play, game *model.GameSummary, score float64, pct model.PercentileResult, delayOfGame bool, labels Labels) string {
	team := possessingAbbreviation(play, game)
	asterisk := ""
	if delayOfGame {
		asterisk = "*"
	}

	situation := fmt.Sprintf("%s decided to punt to %s from the %s%s on %s%s with %s remaining in %s while %s.",
		team,
		game.Opponent(team),
		play.PossessionText, asterisk,
		play.DownDistanceText, asterisk,
		play.Clock,
		QuarterString(play.Period),
		scoreString(prev, game),
	)

	ranking := fmt.Sprintf("With a Surrender Index of %.2f, this punt ranks at the %s percentile of cowardly punts of %s, and the %s percentile of %s.",
		score,
		PercentileString(pct.CurrentSeason),
		labels.Season,
		PercentileString(pct.Historical),
		labels.Historical,
	)

	return situation + "\n\n" + ranking
}

// DelayOfGame renders the informational follow-up for a delay-of-game
// adjusted punt: the pre- and post-penalty situations and the index the
// punt would have earned without the adjustment.
func DelayOfGame(play, prev model.Play, game *model.GameSummary, unadjusted float64, unadjustedPct model.PercentileResult, labels Labels) string {
	return fmt.Sprintf("*%s committed a (likely intentional) delay of game penalty, moving the play from %s at the %s to %s at the %s.\n\n"+
		"If this penalty was in fact unintentional, the Surrender Index would be %.2f, ranking at the %s percentile of %s.",
		possessingAbbreviation(play, game),
		prev.DownDistanceText, prev.PossessionText,
		play.DownDistanceText, play.PossessionText,
		unadjusted,
		PercentileString(unadjustedPct.CurrentSeason),
		labels.Season,
	)
}

// QuarterString names a period: "the 1st" through "the 4th", then
// overtime labels.
func QuarterString(period int) string {
	switch {
	case period <= 4:
		return "the " + strconv.Itoa(period) + ordinalSuffix(float64(period))
	case period == 5:
		return "OT"
	case period == 6:
		return "2 OT"
	case period == 7:
		return "3 OT"
	default:
		return ""
	}
}

// PercentileString renders a percentile with an ordinal suffix. Values in
// the 99th percentile keep extra precision, the long tail is where the
// ranking is interesting.
func PercentileString(pct float64) string {
	rounded := int(pct)
	if rounded%100 == 11 || rounded%100 == 12 || rounded%100 == 13 {
		return strconv.Itoa(rounded) + "th"
	}

	if rounded == 99 {
		switch {
		case pct < 99.9:
			v := roundTo(pct, 1)
			return decimalString(v) + ordinalSuffix(v)
		case pct < 99.99:
			v := roundTo(pct, 2)
			return decimalString(v) + ordinalSuffix(v)
		default:
			// Round down so a 99.999 never reads as the impossible 100th.
			v := math.Floor(pct*1000) / 1000
			return decimalString(v) + ordinalSuffix(v)
		}
	}

	return strconv.Itoa(rounded) + ordinalSuffix(float64(rounded))
}

// ordinalSuffix picks st/nd/rd/th from the final digit.
func ordinalSuffix(num float64) string {
	s := trimFloat(num)
	switch s[len(s)-1] {
	case '1':
		return "st"
	case '2':
		return "nd"
	case '3':
		return "rd"
	default:
		return "th"
	}
}

func scoreString(prev model.Play, game *model.GameSummary) string {
	if possessingAbbreviation(prev, game) == game.Home.Abbreviation {
		return prettyScore(prev.HomeScore, prev.AwayScore)
	}
	return prettyScore(prev.AwayScore, prev.HomeScore)
}

func prettyScore(own, other int) string {
	var verb string
	switch {
	case own > other:
		verb = "winning"
	case other > own:
		verb = "losing"
	default:
		verb = "tied"
	}
	return fmt.Sprintf("%s %d to %d", verb, own, other)
}

func possessingAbbreviation(play model.Play, game *model.GameSummary) string {
	if team, ok := game.TeamByID(play.PossessingTeamID); ok {
		return team.Abbreviation
	}
	return ""
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// decimalString keeps at least one decimal place so a whole-number value
// in the 99th-percentile tail still reads as "99.0th".
func decimalString(v float64) string {
	s := trimFloat(v)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
