package model

import "time"

// GameState represents the lifecycle state of a tracked game.
type GameState string

const (
	GameScheduled GameState = "scheduled"
	GameActive    GameState = "active"
	GameFinal     GameState = "final"
)

// Game is a single tracked game for the current week. The Summary snapshot
// is replaced wholesale on every refresh, never merged.
type Game struct {
	ID      string       `json:"id"`
	Kickoff time.Time    `json:"kickoff"`
	State   GameState    `json:"state"`
	Summary *GameSummary `json:"summary,omitempty"`
}

// ActiveWindow reports whether the game is inside its live polling window:
// from exactly 15 minutes before kickoff until 6 hours after.
func (g *Game) ActiveWindow(now time.Time) bool {
	open := g.Kickoff.Add(-15 * time.Minute)
	until := g.Kickoff.Add(6 * time.Hour)
	return !now.Before(open) && now.Before(until)
}

// Team identifies one of the two teams in a game.
type Team struct {
	ID           string `json:"id"`
	Abbreviation string `json:"abbreviation"`
	DisplayName  string `json:"display_name"`
}

// GameSummary is the per-game detail snapshot: boxscore teams, status,
// and the drive history. Immutable once fetched.
type GameSummary struct {
	Home       Team    `json:"home"`
	Away       Team    `json:"away"`
	Postseason bool    `json:"postseason"`
	Final      bool    `json:"final"`
	Drives     []Drive `json:"drives"`
}

// TeamByID resolves a team identity from either side of the boxscore.
func (s *GameSummary) TeamByID(id string) (Team, bool) {
	switch id {
	case s.Home.ID:
		return s.Home, true
	case s.Away.ID:
		return s.Away, true
	}
	return Team{}, false
}

// Opponent returns the other team's abbreviation.
func (s *GameSummary) Opponent(abbreviation string) string {
	if s.Home.Abbreviation == abbreviation {
		return s.Away.Abbreviation
	}
	return s.Home.Abbreviation
}

// Drive is a contiguous possession: ordered plays plus a result category
// ("Punt", "Touchdown", ...). Embedded in a GameSummary snapshot.
type Drive struct {
	ID     string `json:"id"`
	Result string `json:"result"`
	Plays  []Play `json:"plays"`
}

// Play is a read-only play value extracted from a drive. Field position is
// carried both as an absolute yard line and as the human-readable
// possession text ("NYJ 24"), because the scoring formula consumes both.
type Play struct {
	Down             int    `json:"down"`
	Distance         int    `json:"distance"`
	YardLine         int    `json:"yard_line"`
	YardsToEndzone   int    `json:"yards_to_endzone"`
	PossessionText   string `json:"possession_text"`
	DownDistanceText string `json:"down_distance_text"`
	Clock            string `json:"clock"`
	Period           int    `json:"period"`
	HomeScore        int    `json:"home_score"`
	AwayScore        int    `json:"away_score"`
	PossessingTeamID string `json:"possessing_team_id"`
	TypeText         string `json:"type_text"`
	Text             string `json:"text"`
}
