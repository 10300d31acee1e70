package provider

import (
	"github.com/rotisserie/eris"

	"github.com/puntwatch/puntwatch/internal/model"
)

// Wire shapes for the subset of the ESPN site API this bot consumes.

type scoreboardPayload struct {
	Events []struct {
		ID   string `json:"id"`
		Date string `json:"date"`
	} `json:"events"`
}

type summaryPayload struct {
	Header struct {
		Season struct {
			Type int `json:"type"`
		} `json:"season"`
		Competitions []struct {
			Status struct {
				Type struct {
					Name string `json:"name"`
				} `json:"type"`
			} `json:"status"`
		} `json:"competitions"`
	} `json:"header"`
	Boxscore struct {
		Teams []struct {
			Team struct {
				ID           string `json:"id"`
				Abbreviation string `json:"abbreviation"`
				DisplayName  string `json:"displayName"`
			} `json:"team"`
		} `json:"teams"`
	} `json:"boxscore"`
	Drives struct {
		Previous []drivePayload `json:"previous"`
	} `json:"drives"`
}

type drivePayload struct {
	ID     string        `json:"id"`
	Result string        `json:"result"`
	Plays  []playPayload `json:"plays"`
}

type playPayload struct {
	Type struct {
		Text string `json:"text"`
	} `json:"type"`
	Text  string           `json:"text"`
	Start situationPayload `json:"start"`
	End   situationPayload `json:"end"`
	Clock struct {
		DisplayValue string `json:"displayValue"`
	} `json:"clock"`
	Period struct {
		Number int `json:"number"`
	} `json:"period"`
	HomeScore int `json:"homeScore"`
	AwayScore int `json:"awayScore"`
}

type situationPayload struct {
	Down             int    `json:"down"`
	Distance         int    `json:"distance"`
	YardLine         int    `json:"yardLine"`
	YardsToEndzone   int    `json:"yardsToEndzone"`
	PossessionText   string `json:"possessionText"`
	DownDistanceText string `json:"downDistanceText"`
	Team             struct {
		ID string `json:"id"`
	} `json:"team"`
}

// statusFinal is the terminal game status name in the summary header.
const statusFinal = "STATUS_FINAL"

// toModel validates the payload and maps it onto the domain snapshot.
// The boxscore lists the away team first and the home team second.
func (p *summaryPayload) toModel() (*model.GameSummary, error) {
	if len(p.Boxscore.Teams) != 2 {
		return nil, eris.Errorf("provider: expected 2 boxscore teams, got %d", len(p.Boxscore.Teams))
	}

	summary := &model.GameSummary{
		Away: model.Team{
			ID:           p.Boxscore.Teams[0].Team.ID,
			Abbreviation: p.Boxscore.Teams[0].Team.Abbreviation,
			DisplayName:  p.Boxscore.Teams[0].Team.DisplayName,
		},
		Home: model.Team{
			ID:           p.Boxscore.Teams[1].Team.ID,
			Abbreviation: p.Boxscore.Teams[1].Team.Abbreviation,
			DisplayName:  p.Boxscore.Teams[1].Team.DisplayName,
		},
		Postseason: p.Header.Season.Type > 2,
	}

	if len(p.Header.Competitions) > 0 {
		summary.Final = p.Header.Competitions[0].Status.Type.Name == statusFinal
	}

	summary.Drives = make([]model.Drive, 0, len(p.Drives.Previous))
	for _, d := range p.Drives.Previous {
		drive := model.Drive{
			ID:     d.ID,
			Result: d.Result,
			Plays:  make([]model.Play, 0, len(d.Plays)),
		}
		for _, pl := range d.Plays {
			drive.Plays = append(drive.Plays, pl.toModel())
		}
		summary.Drives = append(summary.Drives, drive)
	}
	return summary, nil
}

func (p *playPayload) toModel() model.Play {
	// Possession can be missing from the snap situation; the end-of-play
	// situation is the fallback.
	teamID := p.Start.Team.ID
	if teamID == "" {
		teamID = p.End.Team.ID
	}
	return model.Play{
		Down:             p.Start.Down,
		Distance:         p.Start.Distance,
		YardLine:         p.Start.YardLine,
		YardsToEndzone:   p.Start.YardsToEndzone,
		PossessionText:   p.Start.PossessionText,
		DownDistanceText: p.Start.DownDistanceText,
		Clock:            p.Clock.DisplayValue,
		Period:           p.Period.Number,
		HomeScore:        p.HomeScore,
		AwayScore:        p.AwayScore,
		PossessingTeamID: teamID,
		TypeText:         p.Type.Text,
		Text:             p.Text,
	}
}
