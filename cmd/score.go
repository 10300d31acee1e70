package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/puntwatch/puntwatch/internal/model"
	"github.com/puntwatch/puntwatch/internal/scoring"
)

var scoreFlags struct {
	possession     string
	yardsToEndzone int
	distance       int
	clock          string
	period         int
	ownScore       int
	oppScore       int
	postseason     bool
	explain        bool
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute the Surrender Index for one hypothetical punt",
	Example: `  puntwatch score --possession "NYJ 24" --yards-to-endzone 76 --distance 8 --clock 4:30 --period 4 --own-score 14 --opp-score 28`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// A synthetic two-team game with the punting team on the away side.
		summary := &model.GameSummary{
			Home:       model.Team{ID: "opp", Abbreviation: "OPP"},
			Away:       model.Team{ID: "own", Abbreviation: "OWN"},
			Postseason: scoreFlags.postseason,
		}
		play := model.Play{
			Distance:         scoreFlags.distance,
			YardsToEndzone:   scoreFlags.yardsToEndzone,
			PossessionText:   scoreFlags.possession,
			Clock:            scoreFlags.clock,
			Period:           scoreFlags.period,
			PossessingTeamID: "own",
		}
		prev := model.Play{
			HomeScore:        scoreFlags.oppScore,
			AwayScore:        scoreFlags.ownScore,
			PossessingTeamID: "own",
		}

		engine := scoring.NewEngine()
		if scoreFlags.explain {
			b := engine.Explain(play, prev, summary)
			fmt.Printf("field position: %.4f\n", b.FieldPosition)
			fmt.Printf("yards to go:    %.4f\n", b.YardsToGo)
			fmt.Printf("score:          %.4f\n", b.Score)
			fmt.Printf("clock:          %.4f\n", b.Clock)
			fmt.Printf("index:          %.2f\n", b.Index)
			return nil
		}

		index := engine.Index(play, prev, summary)
		fmt.Printf("Surrender Index: %.2f\n", index)
		return nil
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreFlags.possession, "possession", "", `field position, e.g. "NYJ 24"`)
	scoreCmd.Flags().IntVar(&scoreFlags.yardsToEndzone, "yards-to-endzone", 0, "yards from the line of scrimmage to the opposing end zone")
	scoreCmd.Flags().IntVar(&scoreFlags.distance, "distance", 10, "yards to go for a first down")
	scoreCmd.Flags().StringVar(&scoreFlags.clock, "clock", "15:00", `game clock, e.g. "4:30"`)
	scoreCmd.Flags().IntVar(&scoreFlags.period, "period", 1, "quarter number (5+ for overtime)")
	scoreCmd.Flags().IntVar(&scoreFlags.ownScore, "own-score", 0, "punting team's score before the punt")
	scoreCmd.Flags().IntVar(&scoreFlags.oppScore, "opp-score", 0, "opponent's score before the punt")
	scoreCmd.Flags().BoolVar(&scoreFlags.postseason, "postseason", false, "use postseason overtime rules")
	scoreCmd.Flags().BoolVar(&scoreFlags.explain, "explain", false, "print the multiplier breakdown")
	_ = scoreCmd.MarkFlagRequired("possession")
	_ = scoreCmd.MarkFlagRequired("yards-to-endzone")
	rootCmd.AddCommand(scoreCmd)
}
