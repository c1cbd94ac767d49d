package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/shimmering/pkg/logger"
	"github.com/himanishpuri/shimmering/pkg/models"
	"github.com/himanishpuri/shimmering/pkg/shimmering"
)

func newAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add data to the database",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "scores <user> <image>...",
		Short: "Read scores from screenshots and store them",
		Long: `Reads every screenshot with OCR, matches it against the chart catalog
and stores the score for the given user. Screenshots that cannot be matched
are copied to the quarantine directory for manual review.`,
		Example: `  # Add two screenshots for a Discord user
  shimmering add scores 123456789 result.png select.jpg`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, paths := args[0], args[1:]
			a.progress(cmd, "🔍 Reading %d screenshot(s)...", len(paths))

			rep, err := a.svc.AddScores(cmd.Context(), user, paths)
			if rep != nil {
				if perr := a.printer.Ingest(rep); perr != nil {
					return perr
				}
			}
			if err != nil {
				logger.Errorf("AddScores failed: %v", err)
				return fmt.Errorf("failed to add scores: %w", err)
			}

			a.progress(cmd, "✅ Stored %d score(s)", len(rep.Accepted))
			return nil
		},
	})

	return cmd
}

func newListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scores, users or charts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "scores <user>",
		Short: "Best score on every chart the user played",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := a.svc.BestScores(args[0])
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				a.progress(cmd, "📭 No scores for %s", args[0])
			}
			return a.printer.Scores(rows)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "users",
		Short: "Every known user with their score count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.svc.ListUsers()
			if err != nil {
				return err
			}
			return a.printer.Users(users)
		},
	})

	var limit int
	charts := &cobra.Command{
		Use:   "charts",
		Short: "Most played charts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			played, err := a.svc.MostPlayedCharts(limit)
			if err != nil {
				return err
			}
			return a.printer.ChartPlays(played)
		},
	}
	charts.Flags().IntVar(&limit, "limit", 10, "How many charts to show")
	cmd.AddCommand(charts)

	cmd.AddCommand(&cobra.Command{
		Use:   "catalog",
		Short: "Every chart in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := a.svc.ListCharts()
			if err != nil {
				return err
			}
			if len(all) == 0 {
				a.progress(cmd, "📭 Catalog is empty, run `shimmering import charts` first")
			}
			return a.printer.Charts(all)
		},
	})

	return cmd
}

func newSetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change user settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "nickname <user> <nickname>",
		Short: "Set a user's display name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.SetNickname(args[0], args[1]); err != nil {
				return err
			}
			a.progress(cmd, "✅ %s is now known as %s", args[0], args[1])
			return nil
		},
	})

	return cmd
}

func newCalcCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Compute ratings without storing anything",
	}

	var difficulty, artist string
	query := func(title string) (shimmering.ChartQuery, error) {
		q := shimmering.ChartQuery{Title: title}
		if difficulty != "" {
			d, err := models.ParseDifficulty(difficulty)
			if err != nil {
				return q, err
			}
			q.Difficulty = d
		}
		if artist != "" {
			q.Artist = &artist
		}
		return q, nil
	}

	rating := &cobra.Command{
		Use:     "rating <title> <score>",
		Short:   "Grade and play rating of a score",
		Example: `  shimmering calc rating "Grievous Lady" 9900000 --difficulty FTR`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[1])
			if err != nil || score < 0 {
				return fmt.Errorf("invalid score %q", args[1])
			}
			q, err := query(args[0])
			if err != nil {
				return err
			}
			row, err := a.svc.CalcRating(q, score)
			if err != nil {
				return err
			}
			return a.printer.Scores([]shimmering.ScoreRow{*row})
		},
	}

	expected := &cobra.Command{
		Use:     "expected <title> <play-rating>",
		Short:   "Score needed on a chart for a play rating",
		Example: `  shimmering calc expected Quon 11.2 --artist "DJ Noriken"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid play rating %q", args[1])
			}
			q, err := query(args[0])
			if err != nil {
				return err
			}
			exp, err := a.svc.ExpectedScore(q, target)
			if err != nil {
				return err
			}
			return a.printer.Value(exp)
		},
	}

	for _, c := range []*cobra.Command{rating, expected} {
		c.Flags().StringVarP(&difficulty, "difficulty", "d", "", "Chart difficulty: PST, PRS, FTR, ETR or BYD (default FTR)")
		c.Flags().StringVar(&artist, "artist", "", "Artist, for titles shared by several songs")
		cmd.AddCommand(c)
	}

	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate statistics",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "b30 <user>",
		Short: "Average play rating of the user's 30 best charts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.B30(args[0])
			if err != nil {
				return err
			}
			return a.printer.B30(res)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Chart, user and score counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.svc.Stats()
			if err != nil {
				return err
			}
			return a.printer.Value(stats)
		},
	})

	return cmd
}
