package main

import (
	"errors"
	"fmt"
	"time"

	"ComputeOracle/internal/usecase"
	"ComputeOracle/pkg/util"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run queued replays",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		return app.Run(cmd.Context())
	},
}

var (
	cycleActualPrice float64
	cyclePrevious    string
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one live prediction cycle and print its record",
	Long: `Run one live prediction cycle. Without flags the previous prediction is
graded against the freshly ingested price. --actual-price grades
--previous-prediction-id against an explicit ground truth.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := usecase.CycleOptions{PreviousPredictionID: cyclePrevious}
		if cmd.Flags().Changed("actual-price") {
			if cyclePrevious == "" {
				return errors.New("--actual-price requires --previous-prediction-id")
			}
			price := cycleActualPrice
			opts.ActualPrice = &price
		}

		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.Close()

		rec, err := app.RunCycle(cmd.Context(), opts)
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

var replayStart, replayEnd string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay historical hours synchronously and print the final status",
	Example: `  compute-oracle replay --start 2025-11-01T00:00:00 --end 2025-11-04T00:00:00
  compute-oracle replay --start 2025-11-01 --end 2025-11-02 --config config/config.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		start, ok := util.ParseTime(replayStart)
		if !ok {
			return fmt.Errorf("invalid --start %q", replayStart)
		}
		end, ok := util.ParseTime(replayEnd)
		if !ok {
			return fmt.Errorf("invalid --end %q", replayEnd)
		}
		if !end.After(start) {
			return usecase.ErrInvalidRange
		}

		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.Close()

		began := time.Now()
		st, err := app.RunReplay(cmd.Context(), start, end)
		if st != nil {
			if perr := printJSON(st); perr != nil {
				return perr
			}
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "replayed %d hours in %s\n", st.CyclesCompleted, time.Since(began).Round(time.Millisecond))
		return nil
	},
}

func init() {
	cycleCmd.Flags().Float64Var(&cycleActualPrice, "actual-price", 0, "ground truth price for the previous prediction")
	cycleCmd.Flags().StringVar(&cyclePrevious, "previous-prediction-id", "", "prediction to grade")

	replayCmd.Flags().StringVar(&replayStart, "start", "2025-11-01T00:00:00", "replay window start (UTC)")
	replayCmd.Flags().StringVar(&replayEnd, "end", "2025-11-04T00:00:00", "replay window end (UTC, exclusive)")

	rootCmd.AddCommand(serveCmd, cycleCmd, replayCmd)
}
