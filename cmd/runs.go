package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List persisted scan runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "runs: open store")
		}
		defer s.Close()

		runs, err := s.ListRuns(ctx, runsLimit)
		if err != nil {
			return eris.Wrap(err, "runs: list")
		}
		if len(runs) == 0 {
			fmt.Println("No scan runs recorded. Run 'claimscan scan --save' first.")
			return nil
		}

		for _, run := range runs {
			fmt.Printf("%s  %s  threshold=%.2f  providers=%d  flags=%d  %s\n",
				run.StartedAt.Format("2006-01-02 15:04"), run.ID,
				run.Threshold, run.ProviderCount, run.FlagCount, run.Status)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list (0 = all)")
	rootCmd.AddCommand(runsCmd)
}
