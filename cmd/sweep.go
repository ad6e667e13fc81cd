package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var sweepUserIDs []string

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark outreaches without a check-in for 7 days as stale",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(4)
		swept := make([]int, len(sweepUserIDs))
		for i, userID := range sweepUserIDs {
			g.Go(func() error {
				n, err := env.Engine.SweepStale(ctx, userID)
				if err != nil {
					return err
				}
				swept[i] = n
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i, userID := range sweepUserIDs {
			fmt.Printf("%s: marked %d outreaches stale\n", userID, swept[i])
		}
		return nil
	},
}

func init() {
	sweepCmd.Flags().StringSliceVar(&sweepUserIDs, "user", nil, "user id to sweep (repeatable)")
	sweepCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(sweepCmd)
}
