package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var brainCmd = &cobra.Command{
	Use:   "brain",
	Short: "Autonomous decision layer operations",
}

var brainProcessCmd = &cobra.Command{
	Use:   "process",
	Short: "Drain one batch of queued observations",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		processed, err := env.Brain.ProcessObservations(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Processed %d observations\n", processed)
		return nil
	},
}

var (
	patternsUserID string
	patternsDays   int
)

var brainPatternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Analyze executed decisions by action type",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		patterns, err := env.Brain.AnalyzePatterns(cmd.Context(), patternsUserID, patternsDays)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(patterns, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	brainPatternsCmd.Flags().StringVar(&patternsUserID, "user", "", "user id (required)")
	brainPatternsCmd.Flags().IntVar(&patternsDays, "days", 30, "window in days")
	brainPatternsCmd.MarkFlagRequired("user")

	brainCmd.AddCommand(brainProcessCmd)
	brainCmd.AddCommand(brainPatternsCmd)
	rootCmd.AddCommand(brainCmd)
}
