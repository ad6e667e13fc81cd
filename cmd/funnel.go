package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	funnelUserID string
	funnelDays   int
)

var funnelCmd = &cobra.Command{
	Use:   "funnel",
	Short: "Print accurate and intent funnels for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		accurate, intents, err := env.Engine.Funnels(cmd.Context(), funnelUserID, funnelDays)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(map[string]any{
			"accurate": accurate,
			"intents":  intents,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	funnelCmd.Flags().StringVar(&funnelUserID, "user", "", "user id (required)")
	funnelCmd.Flags().IntVar(&funnelDays, "days", 30, "window in days")
	funnelCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(funnelCmd)
}
