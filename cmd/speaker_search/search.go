package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"speaker-events-finder/internal/api"
	"speaker-events-finder/internal/models"
)

var searchFilter string

var searchCmd = &cobra.Command{
	Use:   "search <speaker name>",
	Short: "Search upcoming events for a speaker",
	Long: `Search the web for upcoming events where the speaker is listed and print them as JSON.

Examples:
  speaker-search search "Ada Lovelace"
  speaker-search search Ada Lovelace --filter in-person`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(strings.Join(args, " "))
		if name == "" {
			return fmt.Errorf("speaker name is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		finder, err := newFinder(cmd.Context(), cfg, nil)
		if err != nil {
			return fmt.Errorf("building pipeline: %w", err)
		}

		body, status := api.HandleSearch(cmd.Context(), finder, map[string]string{
			"name":   name,
			"filter": searchFilter,
		})

		data, err := json.MarshalIndent(body, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))

		if errBody, ok := body.(api.ErrorBody); ok {
			return fmt.Errorf("search failed (status %d, request_id %s)", status, errBody.RequestID)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchFilter, "filter", "", fmt.Sprintf("restrict events: %q or %q", models.FilterInPerson, models.FilterOnline))
	rootCmd.AddCommand(searchCmd)
}
