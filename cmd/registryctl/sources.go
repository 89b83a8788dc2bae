package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/complidesk/gpsr-registry/pkg/source"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage provenance sources",
}

var (
	sourcePageSize  int
	sourcePageToken string
)

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List provenance sources, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRegistry()
		if err != nil {
			return err
		}

		records, nextToken, err := r.sources.List(sourcePageSize, sourcePageToken)
		if err != nil {
			return err
		}

		for _, rec := range records {
			identifier := "-"
			if rec.SourceIdentifier != nil {
				identifier = *rec.SourceIdentifier
			}
			fmt.Printf("%s  %-18s %-24s %s\n", rec.ID, rec.SourceType, identifier, rec.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		if nextToken != "" {
			fmt.Printf("\nNext page: --page-token %s\n", nextToken)
		}
		return nil
	},
}

var (
	sourceType       string
	sourceIdentifier string
	sourceURL        string
	sourceTrustNote  string
)

var sourceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Find or create a provenance source",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRegistry()
		if err != nil {
			return err
		}

		record, err := r.sources.FindOrCreate(source.Info{
			Type:       source.Type(sourceType),
			Identifier: sourceIdentifier,
			URL:        sourceURL,
			TrustNote:  sourceTrustNote,
		})
		if err != nil {
			return err
		}
		return printJSON(record)
	},
}

func init() {
	sourceListCmd.Flags().IntVar(&sourcePageSize, "page-size", 20, "Sources per page")
	sourceListCmd.Flags().StringVar(&sourcePageToken, "page-token", "", "Continue from a previous page")

	sourceAddCmd.Flags().StringVar(&sourceType, "type", string(source.TypeManualEntry), "Source type (COMMUNITY, WEBSITE, OFFICIAL_REGISTRY, ...)")
	sourceAddCmd.Flags().StringVar(&sourceIdentifier, "identifier", "", "Dedup identifier; empty always creates a new row")
	sourceAddCmd.Flags().StringVar(&sourceURL, "url", "", "Source URL")
	sourceAddCmd.Flags().StringVar(&sourceTrustNote, "trust-note", "", "Free-text trust note")

	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceAddCmd)
}
