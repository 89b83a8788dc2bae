package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect and trim the audit log",
}

var (
	auditPageSize  int
	auditPageToken string
)

var auditListCmd = &cobra.Command{
	Use:   "list <entity-type> <entity-id>",
	Short: "List audit entries for one entity, newest first",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRegistry()
		if err != nil {
			return err
		}

		entries, nextToken, total, err := r.audit.ListByEntity(args[0], args[1], auditPageSize, auditPageToken)
		if err != nil {
			return err
		}

		fmt.Printf("%d entries total\n", total)
		for _, entry := range entries {
			fmt.Printf("%s  %-28s %s\n", entry.CreatedAt.Format(time.RFC3339), entry.Action, entry.ID)
		}
		if nextToken != "" {
			fmt.Printf("\nNext page: --page-token %s\n", nextToken)
		}
		return nil
	},
}

var auditKeepDays int

var auditTrimCmd = &cobra.Command{
	Use:   "trim",
	Short: "Delete audit entries older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRegistry()
		if err != nil {
			return err
		}

		cutoff := time.Now().UTC().AddDate(0, 0, -auditKeepDays)
		deleted, err := r.audit.DeleteOlderThan(cutoff)
		if err != nil {
			return err
		}

		slog.Info("trimmed audit log", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
		return nil
	},
}

func init() {
	auditListCmd.Flags().IntVar(&auditPageSize, "page-size", 20, "Entries per page")
	auditListCmd.Flags().StringVar(&auditPageToken, "page-token", "", "Continue from a previous page")

	auditTrimCmd.Flags().IntVar(&auditKeepDays, "keep-days", 365, "Retention window in days")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditTrimCmd)
}
