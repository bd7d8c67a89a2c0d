package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/goalpost-hq/goalpost/internal/config"
	"github.com/goalpost-hq/goalpost/internal/store"
	"github.com/goalpost-hq/goalpost/internal/types"
	"github.com/spf13/cobra"
)

var (
	dbPathOverride string
	jsonOutput     bool
)

var periodCmd = &cobra.Command{
	Use:   "period",
	Short: "Manage evaluation periods",
	Long:  "Create, list, and close evaluation periods without running the server.",
}

func init() {
	periodCmd.PersistentFlags().StringVar(&dbPathOverride, "db", "",
		"Database path (overrides config and GOALPOST_DB_PATH)")
	periodCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output in JSON format")

	periodCmd.AddCommand(periodCreateCmd)
	periodCmd.AddCommand(periodListCmd)
	periodCmd.AddCommand(periodCloseCmd)
}

// resolveStore opens the store from config with optional --db override.
func resolveStore() (*store.SQLiteStore, error) {
	path := dbPathOverride
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		path = cfg.Database.Path
	}
	return store.NewSQLiteStore(path)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

var (
	periodStart string
	periodEnd   string
)

var periodCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an evaluation period",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeriodCreate,
}

func init() {
	periodCreateCmd.Flags().StringVar(&periodStart, "start", "",
		"Start date (YYYY-MM-DD, required)")
	periodCreateCmd.Flags().StringVar(&periodEnd, "end", "",
		"End date (YYYY-MM-DD, required)")
	periodCreateCmd.MarkFlagRequired("start")
	periodCreateCmd.MarkFlagRequired("end")
}

func runPeriodCreate(cmd *cobra.Command, args []string) error {
	start, err := time.Parse("2006-01-02", periodStart)
	if err != nil {
		return fmt.Errorf("invalid start date %q: %w", periodStart, err)
	}
	end, err := time.Parse("2006-01-02", periodEnd)
	if err != nil {
		return fmt.Errorf("invalid end date %q: %w", periodEnd, err)
	}

	db, err := resolveStore()
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := db.CreatePeriod(context.Background(), types.NewPeriod{
		Name:      args[0],
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), p)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created period %q (%s)\n", p.Name, p.ID)
	return nil
}

var periodListCmd = &cobra.Command{
	Use:   "list",
	Short: "List evaluation periods",
	Args:  cobra.NoArgs,
	RunE:  runPeriodList,
}

func runPeriodList(cmd *cobra.Command, args []string) error {
	db, err := resolveStore()
	if err != nil {
		return err
	}
	defer db.Close()

	periods, err := db.ListPeriods(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), types.PeriodList{Periods: periods})
	}

	tw := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(tw, "ID\tNAME\tSTART\tEND\tSTATUS")
	for _, p := range periods {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Name,
			p.StartDate.Format("2006-01-02"),
			p.EndDate.Format("2006-01-02"),
			p.Status)
	}
	return tw.Flush()
}

var periodCloseCmd = &cobra.Command{
	Use:   "close <period-id>",
	Short: "Close an evaluation period",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeriodClose,
}

func runPeriodClose(cmd *cobra.Command, args []string) error {
	db, err := resolveStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.ClosePeriod(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Closed period %s\n", args[0])
	return nil
}
