// Command datapulse answers analytics questions from the terminal. It
// loads the CSVs in a data directory through the same pipeline the web
// server uses and prints the results as tables.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"datapulse/internal/alerts"
	"datapulse/internal/analytics"
	"datapulse/internal/dataset"
	"datapulse/internal/ingest"
	"datapulse/internal/respond"
	"datapulse/internal/schema"
)

var (
	dataDir   string
	rulesFile string
	verbose   bool
)

func main() {
	root := &cobra.Command{
		Use:           "datapulse",
		Short:         "E-commerce analytics from your CSV exports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&dataDir, "data", "d", "data", "directory of CSV files to load")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log ingest details")

	root.AddCommand(askCmd(), datasetsCmd(), alertsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type session struct {
	store    *dataset.Store
	analyzer *analytics.Analyzer
	answer   *respond.Assembler
	logger   *slog.Logger
}

func loadSession(ctx context.Context) (*session, error) {
	out := io.Discard
	if verbose {
		out = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(out, nil))

	store := dataset.NewStore()
	mappings := schema.NewMappingStore()
	pipeline := ingest.NewPipeline(store, mappings, logger)

	if _, err := pipeline.LoadDir(ctx, dataDir); err != nil {
		return nil, err
	}

	analyzer := analytics.NewAnalyzer(store, mappings)
	return &session{
		store:    store,
		analyzer: analyzer,
		answer:   respond.NewAssembler(analyzer, store, logger),
		logger:   logger,
	}, nil
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about your data",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd.Context())
			if err != nil {
				return err
			}

			resp := s.answer.Answer(strings.Join(args, " "))

			fmt.Println(resp.Content)
			for _, t := range resp.Tables {
				fmt.Println()
				printTable(t)
			}
			if resp.Insight != "" {
				fmt.Println()
				fmt.Println("Insight:", resp.Insight)
			}
			return nil
		},
	}
}

func datasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the loaded datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd.Context())
			if err != nil {
				return err
			}

			infos := s.store.List()
			if len(infos) == 0 {
				fmt.Printf("No CSV files found in %s\n", dataDir)
				return nil
			}

			table := newTable([]string{"Dataset", "File", "Rows", "Columns"})
			for _, info := range infos {
				table.Append([]string{
					info.Label,
					info.Name,
					respond.FormatCount(info.Rows),
					fmt.Sprintf("%d", info.Columns),
				})
			}
			table.Render()
			return nil
		},
	}
}

func alertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Evaluate alert rules against the current data",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd.Context())
			if err != nil {
				return err
			}

			rules, err := alerts.LoadRules(rulesFile)
			if err != nil {
				return err
			}

			fired := alerts.Evaluate(rules, s.analyzer.Metrics(), time.Now())
			if len(fired) == 0 {
				fmt.Println("All clear: no alert rules triggered.")
				return nil
			}

			table := newTable([]string{"Severity", "Alert", "Value", "Threshold"})
			for _, a := range fired {
				table.Append([]string{
					strings.ToUpper(string(a.Rule.Severity)),
					a.Rule.Name,
					fmt.Sprintf("%.2f%s", a.Value, a.Rule.Unit),
					fmt.Sprintf("%.2f%s", a.Rule.Threshold, a.Rule.Unit),
				})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesFile, "rules", "", "YAML alert rules file (defaults built in)")
	return cmd
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader(header)
	return table
}

func printTable(t respond.Table) {
	if t.Title != "" {
		fmt.Println(t.Title)
	}
	table := newTable(t.Columns)
	for _, row := range t.Rows {
		table.Append(row)
	}
	table.Render()
}
