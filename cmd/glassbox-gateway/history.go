package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/watcherai/glassbox-gateway/internal/services"
)

var (
	historyLimit  int
	historyOffset int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past analyses recorded by the backend",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", services.DefaultHistoryLimit, "max results")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "results to skip")
}

func runHistory(cmd *cobra.Command, args []string) error {
	service, err := newAnalysisService()
	if err != nil {
		return err
	}
	items, err := service.GetHistory(cmd.Context(), historyLimit, historyOffset)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No analyses yet.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIMESTAMP\tRISK\tCONFIDENCE\tPROMPT")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f%%\t%s\n", item.ID, item.Timestamp, item.RiskLevel, item.Confidence*100, item.PromptPreview)
	}
	return tw.Flush()
}
