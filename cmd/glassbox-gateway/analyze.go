package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/watcherai/glassbox-gateway/internal/cache"
	"github.com/watcherai/glassbox-gateway/internal/models"
)

var (
	analyzePrompt string
	analyzeOutput string
	analyzeJSON   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one prompt/output pair and print the normalized result",
	Long: `Submit a prompt and the model's output to the glassbox backend, normalize the
response and print it. The result lives in a one-shot session that ends when
the command exits.

Examples:
  glassbox-gateway analyze --prompt "Where is the Eiffel Tower?" --output "Paris"
  glassbox-gateway analyze --prompt "2+2?" --output "4" --json`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzePrompt, "prompt", "p", "", "prompt sent to the model")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "output produced by the model")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the canonical result as JSON")
	_ = analyzeCmd.MarkFlagRequired("prompt")
	_ = analyzeCmd.MarkFlagRequired("output")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := newAnalysisService()
	if err != nil {
		return err
	}
	sessions := cache.NewSessions(0)
	session := uuid.NewString()
	defer sessions.End(session)
	results := sessions.Open(session)

	id, err := service.Analyze(ctx, results, analyzePrompt, analyzeOutput)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	result, err := service.GetResult(ctx, results, id)
	if err != nil {
		return fmt.Errorf("read result: %w", err)
	}

	if analyzeJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(cmd.OutOrStdout(), result)
	return nil
}

func printResult(w io.Writer, r models.CanonicalResult) {
	fmt.Fprintf(w, "Analysis %s (%s)\n", r.ID, r.Timestamp)
	fmt.Fprintf(w, "Risk: %s  Confidence: %.0f%%  Complexity: %.0f%%\n", r.RiskLevel, r.Confidence*100, r.Complexity*100)
	if r.ModelAnalyzed != "" {
		fmt.Fprintf(w, "Model: %s  Components analyzed: %d  Time: %.0fms\n", r.ModelAnalyzed, r.ComponentCount, r.AnalysisTimeMs)
	}
	if r.Explanation != "" {
		fmt.Fprintf(w, "\n%s\n", r.Explanation)
	}
	if len(r.Components) > 0 {
		fmt.Fprintln(w, "\nKey components:")
		for _, c := range r.Components {
			fmt.Fprintf(w, "  %-8s %5.2f  %s\n", c.Token, c.Importance, c.Label)
		}
	}
	if len(r.Connections) > 0 {
		fmt.Fprintln(w, "\nInformation flow:")
		for _, c := range r.Connections {
			fmt.Fprintf(w, "  %s -> %s (%.1f)\n", c.From, c.To, c.Weight)
		}
		if r.FlowSummary != "" {
			fmt.Fprintf(w, "  %s\n", r.FlowSummary)
		}
	}
	fmt.Fprintln(w, "\nConcerns:")
	for _, c := range r.Concerns {
		fmt.Fprintf(w, "  [%s] %s\n", strings.ToUpper(string(c.Severity)), c.Message)
	}
	if r.Recommendation != "" {
		fmt.Fprintf(w, "\nRecommendation: %s\n", r.Recommendation)
	}
}
