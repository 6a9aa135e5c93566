package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spherical/pitchdeck-analyzer/cmd/pitchdeck/ui"
	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/pipeline"
)

var (
	analyzeForceOCR    bool
	analyzeNoLookup    bool
	analyzeOutput      string
	analyzeInstruction string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <deck.pdf>",
	Short: "Analyze a pitch deck PDF",
	Long: `Extract text from every page of a pitch deck, falling back to vision OCR for
pages whose embedded text is missing or garbled, then produce a structured
startup record. Founders are looked up unless --no-lookup is set.`,
	Example: `  pitchdeck analyze airbnb.pdf
  pitchdeck analyze deck.pdf --force-ocr -o result.json
  pitchdeck analyze deck.pdf --instruction "focus on traction and market size"`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeForceOCR, "force-ocr", false, "OCR every page regardless of embedded text")
	analyzeCmd.Flags().BoolVar(&analyzeNoLookup, "no-lookup", false, "skip founder profile lookup")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "write the JSON result to a file instead of stdout")
	analyzeCmd.Flags().StringVar(&analyzeInstruction, "instruction", "", "extra instruction for the analysis model")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := pipeline.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	lookup := cfg.Lookup.Enabled && !analyzeNoLookup
	if lookup && !components.Service.LookupAvailable() {
		ui.Warning("Search credentials not configured, founder lookup will be skipped")
	}

	ui.Section("Analyzing " + path)

	events := make(chan domain.StreamEvent, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		renderEvents(events)
	}()

	result, err := components.Service.Analyze(ctx, pipeline.Request{
		Source:         domain.Source{Path: path},
		ForceOCR:       analyzeForceOCR || cfg.Extraction.ForceOCR,
		LookupFounders: lookup,
		Instruction:    analyzeInstruction,
	}, events)
	close(events)
	wg.Wait()

	if err != nil {
		if ctx.Err() == context.Canceled {
			ui.Warning("Analysis cancelled")
		}
		return err
	}

	printSummary(result)
	return writeResult(cmd, result)
}

// renderEvents drives the page progress bar and the analysis spinner until
// the channel is closed.
func renderEvents(events <-chan domain.StreamEvent) {
	var bar *ui.ProgressBar
	var spin *ui.Spinner
	stopSpinner := func() {
		if spin != nil {
			spin.Stop()
			spin = nil
		}
	}
	defer stopSpinner()

	for ev := range events {
		switch ev.Type {
		case domain.EventStart:
			if ev.TotalPages > 0 {
				bar = ui.NewProgressBar(ev.TotalPages, "Extracting")
			}
		case domain.EventPageComplete:
			if bar != nil {
				bar.Add()
			}
		case domain.EventExtractionComplete:
			if bar != nil {
				bar.Finish()
				bar = nil
			}
		case domain.EventAnalysis:
			stopSpinner()
			spin = ui.NewSpinner("Analyzing deck")
			spin.Start()
		case domain.EventFounderLookup:
			stopSpinner()
			spin = ui.NewSpinner("Looking up founders")
			spin.Start()
		case domain.EventError:
			if ev.PageNumber > 0 {
				ui.Warning("Page %d: %v", ev.PageNumber, ev.Payload)
			}
		}
	}
}

func printSummary(result *pipeline.Result) {
	ui.Section("Pages")
	rows := make([][]string, 0, len(result.Pages))
	for _, p := range result.Pages {
		note := p.Reason
		if p.Error != "" {
			note = p.Error
		}
		rows = append(rows, []string{fmt.Sprint(p.Index + 1), string(p.Method), fmt.Sprint(p.Chars), note})
	}
	ui.Table([]string{"PAGE", "METHOD", "CHARS", "NOTE"}, rows)

	record := result.Record
	ui.Section(orDash(record.StartupName))
	fmt.Fprintf(os.Stderr, "%s\n", orDash(record.ValueProposition))

	if len(record.FounderLookups) > 0 {
		ui.Section("Founders")
		rows = rows[:0]
		for _, f := range record.FounderLookups {
			handle := "-"
			if f.Handle != nil {
				handle = *f.Handle
			}
			headline := "-"
			if f.Profile != nil && f.Profile.Headline != "" {
				headline = f.Profile.Headline
			}
			rows = append(rows, []string{f.Name, string(f.Status), handle, headline})
		}
		ui.Table([]string{"NAME", "STATUS", "HANDLE", "HEADLINE"}, rows)
	} else if len(record.Founders) > 0 {
		ui.Info("Founders: %s (lookup %s)", strings.Join(record.Founders, ", "), result.FounderLookup)
	}

	failed := 0
	for _, p := range result.Pages {
		if p.Method == domain.MethodOCRFailed {
			failed++
		}
	}
	if failed > 0 {
		ui.Warning("%d of %d pages could not be read", failed, len(result.Pages))
	}
	ui.Success("Analysis completed in %s", ui.FormatDuration(result.Duration))
}

func writeResult(cmd *cobra.Command, result *pipeline.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if analyzeOutput == "" {
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	if err := os.WriteFile(analyzeOutput, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", analyzeOutput, err)
	}
	ui.Success("Result written to %s", analyzeOutput)
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
