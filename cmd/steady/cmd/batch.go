package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/steadycam/steady/internal/frames"
)

// batchCmd aligns many frames in parallel.
var batchCmd = &cobra.Command{
	Use:   "batch [files...]",
	Short: "Align many frames in parallel",
	Long: `Align a whole timelapse sequence using parallel workers. Frames are
processed concurrently but results are reported in input order, so the
sequence stays sorted.

Examples:
  steady batch frames/*.jpg --kind face --workers 8
  steady batch shots/*.png --kind landscape --output-dir aligned
  steady batch frames/*.jpg --continue-on-error --format json`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

// progressPrinter writes batch progress lines to the command output.
type progressPrinter struct {
	cmd *cobra.Command
}

func (p progressPrinter) OnStart(total int) {
	_, _ = fmt.Fprintf(p.cmd.OutOrStdout(), "aligning %d frames\n", total)
}

func (p progressPrinter) OnProgress(done, total int) {
	_, _ = fmt.Fprintf(p.cmd.OutOrStdout(), "\r%d/%d", done, total)
}

func (p progressPrinter) OnComplete() {
	_, _ = fmt.Fprintln(p.cmd.OutOrStdout())
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	workers := cfg.Batch.Workers
	if cmd.Flags().Changed("workers") {
		workers, _ = cmd.Flags().GetInt("workers")
	}
	continueOnError := cfg.Batch.ContinueOnError
	if cmd.Flags().Changed("continue-on-error") {
		continueOnError, _ = cmd.Flags().GetBool("continue-on-error")
	}
	showProgress, _ := cmd.Flags().GetBool("progress")
	format, _ := cmd.Flags().GetString("format")

	// Sort inputs so frame order follows the capture sequence even
	// when the shell expands globs unordered.
	paths := append([]string(nil), args...)
	sort.Strings(paths)

	aligner, cleanup, err := buildAligner(cfg, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	batchCfg := frames.BatchConfig{MaxWorkers: workers}
	if showProgress {
		batchCfg.ProgressCallback = progressPrinter{cmd: cmd}
	}

	results, err := frames.RunBatch(cmd.Context(), paths, batchCfg, aligner.AlignFile)
	if err != nil && !continueOnError {
		return err
	}

	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", res.SourcePath, res.Err)
		}
	}

	if format == "json" {
		if err := printBatchJSON(cmd, results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			if res.Err != nil {
				continue
			}
			if err := printFrame(cmd, res.Frame, format); err != nil {
				return err
			}
		}
	}

	if failed > 0 {
		if !continueOnError {
			return fmt.Errorf("%d of %d frames failed", failed, len(results))
		}
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d frames failed\n", failed, len(results))
	}
	return nil
}

// printBatchJSON writes all results as one JSON document.
func printBatchJSON(cmd *cobra.Command, results []frames.BatchResult) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addAlignFlags(batchCmd)
	batchCmd.Flags().IntP("workers", "w", 0, "parallel workers (0 = number of CPUs)")
	batchCmd.Flags().Bool("continue-on-error", true, "keep aligning after per-frame failures")
	batchCmd.Flags().Bool("progress", false, "print progress while aligning")
	batchCmd.Flags().String("format", "text", "output format (text, json)")
}
