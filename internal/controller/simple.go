package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// SimpleUI implements UI using cobra Command's output writer.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	return ctx.Err()
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// Wait returns immediately; SimpleUI never blocks.
func (s *SimpleUI) Wait(_ context.Context) {}

// DisplayRunInfo prints the session parameters.
func (s *SimpleUI) DisplayRunInfo(ctx context.Context, info RunInfo) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Fuzzing %s (%s) with %d worker(s)\n", info.Profile, info.Binary, info.Workers)
	s.printf("Distance map: %d blocks, %d target(s)\n", info.DistanceMapSize, info.Targets)
	s.printf("Corpus: %d program(s), output %s\n", info.CorpusSize, info.Output)

	if info.ResumedEdges > 0 {
		s.printf("Resumed with %d known edge(s)\n", info.ResumedEdges)
	}
}

// DisplayProgress prints a single status line.
func (s *SimpleUI) DisplayProgress(ctx context.Context, stats m.Stats) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s\n", progressLine(stats))
}

// DisplaySummary prints the outcome and mutator tables.
func (s *SimpleUI) DisplaySummary(_ context.Context, stats m.Stats) {
	s.printf("\n%s\n%s", renderOutcomeTable(stats), renderMutatorTable(stats.Mutators))
}

// DisplayDistanceMap prints a distance map summary table.
func (s *SimpleUI) DisplayDistanceMap(ctx context.Context, summary DistanceMapSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderDistanceMapTable(summary))

	return nil
}

// DisplayCrashes prints one table per crash log.
func (s *SimpleUI) DisplayCrashes(ctx context.Context, logs []CrashLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderCrashLogs(logs))

	return nil
}

// DisplayCrash prints a single crash record in full.
func (s *SimpleUI) DisplayCrash(ctx context.Context, record m.CrashRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderCrash(record))

	return nil
}

func (s *SimpleUI) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func progressLine(stats m.Stats) string {
	return fmt.Sprintf("[%s] execs: %d (%.1f/s) corpus: %d edges: %d score: %.4f best: %s crashes: %d timeouts: %d",
		stats.Elapsed.Truncate(time.Second),
		stats.Executions,
		stats.ExecsPerSecond(),
		stats.CorpusSize,
		stats.Edges,
		stats.Score,
		formatDistance(stats.BestDistance),
		stats.Crashed,
		stats.TimedOut,
	)
}

func formatDistance(distance float64) string {
	if distance >= m.UnreachableDistance {
		return "-"
	}

	return fmt.Sprintf("%.2f", distance)
}

func renderOutcomeTable(stats m.Stats) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Outcome", "Executions"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	table.Append([]string{m.Succeeded.String(), fmt.Sprintf("%d", stats.Succeeded)})
	table.Append([]string{m.Failed.String(), fmt.Sprintf("%d", stats.Failed)})
	table.Append([]string{m.Crashed.String(), fmt.Sprintf("%d", stats.Crashed)})
	table.Append([]string{m.TimedOut.String(), fmt.Sprintf("%d", stats.TimedOut)})

	table.SetFooter([]string{
		fmt.Sprintf("Edges %d  Score %.4f  Best %s", stats.Edges, stats.Score, formatDistance(stats.BestDistance)),
		fmt.Sprintf("%d", stats.Executions),
	})

	table.Render()

	return buf.String()
}

func renderMutatorTable(stats []m.MutatorStats) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Mutator", "Attempts", "Failure rate", "Added instructions"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	for _, stat := range stats {
		table.Append([]string{
			stat.Name,
			fmt.Sprintf("%d", stat.Attempts),
			fmt.Sprintf("%.1f%%", stat.FailureRate()*100),
			fmt.Sprintf("%d", stat.AddedInstructions),
		})
	}

	table.Render()

	return buf.String()
}

func renderDistanceMapTable(summary DistanceMapSummary) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Distance", "Blocks"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	for _, bucket := range summary.Buckets {
		table.Append([]string{bucket.Label, fmt.Sprintf("%d", bucket.Count)})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Targets %d  Min %.2f  Mean %.2f  Max %.2f", summary.Targets, summary.Min, summary.Mean, summary.Max),
		fmt.Sprintf("%d", summary.Blocks),
	})

	table.Render()

	return fmt.Sprintf("%s\n%s", summary.Path, buf.String())
}

const crashOutputWidth = 48

func renderCrashLogs(logs []CrashLog) string {
	if len(logs) == 0 {
		return "No crashes recorded\n"
	}

	var b strings.Builder

	for _, crashLog := range logs {
		var buf bytes.Buffer

		table := tablewriter.NewWriter(&buf)
		table.SetHeader([]string{"#", "ID", "Time", "Exec time", "Contributors", "Output"})
		table.SetBorder(false)
		table.SetCenterSeparator("")
		table.SetAutoWrapText(false)

		for i, record := range crashLog.Records {
			table.Append([]string{
				fmt.Sprintf("%d", i),
				shortID(record.ID),
				record.Time.Format(time.DateTime),
				record.ExecTime.String(),
				joinContributors(record.Contributors),
				firstLine(record.Output, crashOutputWidth),
			})
		}

		table.SetFooter([]string{"", "", "", "", "Crashes", fmt.Sprintf("%d", len(crashLog.Records))})
		table.Render()

		fmt.Fprintf(&b, "%s\n%s\n", crashLog.Path, buf.String())
	}

	return b.String()
}

func renderCrash(record m.CrashRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Crash %s (%s)\n", record.ID, record.Time.Format(time.RFC3339))
	fmt.Fprintf(&b, "Contributors: %s\n", joinContributors(record.Contributors))
	fmt.Fprintf(&b, "Exec time: %s\n", record.ExecTime)
	fmt.Fprintf(&b, "\nProgram:\n%s", record.Program)

	if record.ParentDiff != "" {
		fmt.Fprintf(&b, "\nDiff against parent:\n%s", record.ParentDiff)
	}

	fmt.Fprintf(&b, "\nOutput:\n%s\n", strings.TrimRight(record.Output, "\n"))

	return b.String()
}

func shortID(id string) string {
	if id == "" {
		return "-"
	}

	if len(id) > 12 {
		return id[:12]
	}

	return id
}

func joinContributors(contributors []m.Contributor) string {
	names := make([]string, len(contributors))
	for i, c := range contributors {
		names[i] = string(c)
	}

	return strings.Join(names, ", ")
}

func firstLine(s string, width int) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	if len(line) > width {
		return line[:width-3] + "..."
	}

	return line
}
