package controller

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			BorderStyle(lipgloss.RoundedBorder()).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Faint(true).Width(18)
	crashStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	helpStyle  = lipgloss.NewStyle().Faint(true)
)

// TUI implements UI with a live Bubble Tea dashboard.
type TUI struct {
	output  io.Writer
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

type runInfoMsg RunInfo

type statsMsg m.Stats

// Start launches the dashboard in the background.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := &StartConfig{}
	for _, opt := range options {
		opt(cfg)
	}

	t.program = tea.NewProgram(newDashboardModel(cfg.onQuit), tea.WithOutput(t.output))
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)

		if _, err := t.program.Run(); err != nil {
			slog.Error("Dashboard stopped", "error", err)
		}
	}()

	return nil
}

// Close asks the dashboard to exit.
func (t *TUI) Close(_ context.Context) {
	if t.program != nil {
		t.program.Quit()
	}
}

// Wait blocks until the dashboard has exited or ctx is done.
func (t *TUI) Wait(ctx context.Context) {
	if t.done == nil {
		return
	}

	select {
	case <-t.done:
	case <-ctx.Done():
	}
}

// DisplayRunInfo shows the session parameters in the dashboard header.
func (t *TUI) DisplayRunInfo(_ context.Context, info RunInfo) {
	if t.program != nil {
		t.program.Send(runInfoMsg(info))
	}
}

// DisplayProgress refreshes the dashboard.
func (t *TUI) DisplayProgress(_ context.Context, stats m.Stats) {
	if t.program != nil {
		t.program.Send(statsMsg(stats))
	}
}

// DisplaySummary prints the final tables below the dashboard.
func (t *TUI) DisplaySummary(_ context.Context, stats m.Stats) {
	fmt.Fprintf(t.output, "\n%s\n%s", renderOutcomeTable(stats), renderMutatorTable(stats.Mutators))
}

// DisplayDistanceMap prints a distance map summary table.
func (t *TUI) DisplayDistanceMap(ctx context.Context, summary DistanceMapSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := fmt.Fprint(t.output, renderDistanceMapTable(summary))

	return err
}

// DisplayCrashes prints the crash log tables.
func (t *TUI) DisplayCrashes(ctx context.Context, logs []CrashLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := fmt.Fprint(t.output, renderCrashLogs(logs))

	return err
}

// DisplayCrash prints a single crash record in full.
func (t *TUI) DisplayCrash(ctx context.Context, record m.CrashRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := fmt.Fprint(t.output, renderCrash(record))

	return err
}

type dashboardModel struct {
	info     RunInfo
	stats    m.Stats
	score    progress.Model
	onQuit   func()
	quitting bool
}

func newDashboardModel(onQuit func()) dashboardModel {
	return dashboardModel{
		score:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		onQuit: onQuit,
	}
}

func (dm dashboardModel) Init() tea.Cmd {
	return nil
}

func (dm dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		dm.score.Width = max(min(msg.Width-20, 60), 10)
		return dm, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			dm.quitting = true

			if dm.onQuit != nil {
				dm.onQuit()
			}

			return dm, tea.Quit
		}

	case runInfoMsg:
		dm.info = RunInfo(msg)
		return dm, nil

	case statsMsg:
		dm.stats = m.Stats(msg)
		return dm, nil
	}

	return dm, nil
}

func (dm dashboardModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("distfuzz  %s (%s)", dm.info.Profile, dm.info.Binary)))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	row("elapsed", dm.stats.Elapsed.Truncate(time.Second).String())
	row("workers", fmt.Sprintf("%d", dm.info.Workers))
	row("executions", fmt.Sprintf("%d (%.1f/s)", dm.stats.Executions, dm.stats.ExecsPerSecond()))
	row("outcomes", fmt.Sprintf("ok %d  failed %d  timeout %d", dm.stats.Succeeded, dm.stats.Failed, dm.stats.TimedOut))
	row("corpus", fmt.Sprintf("%d (+%d interesting)", dm.stats.CorpusSize, dm.stats.Interesting))
	row("edges", fmt.Sprintf("%d / %d blocks", dm.stats.Edges, dm.info.DistanceMapSize))
	row("best dist", formatDistance(dm.stats.BestDistance))
	row("targets hit", fmt.Sprintf("%d of %d", dm.stats.TargetsCovered, dm.info.Targets))

	crashes := fmt.Sprintf("%d", dm.stats.Crashed)
	if dm.stats.Crashed > 0 {
		crashes = crashStyle.Render(crashes)
	}

	row("crashes", crashes)

	b.WriteByte('\n')
	b.WriteString(labelStyle.Render("score"))
	b.WriteString(dm.score.ViewAs(min(dm.stats.Score, 1)))
	b.WriteString(fmt.Sprintf(" %.4f\n\n", dm.stats.Score))

	if len(dm.stats.Mutators) > 0 {
		for _, stat := range dm.stats.Mutators {
			row(stat.Name, fmt.Sprintf("%d attempts, %.1f%% declined", stat.Attempts, stat.FailureRate()*100))
		}

		b.WriteByte('\n')
	}

	if dm.quitting {
		b.WriteString(helpStyle.Render("stopping after the current round..."))
	} else {
		b.WriteString(helpStyle.Render("q: stop fuzzing"))
	}

	b.WriteByte('\n')

	return b.String()
}
