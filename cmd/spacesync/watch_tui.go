package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/emnt/spacesync/internal/sdk"
)

type progressFetcher func(ctx context.Context) (*sdk.Progress, error)

type progressMsg struct {
	progress *sdk.Progress
	err      error
}

type pollMsg struct{}

type watchModel struct {
	ctx        context.Context
	fetch      progressFetcher
	interval   time.Duration
	exitOnDone bool

	bar     progress.Model
	last    *sdk.Progress
	err     error
	started time.Time
	done    bool
}

func newWatchModel(ctx context.Context, fetch progressFetcher, interval time.Duration, exitOnDone bool) watchModel {
	return watchModel{
		ctx:        ctx,
		fetch:      fetch,
		interval:   interval,
		exitOnDone: exitOnDone,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithWidth(60)),
		started:    time.Now(),
	}
}

func (m watchModel) Init() tea.Cmd {
	return m.poll
}

func (m watchModel) poll() tea.Msg {
	p, err := m.fetch(m.ctx)
	return progressMsg{progress: p, err: err}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-4, 10), 80)

	case progressMsg:
		m.err = msg.err
		if msg.err == nil {
			m.last = msg.progress
			if m.last.Complete && m.exitOnDone {
				m.done = true
				return m, tea.Quit
			}
		}
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return pollMsg{} })

	case pollMsg:
		return m, m.poll
	}
	return m, nil
}

func (m watchModel) percent() float64 {
	if m.last == nil || m.last.Total == 0 {
		if m.last != nil && m.last.Complete {
			return 1
		}
		return 0
	}
	return float64(m.last.Progress) / float64(m.last.Total)
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("spacesync") + "\n\n")

	switch {
	case m.last == nil && m.err == nil:
		b.WriteString(infoStyle.Render("connecting...") + "\n")
	case m.last != nil && m.last.Complete:
		b.WriteString(m.bar.ViewAs(1) + "\n")
		b.WriteString(infoStyle.Render("no sync pass running") + "\n")
	case m.last != nil:
		b.WriteString(m.bar.ViewAs(m.percent()) + "\n")
		b.WriteString(infoStyle.Render(fmt.Sprintf("%s sync: %s of %s %s, watching for %s",
			m.last.Direction,
			humanize.Comma(int64(m.last.Progress)),
			humanize.Comma(int64(m.last.Total)),
			itemNoun(m.last.Direction),
			time.Since(m.started).Round(time.Second),
		)) + "\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render("error: "+m.err.Error()) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("press q to quit") + "\n")
	return b.String()
}

func runWatchTUI(ctx context.Context, fetch progressFetcher, interval time.Duration, exitOnDone bool) error {
	p := tea.NewProgram(newWatchModel(ctx, fetch, interval, exitOnDone), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
