package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/custodia-labs/cardsync/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/cardsync/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/cardsync/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/cardsync/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driving"
	"github.com/custodia-labs/cardsync/internal/dispatch"
)

// eventBuffer is how many import events may queue before the import blocks.
const eventBuffer = 64

type rowState int

const (
	rowPending rowState = iota
	rowDownloading
	rowDone
	rowFailed
)

// sourceRow is the display state of one source.
type sourceRow struct {
	source   domain.Source
	state    rowState
	progress domain.Progress
	changes  *domain.Changes
	stamp    *domain.CacheStamp
	err      error
}

// App is the import progress view following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports *Ports

	ctx    context.Context
	cancel context.CancelFunc

	styles    *styles.Styles
	keymap    *keymap.KeyMap
	statusBar *status.Bar
	spinner   spinner.Model
	bar       progress.Model
	help      help.Model

	sourceIDs []string

	rows   []sourceRow
	index  map[string]int
	events chan tea.Msg

	report      *driving.ImportReport
	err         error
	finished    bool
	cancelled   bool
	showDetails bool
	width       int
}

// NewApp creates the progress view with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if ports == nil {
		return nil, ErrMissingImporter
	}
	if err := ports.Validate(); err != nil {
		return nil, err
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	theme := s.Theme()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.Warning

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		ports:     ports,
		ctx:       ctx,
		cancel:    cancel,
		styles:    s,
		keymap:    km,
		statusBar: status.NewBar(s, km),
		spinner:   sp,
		bar: progress.New(
			progress.WithGradient(string(theme.Primary), string(theme.Secondary)),
			progress.WithWidth(30),
		),
		help:   help.New(),
		index:  make(map[string]int),
		events: make(chan tea.Msg, eventBuffer),
		width:  80,
	}, nil
}

// WithContext sets the parent context for the import.
func (a *App) WithContext(ctx context.Context) *App {
	a.cancel()
	a.ctx, a.cancel = context.WithCancel(ctx)
	return a
}

// WithSources restricts the import to the given source IDs.
func (a *App) WithSources(ids ...string) *App {
	a.sourceIDs = ids
	return a
}

// Report returns the finished batch, or the error that stopped it.
// Both are nil when the view was closed before the batch finished.
func (a *App) Report() (*driving.ImportReport, error) {
	return a.report, a.err
}

// Cancelled reports whether the user quit before the batch finished.
func (a *App) Cancelled() bool {
	return a.cancelled
}

// Init loads the sources and starts the spinner.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.loadSources())
}

func (a *App) loadSources() tea.Cmd {
	ctx := a.ctx
	sources := a.ports.Source
	chosen := make(map[string]bool, len(a.sourceIDs))
	for _, id := range a.sourceIDs {
		chosen[id] = true
	}
	return func() tea.Msg {
		all, err := sources.List(ctx)
		if err != nil {
			return messages.SourcesLoaded{Err: err}
		}
		selected := make([]domain.Source, 0, len(all))
		for _, s := range all {
			if (len(chosen) == 0 && s.Enabled) || chosen[s.ID] {
				selected = append(selected, s)
			}
		}
		return messages.SourcesLoaded{Sources: selected}
	}
}

// startImport runs the batch in the background. Its callbacks are posted
// into the app's event channel and run on the update goroutine.
func (a *App) startImport() tea.Cmd {
	ctx := a.ctx
	events := a.events
	importer := a.ports.Importer
	ids := a.sourceIDs

	send := func(msg tea.Msg) {
		select {
		case events <- msg:
		case <-ctx.Done():
		}
	}

	go func() {
		callbacks := driving.ImportCallbacks{
			Dispatcher: dispatch.Func(func(fn func()) {
				send(messages.Dispatched{Run: fn})
			}),
			OnSourceDownload: func(source domain.Source, p domain.Progress) {
				a.apply(messages.SourceProgress{Source: source, Progress: p})
			},
			OnSourceComplete: func(source domain.Source, changes *domain.Changes, stamp *domain.CacheStamp, err error) {
				a.apply(messages.SourceCompleted{Source: source, Changes: changes, Stamp: stamp, Err: err})
			},
		}
		var report *driving.ImportReport
		var err error
		if len(ids) > 0 {
			report, err = importer.ImportSources(ctx, ids, callbacks)
		} else {
			report, err = importer.ImportAll(ctx, callbacks)
		}
		send(messages.ImportFinished{Report: report, Err: err})
	}()

	return a.waitForEvent()
}

func (a *App) waitForEvent() tea.Cmd {
	events := a.events
	return func() tea.Msg {
		return <-events
	}
}

// apply folds one import event into the rows.
func (a *App) apply(msg tea.Msg) {
	switch msg := msg.(type) {
	case messages.SourceProgress:
		r := a.row(msg.Source)
		if r.state == rowPending || r.state == rowDownloading {
			r.state = rowDownloading
			r.progress = msg.Progress
		}

	case messages.SourceCompleted:
		r := a.row(msg.Source)
		r.changes, r.stamp, r.err = msg.Changes, msg.Stamp, msg.Err
		if msg.Err != nil {
			r.state = rowFailed
		} else {
			r.state = rowDone
		}
		a.updateCounts()
	}
}

// Update handles incoming messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.statusBar.SetWidth(msg.Width)
		a.help.Width = msg.Width
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case spinner.TickMsg:
		if a.finished {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case messages.SourcesLoaded:
		if msg.Err != nil {
			a.fail(fmt.Errorf("listing sources: %w", msg.Err))
			return a, tea.Quit
		}
		for _, s := range msg.Sources {
			a.row(s)
		}
		a.statusBar.SetState(status.StateImporting)
		a.updateCounts()
		return a, a.startImport()

	case messages.Dispatched:
		msg.Run()
		return a, a.waitForEvent()

	case messages.SourceProgress, messages.SourceCompleted:
		a.apply(msg)
		return a, a.waitForEvent()

	case messages.ImportFinished:
		a.finished = true
		if msg.Err != nil {
			a.fail(msg.Err)
			return a, tea.Quit
		}
		a.report = msg.Report
		a.statusBar.SetState(status.StateDone)
		a.updateCounts()
		return a, tea.Quit
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch {
	case keymap.Matches(key, a.keymap.Quit):
		if !a.finished {
			a.cancelled = true
			a.cancel()
			a.statusBar.SetState(status.StateCancelled)
		}
		return a, tea.Quit
	case keymap.Matches(key, a.keymap.Help):
		a.help.ShowAll = !a.help.ShowAll
	case keymap.Matches(key, a.keymap.Details):
		a.showDetails = !a.showDetails
	}
	return a, nil
}

func (a *App) fail(err error) {
	a.finished = true
	a.err = err
	a.statusBar.SetState(status.StateError)
	a.statusBar.SetMessage(err.Error())
}

// row returns the row for source, appending one for sources
// that were not listed up front.
func (a *App) row(source domain.Source) *sourceRow {
	if i, ok := a.index[source.ID]; ok {
		a.rows[i].source = source
		return &a.rows[i]
	}
	a.index[source.ID] = len(a.rows)
	a.rows = append(a.rows, sourceRow{source: source})
	return &a.rows[len(a.rows)-1]
}

func (a *App) updateCounts() {
	var completed, failed int
	for _, r := range a.rows {
		switch r.state {
		case rowDone:
			completed++
		case rowFailed:
			completed++
			failed++
		}
	}
	a.statusBar.SetCounts(completed, failed, len(a.rows))
}

// View renders the progress view.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.styles.Title.Render("Importing contacts"))
	b.WriteString("\n")

	if len(a.rows) == 0 && a.statusBar.State() != status.StateLoading {
		b.WriteString(a.styles.Muted.Render("No enabled sources."))
		b.WriteString("\n")
	}
	for i := range a.rows {
		b.WriteString(a.renderRow(&a.rows[i]))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(a.statusBar.View())
	if a.help.ShowAll {
		b.WriteString("\n")
		b.WriteString(a.help.FullHelpView(a.keymap.FullHelp()))
	}
	b.WriteString("\n")
	return b.String()
}

func (a *App) renderRow(r *sourceRow) string {
	name := a.styles.SourceName.Render(r.source.Name)

	var state string
	switch r.state {
	case rowPending:
		state = a.styles.Muted.Render("waiting")
	case rowDownloading:
		state = a.renderDownload(r.progress)
	case rowDone:
		state = a.styles.Success.Render("✓ " + r.changes.Summary())
		if a.showDetails && r.stamp != nil {
			state += a.styles.Muted.Render("  " + r.stamp.String())
		}
	case rowFailed:
		state = a.styles.Error.Render("⚠ " + a.errorText(r.err))
	}
	return fmt.Sprintf("  %s %s", name, state)
}

func (a *App) renderDownload(p domain.Progress) string {
	received := humanize.Bytes(uint64(max(p.TotalBytes, 0)))
	if f := p.Fraction(); f >= 0 {
		total := humanize.Bytes(uint64(p.TotalBytesExpected))
		return a.bar.ViewAs(f) + a.styles.Muted.Render(fmt.Sprintf(" %s / %s", received, total))
	}
	return a.spinner.View() + a.styles.Warning.Render(" downloading ") + a.styles.Muted.Render(received)
}

// errorText shortens errors to one line unless details are shown.
func (a *App) errorText(err error) string {
	text := err.Error()
	if a.showDetails {
		return text
	}
	limit := a.width - 32
	if limit < 20 {
		limit = 20
	}
	if runes := []rune(text); len(runes) > limit {
		return string(runes[:limit-1]) + "…"
	}
	return text
}
