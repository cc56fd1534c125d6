// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	bubblesKey "github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/padhai-cli/padhai/catalog"
	"github.com/padhai-cli/padhai/constant"
	"github.com/padhai-cli/padhai/history"
	"github.com/padhai-cli/padhai/internal/stage"
	"github.com/padhai-cli/padhai/internal/ui"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/live"
	"github.com/padhai-cli/padhai/log"
	"github.com/padhai-cli/padhai/playback"
	"github.com/padhai-cli/padhai/style"
	"github.com/padhai-cli/padhai/util"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

// statefulBubble encapsulates the comprehensive application state, including component models and workflow tracking.
type statefulBubble struct {
	state         state
	statesHistory util.Stack[state]
	loading       bool
	busy          bool // Protects against rapid input during async ops

	keymap *statefulKeymap

	// components
	spinnerC  spinner.Model
	inputC    textinput.Model
	batchesC  list.Model
	lecturesC list.Model
	booksC    list.Model
	liveC     list.Model
	historyC  list.Model
	progressC progress.Model
	helpC     help.Model

	store     *catalog.Store
	liveStore *live.Store

	batches       []catalog.Batch
	selectedBatch mo.Option[catalog.Batch]
	enrolled      bool
	grouped       []catalog.SubjectLectures
	watched       map[string]*history.Entry
	schedule      []live.Lecture

	stage      *stage.Stage
	session    *playback.Session
	snapshots  <-chan playback.Snapshot
	snapshot   playback.Snapshot
	playlist   *catalog.Playlist
	watching   mo.Option[history.Entry]
	position   float64
	duration   float64
	lastSaved  float64
	resumeAt   float64
	resumed    uint64
	playerExit <-chan struct{}

	// pending holds commands queued outside Update's return path.
	pending []tea.Cmd

	progressStatus   string
	lastError        error
	searchSuggestion mo.Option[string]

	// send delivers messages from goroutines the program does not own.
	send func(tea.Msg)

	ctx    context.Context
	cancel context.CancelFunc

	width, height int
	notifier      *ui.Model
	log           log.Entry

	options *Options
}

// raiseError dispatches a terminal error and transitions the application to the failure view.
func (b *statefulBubble) raiseError(err error) {
	b.lastError = err
	b.log.WithError(err).Error("ui error")
	b.newState(errorState)
}

// setState performs a synchronous transition of both the application workflow and its associated keymap.
func (b *statefulBubble) setState(s state) {
	b.state = s
	b.keymap.setState(s)
}

// newState facilitates an idempotent transition to a target state, recording the previous state in the navigation history when appropriate.
func (b *statefulBubble) newState(s state) {
	if b.state == s {
		return
	}

	// Do not push these states to history
	if !lo.Contains([]state{
		loadingState,
		errorState,
	}, b.state) {
		b.statesHistory.Push(b.state)
	}

	b.setState(s)
}

// previousState restores the application to its immediate predecessor in the navigation stack.
func (b *statefulBubble) previousState() {
	if b.statesHistory.Len() > 0 {
		s := b.statesHistory.Pop()
		b.setState(s)
	}
}

// resize propagates terminal dimension changes to all child component models.
func (b *statefulBubble) resize(width, height int) {
	x, y := paddingStyle.GetFrameSize()
	xx, yy := listExtraPaddingStyle.GetFrameSize()

	styledWidth := width - x
	styledHeight := height - y

	listWidth := width - xx
	listHeight := height - yy

	for _, l := range b.lists() {
		l.SetSize(listWidth, listHeight)
		l.Help.Width = listWidth
	}

	b.progressC.Width = util.Min(listWidth, 60)
	b.inputC.Width = listWidth

	b.width = styledWidth
	b.height = styledHeight
	b.helpC.Width = listWidth
}

func (b *statefulBubble) lists() []*list.Model {
	return []*list.Model{&b.batchesC, &b.lecturesC, &b.booksC, &b.liveC, &b.historyC}
}

// startLoading enters a concurrent loading state, initializing visual indicators across child components.
func (b *statefulBubble) startLoading() tea.Cmd {
	b.loading = true
	b.busy = true
	return tea.Batch(b.spinnerC.Tick, b.lecturesC.StartSpinner(), b.booksC.StartSpinner())
}

// stopLoading exits the loading state and synchronizes child component visual indicators.
func (b *statefulBubble) stopLoading() tea.Cmd {
	b.loading = false
	b.busy = false
	b.lecturesC.StopSpinner()
	b.booksC.StopSpinner()
	return nil
}

// shutdown releases the player and stops background watchers.
func (b *statefulBubble) shutdown() {
	b.cancel()
	b.closeSession()

	if b.stage != nil {
		if err := b.stage.Close(); err != nil {
			b.log.WithError(err).Warn("closing stage")
		}
		b.stage = nil
	}
}

// newBubble performs a complete initialization of the application's primary UI model.
func newBubble(options *Options) *statefulBubble {
	keymap := newStatefulKeymap()
	ctx, cancel := context.WithCancel(context.Background())

	bubble := statefulBubble{
		statesHistory: util.Stack[state]{},
		keymap:        keymap,

		store:     options.Store,
		liveStore: live.NewStore(live.DefaultPath()),

		send:   func(tea.Msg) {},
		ctx:    ctx,
		cancel: cancel,

		notifier: &ui.Model{},
		log:      log.For("tui"),
		options:  options,
	}

	type listOptions struct {
		TitleStyle mo.Option[lipgloss.Style]
	}

	makeList := func(title string, description bool, options *listOptions) list.Model {
		delegate := list.NewDefaultDelegate()
		delegate.SetSpacing(viper.GetInt(key.TUIItemSpacing))
		delegate.ShowDescription = description
		delegate.Styles.SelectedTitle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(style.AccentColor).
			Foreground(style.AccentColor).
			Padding(0, 0, 0, 1)
		delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.Foreground(lipgloss.Color("7"))
		delegate.Styles.SelectedDesc = delegate.Styles.SelectedTitle

		listC := list.New([]list.Item{}, delegate, 0, 0)
		listC.KeyMap = bubble.keymap.forList()
		listC.AdditionalShortHelpKeys = bubble.keymap.ShortHelp
		listC.AdditionalFullHelpKeys = func() []bubblesKey.Binding {
			return bubble.keymap.FullHelp()[0]
		}
		listC.Title = title
		listC.Styles.NoItems = paddingStyle
		if titleStyle, ok := options.TitleStyle.Get(); ok {
			listC.Styles.Title = titleStyle
		}
		listC.StatusMessageLifetime = time.Hour * 999
		listC.SetShowPagination(false)
		listC.SetShowStatusBar(false)

		return listC
	}

	titled := func(bg lipgloss.Color) *listOptions {
		return &listOptions{
			TitleStyle: mo.Some(lipgloss.NewStyle().Foreground(style.Base).Background(bg).Padding(0, 1)),
		}
	}

	bubble.helpC = help.New()

	bubble.spinnerC = spinner.New()
	bubble.spinnerC.Spinner = spinner.Dot
	bubble.spinnerC.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	bubble.inputC = textinput.New()
	bubble.inputC.Placeholder = fmt.Sprintf("Search batches (v%s)", constant.Version)
	bubble.inputC.CharLimit = 60
	bubble.inputC.Prompt = "> "

	bubble.progressC = progress.New(progress.WithDefaultGradient())

	bubble.batchesC = makeList("Batches", true, titled(style.AccentColor))
	bubble.batchesC.SetStatusBarItemName("batch", "batches")

	bubble.lecturesC = makeList("Lectures", true, titled(style.Peach))
	bubble.lecturesC.SetStatusBarItemName("lecture", "lectures")

	bubble.booksC = makeList("Books", true, titled(style.Lavender))
	bubble.booksC.SetStatusBarItemName("book", "books")

	bubble.liveC = makeList("Live Lectures", true, titled(style.ErrorColor))
	bubble.liveC.SetStatusBarItemName("lecture", "lectures")

	bubble.historyC = makeList("Continue Watching", true, titled(style.Yellow))
	bubble.historyC.SetStatusBarItemName("entry", "entries")

	if w, h, err := util.TerminalSize(); err == nil {
		bubble.resize(w, h)
	}

	bubble.inputC.Focus()

	return &bubble
}
