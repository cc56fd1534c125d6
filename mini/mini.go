// Package mini implements a lightweight, prompt based interface for browsing batches and watching lectures.
package mini

import (
	"context"
	"errors"
	"os"

	"github.com/padhai-cli/padhai/catalog"
	"github.com/padhai-cli/padhai/history"
	"github.com/padhai-cli/padhai/internal/stage"
	"github.com/padhai-cli/padhai/log"
	"github.com/padhai-cli/padhai/util"
	"github.com/samber/lo"
)

var (
	truncateAt = 100
)

// errQuit ends the prompt loop without an error.
var errQuit = errors.New("quit")

type Options struct {
	Store    *catalog.Store
	UserID   string
	Continue bool
}

type mini struct {
	width, height int

	state         state
	statesHistory util.Stack[state]

	ctx     context.Context
	store   *catalog.Store
	userID  string
	stage   *stage.Stage
	batches []catalog.Batch

	query         string
	found         []catalog.Batch
	selectedBatch *catalog.Batch
	enrolled      bool
	grouped       []catalog.SubjectLectures

	// watching is the entry being played, playlist is nil when
	// it was started from history.
	watching history.Entry
	playlist *catalog.Playlist

	// playerExit is closed when the window of the mounted video goes away.
	playerExit <-chan struct{}

	log log.Entry
}

func newMini(ctx context.Context, options *Options) *mini {
	return &mini{
		statesHistory: util.Stack[state]{},
		ctx:           ctx,
		store:         options.Store,
		userID:        options.UserID,
		log:           log.For("mini"),
	}
}

func (m *mini) previousState() {
	if m.statesHistory.Len() > 0 {
		m.setState(m.statesHistory.Pop())
	}
}

func (m *mini) setState(s state) {
	m.state = s
}

func (m *mini) newState(s state) {
	if m.state == s {
		return
	}

	if !lo.Contains([]state{watchState}, m.state) {
		m.statesHistory.Push(m.state)
	}

	m.setState(s)
}

// Run drives the prompts until the user quits.
func Run(ctx context.Context, options *Options) error {
	m := newMini(ctx, options)
	m.state = batchesSearchState
	if options.Continue {
		m.state = historySelectState
	}

	if w, h, err := util.TerminalSize(); err == nil {
		m.width, m.height = w, h
		truncateAt = w
		pageSize = util.Max(5, h-6)
	}

	defer m.close()

	for {
		if err := m.handleState(); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		}
	}
}

func (m *mini) close() {
	if m.stage == nil {
		return
	}

	if err := m.stage.Close(); err != nil {
		m.log.WithError(err).Warn("closing stage")
	}
}

func (m *mini) handleState() error {
	switch m.state {
	case historySelectState:
		return m.handleHistorySelectState()
	case batchesSearchState:
		return m.handleBatchesSearchState()
	case batchSelectState:
		return m.handleBatchSelectState()
	case lectureSelectState:
		return m.handleLectureSelectState()
	case watchState:
		return m.handleWatchState()
	case quitState:
		return errQuit
	}

	return nil
}

// ensureStage starts the player lazily, most prompts never need it.
func (m *mini) ensureStage() error {
	if m.stage != nil {
		return nil
	}

	s, err := stage.New(os.Stdout)
	if err != nil {
		return err
	}

	m.stage = s
	return nil
}
