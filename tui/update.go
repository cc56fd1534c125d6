// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"fmt"
	"strings"
	"time"

	bubblesKey "github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/padhai-cli/padhai/catalog"
	"github.com/padhai-cli/padhai/history"
	"github.com/padhai-cli/padhai/internal/ui"
	"github.com/padhai-cli/padhai/live"
	"github.com/padhai-cli/padhai/open"
	"github.com/padhai-cli/padhai/query"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

func (b *statefulBubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	// Process Ephemeral UI Notifications
	if uiCmd := b.notifier.Update(msg); uiCmd != nil {
		cmd = uiCmd
	}

	// Messages that arrive regardless of the current state.
	switch msg := msg.(type) {
	case error:
		b.stopLoading()
		b.raiseError(msg)
		return b, cmd
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
	case liveLoadedMsg:
		b.schedule = msg
		return b, tea.Batch(cmd, b.liveC.SetItems(liveItems(b.schedule)))
	case liveTickMsg:
		return b, tea.Batch(cmd, b.liveC.SetItems(liveItems(b.schedule)), tickLive())
	case snapshotMsg:
		if msg.session != b.session {
			return b, cmd
		}
		return b, tea.Batch(cmd, b.onSnapshot(msg.snapshot), waitForSnapshot(b.session, b.snapshots))
	case progressMsg:
		return b, tea.Batch(cmd, b.onProgress(msg))
	case navigateMsg:
		return b, tea.Batch(cmd, b.navigate(int(msg)))
	case playerExitMsg:
		if b.state == playerState {
			b.closeSession()
			b.previousState()
			return b, tea.Batch(cmd, ui.Notify("Player closed"))
		}
		return b, cmd
	case tea.KeyMsg:
		switch {
		case bubblesKey.Matches(msg, b.keymap.forceQuit):
			return b, tea.Quit
		}

		// Input Guard: Ignore non-priority keys during asynchronous operations.
		if b.busy && b.state != errorState && !bubblesKey.Matches(msg, b.keymap.back) {
			return b, cmd
		}

		if bubblesKey.Matches(msg, b.keymap.back) {
			onListBack := func(l *list.Model) tea.Cmd {
				l.ResetSelected()
				l.ResetFilter()
				return tea.Batch(cmd, l.NewStatusMessage(""))
			}

			switch b.state {
			case searchState:
				b.inputC.SetValue("")
				b.searchSuggestion = mo.None[string]()
			case lecturesState:
				b.selectedBatch = mo.None[catalog.Batch]()
				cmd = onListBack(&b.lecturesC)
			case booksState:
				cmd = onListBack(&b.booksC)
			case liveState:
				cmd = onListBack(&b.liveC)
			case historyState:
				cmd = onListBack(&b.historyC)
			case playerState:
				b.closeSession()
			case batchesState:
				if b.statesHistory.Len() == 0 {
					return b, cmd
				}
			}

			b.previousState()
			b.stopLoading()
			return b, cmd
		}
	}

	var stateCmd tea.Cmd
	switch b.state {
	case loadingState:
		_, stateCmd = b.updateLoading(msg)
	case batchesState:
		_, stateCmd = b.updateBatches(msg)
	case searchState:
		_, stateCmd = b.updateSearch(msg)
	case lecturesState:
		_, stateCmd = b.updateLectures(msg)
	case booksState:
		_, stateCmd = b.updateBooks(msg)
	case liveState:
		_, stateCmd = b.updateLive(msg)
	case historyState:
		_, stateCmd = b.updateHistory(msg)
	case playerState:
		_, stateCmd = b.updatePlayer(msg)
	case errorState:
		_, stateCmd = b.updateError(msg)
	}

	// Data arriving for a list that is not on screen still fills it.
	switch msg := msg.(type) {
	case batchesLoadedMsg:
		if b.state != batchesState && b.state != loadingState {
			b.batches = msg
			stateCmd = tea.Batch(stateCmd, b.batchesC.SetItems(batchItems(msg)))
		}
	case historyLoadedMsg:
		if b.state != historyState {
			stateCmd = tea.Batch(stateCmd, b.historyC.SetItems(historyItems(msg)))
		}
	}

	return b, tea.Batch(cmd, stateCmd)
}

func (b *statefulBubble) updateLoading(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if bubblesKey.Matches(msg, b.keymap.back) {
			if b.statesHistory.Len() > 0 {
				b.previousState()
			} else {
				return b, tea.Quit
			}
		}
	case batchesLoadedMsg:
		b.batches = msg
		cmd = b.batchesC.SetItems(batchItems(msg))
		b.previousState()
		return b, tea.Batch(cmd, b.stopLoading())
	case lecturesLoadedMsg:
		b.selectedBatch = mo.Some(msg.batch)
		b.enrolled = msg.enrolled
		b.grouped = msg.grouped
		b.watched = msg.watched

		b.lecturesC.Title = msg.batch.Name
		cmd = b.lecturesC.SetItems(lectureItems(msg.grouped, msg.enrolled, msg.watched))
		b.previousState()
		b.newState(lecturesState)
		return b, tea.Batch(cmd, b.stopLoading())
	case booksLoadedMsg:
		items := make([]list.Item, len(msg))
		for i := range msg {
			items[i] = &listItem{internal: &msg[i]}
		}

		if batch, ok := b.selectedBatch.Get(); ok {
			b.booksC.Title = "Books - " + batch.Name
		}
		cmd = b.booksC.SetItems(items)
		b.previousState()
		b.newState(booksState)
		return b, tea.Batch(cmd, b.stopLoading())
	}

	b.spinnerC, cmd = b.spinnerC.Update(msg)
	return b, cmd
}

// loadInto shows the spinner until a loader's message arrives.
func (b *statefulBubble) loadInto(status string, loader tea.Cmd) tea.Cmd {
	b.progressStatus = status
	b.newState(loadingState)
	return tea.Batch(b.startLoading(), loader)
}

func (b *statefulBubble) selectedBatchItem() (catalog.Batch, bool) {
	item, ok := b.batchesC.SelectedItem().(*listItem)
	if !ok {
		return catalog.Batch{}, false
	}
	batch, ok := item.internal.(*catalog.Batch)
	if !ok {
		return catalog.Batch{}, false
	}
	return *batch, true
}

func (b *statefulBubble) updateBatches(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case batchesLoadedMsg:
		b.batches = msg
		return b, b.batchesC.SetItems(batchItems(msg))
	case enrolledMsg:
		b.markEnrolled(msg.batch)
		return b, ui.Notify("Enrolled in " + msg.batch.Name)
	case tea.KeyMsg:
		if b.batchesC.FilterState() == list.Filtering {
			break
		}

		switch {
		case bubblesKey.Matches(msg, b.keymap.up):
			if n := len(b.batchesC.Items()); n > 0 && b.batchesC.Index() == 0 {
				b.batchesC.Select(n - 1)
				return b, nil
			}
		case bubblesKey.Matches(msg, b.keymap.down):
			if n := len(b.batchesC.Items()); n > 0 && b.batchesC.Index() == n-1 {
				b.batchesC.Select(0)
				return b, nil
			}
		case bubblesKey.Matches(msg, b.keymap.confirm):
			batch, ok := b.selectedBatchItem()
			if !ok {
				break
			}
			return b, b.loadInto(fmt.Sprintf("Loading lectures of %s...", batch.Name), b.loadLectures(batch))
		case bubblesKey.Matches(msg, b.keymap.books):
			batch, ok := b.selectedBatchItem()
			if !ok {
				break
			}
			b.selectedBatch = mo.Some(batch)
			return b, b.loadInto(fmt.Sprintf("Loading books of %s...", batch.Name), b.loadBooks(batch))
		case bubblesKey.Matches(msg, b.keymap.enroll):
			batch, ok := b.selectedBatchItem()
			if !ok {
				break
			}
			return b, b.enroll(batch)
		case bubblesKey.Matches(msg, b.keymap.search):
			b.inputC.SetValue("")
			b.newState(searchState)
			return b, nil
		case bubblesKey.Matches(msg, b.keymap.live):
			b.newState(liveState)
			return b, b.loadLive()
		case bubblesKey.Matches(msg, b.keymap.history):
			b.newState(historyState)
			return b, b.loadHistory()
		case bubblesKey.Matches(msg, b.keymap.refresh):
			return b, b.loadInto("Loading batches...", b.loadBatches())
		}
	}

	b.batchesC, cmd = b.batchesC.Update(msg)
	return b, cmd
}

// markEnrolled decorates the batch in the list and unlocks its lectures when open.
func (b *statefulBubble) markEnrolled(batch catalog.Batch) {
	for _, item := range b.batchesC.Items() {
		if it, ok := item.(*listItem); ok {
			if bt, ok := it.internal.(*catalog.Batch); ok && bt.ID == batch.ID {
				it.marked = true
			}
		}
	}

	if selected, ok := b.selectedBatch.Get(); ok && selected.ID == batch.ID {
		b.enrolled = true
		b.lecturesC.SetItems(lectureItems(b.grouped, true, b.watched))
	}
}

func (b *statefulBubble) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case bubblesKey.Matches(msg, b.keymap.confirm):
			value := b.inputC.Value()
			found := catalog.Search(b.batches, value)
			b.searchSuggestion = mo.None[string]()
			b.previousState()
			b.batchesC.ResetSelected()
			if len(found) == 0 {
				return b, tea.Batch(b.batchesC.SetItems(batchItems(b.batches)), ui.Notify("No batches found"))
			}
			go func() {
				if err := query.Remember(value, 1); err != nil {
					b.log.WithError(err).Warn("remember search")
				}
			}()
			return b, b.batchesC.SetItems(batchItems(found))
		case bubblesKey.Matches(msg, b.keymap.acceptSearchSuggestion) && b.searchSuggestion.IsPresent():
			b.inputC.SetValue(b.searchSuggestion.MustGet())
			b.searchSuggestion = mo.None[string]()
			b.inputC.SetCursor(len(b.inputC.Value()))
			return b, nil
		}
	}

	b.inputC, cmd = b.inputC.Update(msg)

	if value := b.inputC.Value(); value != "" {
		if suggestion, ok := query.Suggest(value).Get(); ok && suggestion != strings.ToLower(value) {
			b.searchSuggestion = mo.Some(suggestion)
		} else {
			b.searchSuggestion = mo.None[string]()
		}
	} else if b.searchSuggestion.IsPresent() {
		b.searchSuggestion = mo.None[string]()
	}

	return b, cmd
}

func (b *statefulBubble) updateLectures(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case enrolledMsg:
		b.markEnrolled(msg.batch)
		return b, ui.Notify("Enrolled in " + msg.batch.Name)
	case tea.KeyMsg:
		if b.lecturesC.FilterState() == list.Filtering {
			break
		}

		switch {
		case bubblesKey.Matches(msg, b.keymap.up):
			if n := len(b.lecturesC.Items()); n > 0 && b.lecturesC.Index() == 0 {
				b.lecturesC.Select(n - 1)
				return b, nil
			}
		case bubblesKey.Matches(msg, b.keymap.down):
			if n := len(b.lecturesC.Items()); n > 0 && b.lecturesC.Index() == n-1 {
				b.lecturesC.Select(0)
				return b, nil
			}
		case bubblesKey.Matches(msg, b.keymap.play):
			item, ok := b.lecturesC.SelectedItem().(*listItem)
			if !ok {
				break
			}
			if lecture, ok := item.internal.(*lectureItem); ok {
				return b, b.watchLecture(lecture)
			}
		case bubblesKey.Matches(msg, b.keymap.openURL):
			item, ok := b.lecturesC.SelectedItem().(*listItem)
			if !ok {
				break
			}
			lecture, ok := item.internal.(*lectureItem)
			if !ok || lecture.lecture.URL() == "" {
				break
			}
			if catalog.CanWatch(lecture.lecture, b.enrolled) != nil {
				return b, ui.Notify(enrollNotice)
			}
			if err := open.Start(lecture.lecture.URL()); err != nil {
				return b, ui.Notify(err.Error())
			}
		case bubblesKey.Matches(msg, b.keymap.enroll):
			if b.enrolled {
				return b, ui.Notify("Already enrolled")
			}
			if batch, ok := b.selectedBatch.Get(); ok {
				return b, b.enroll(batch)
			}
		case bubblesKey.Matches(msg, b.keymap.books):
			if batch, ok := b.selectedBatch.Get(); ok {
				return b, b.loadInto(fmt.Sprintf("Loading books of %s...", batch.Name), b.loadBooks(batch))
			}
		}
	}

	b.lecturesC, cmd = b.lecturesC.Update(msg)
	return b, cmd
}

func (b *statefulBubble) updateBooks(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if bubblesKey.Matches(msg, b.keymap.openURL, b.keymap.confirm) {
			item, ok := b.booksC.SelectedItem().(*listItem)
			if !ok {
				break
			}
			book, ok := item.internal.(*catalog.Book)
			if !ok {
				break
			}
			if book.PDFURL == nil || *book.PDFURL == "" {
				return b, ui.Notify("No PDF for " + book.Title)
			}
			if err := open.Start(*book.PDFURL); err != nil {
				return b, ui.Notify(err.Error())
			}
			return b, ui.Notify("Opened " + book.Title)
		}
	}

	b.booksC, cmd = b.booksC.Update(msg)
	return b, cmd
}

func (b *statefulBubble) updateLive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case bubblesKey.Matches(msg, b.keymap.refresh):
			return b, b.loadLive()
		case bubblesKey.Matches(msg, b.keymap.play):
			item, ok := b.liveC.SelectedItem().(*listItem)
			if !ok {
				break
			}
			lecture, ok := item.internal.(*live.Lecture)
			if !ok {
				break
			}

			info := live.Evaluate(*lecture, time.Now())
			if !info.CanJoin() {
				return b, ui.Notify(info.Message)
			}
			b.playlist = nil
			return b, b.watch(lecture.VideoURL, lecture.Title, mo.None[history.Entry]())
		}
	}

	b.liveC, cmd = b.liveC.Update(msg)
	return b, cmd
}

func (b *statefulBubble) updateHistory(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case historyLoadedMsg:
		return b, b.historyC.SetItems(historyItems(msg))
	case tea.KeyMsg:
		if b.historyC.FilterState() == list.Filtering {
			break
		}

		item, ok := b.historyC.SelectedItem().(*listItem)
		if !ok {
			break
		}
		entry, ok := item.internal.(*history.Entry)
		if !ok {
			break
		}

		switch {
		case bubblesKey.Matches(msg, b.keymap.play):
			b.playlist = nil
			return b, b.watch(entry.URL, entry.Title, mo.Some(*entry))
		case bubblesKey.Matches(msg, b.keymap.remove):
			return b, b.removeHistory(entry.LectureID)
		}
	}

	b.historyC, cmd = b.historyC.Update(msg)
	return b, cmd
}

func (b *statefulBubble) updatePlayer(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		session := b.session
		if session == nil {
			break
		}

		switch {
		case bubblesKey.Matches(msg, b.keymap.playPause):
			return b, control(session.TogglePlay)
		case bubblesKey.Matches(msg, b.keymap.mute):
			return b, control(session.ToggleMute)
		case bubblesKey.Matches(msg, b.keymap.fullscreen):
			return b, control(session.ToggleFullscreen)
		case bubblesKey.Matches(msg, b.keymap.retry):
			if b.snapshot.LoadErr == nil {
				return b, nil
			}
			b.resumed = 0
			return b, control(session.Retry)
		case bubblesKey.Matches(msg, b.keymap.next):
			if b.playlist == nil || !b.playlist.HasNext() {
				return b, ui.Notify("This is the last lecture")
			}
			return b, control(func() error {
				session.Next()
				return nil
			})
		case bubblesKey.Matches(msg, b.keymap.previous):
			if b.playlist == nil || !b.playlist.HasPrevious() {
				return b, ui.Notify("This is the first lecture")
			}
			return b, control(func() error {
				session.Previous()
				return nil
			})
		case bubblesKey.Matches(msg, b.keymap.quit):
			return b, tea.Quit
		}
	}

	b.spinnerC, cmd = b.spinnerC.Update(msg)
	return b, cmd
}

func (b *statefulBubble) updateError(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case bubblesKey.Matches(msg, b.keymap.quit):
			return b, tea.Quit
		case bubblesKey.Matches(msg, b.keymap.back):
			b.previousState()
			return b, nil
		}
	}
	return b, nil
}

func batchItems(batches []catalog.Batch) []list.Item {
	return lo.Map(batches, func(batch catalog.Batch, _ int) list.Item {
		return &listItem{internal: &batch}
	})
}

func historyItems(entries []*history.Entry) []list.Item {
	return lo.Map(entries, func(e *history.Entry, _ int) list.Item {
		return &listItem{internal: e, marked: e.Completed()}
	})
}

func liveItems(lectures []live.Lecture) []list.Item {
	return lo.Map(lectures, func(l live.Lecture, _ int) list.Item {
		return &listItem{internal: &l}
	})
}
