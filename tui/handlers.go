// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/padhai-cli/padhai/catalog"
	"github.com/padhai-cli/padhai/history"
	"github.com/padhai-cli/padhai/internal/stage"
	"github.com/padhai-cli/padhai/internal/ui"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/live"
	"github.com/padhai-cli/padhai/playback"
	"github.com/padhai-cli/padhai/player"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

const (
	liveTickInterval = 30 * time.Second
	saveInterval     = 15.0

	enrollNotice = "Please enroll in the batch to access this lecture"
)

type (
	batchesLoadedMsg []catalog.Batch
	booksLoadedMsg   []catalog.Book
	liveLoadedMsg    []live.Lecture
	historyLoadedMsg []*history.Entry
	liveTickMsg      time.Time
	navigateMsg      int
	playerExitMsg    struct{}
)

type lecturesLoadedMsg struct {
	batch    catalog.Batch
	enrolled bool
	grouped  []catalog.SubjectLectures
	watched  map[string]*history.Entry
}

type enrolledMsg struct {
	batch catalog.Batch
}

type snapshotMsg struct {
	session  *playback.Session
	snapshot playback.Snapshot
}

type progressMsg struct {
	pos, duration float64
}

func (b *statefulBubble) loadBatches() tea.Cmd {
	return func() tea.Msg {
		batches, err := b.store.ActiveBatches(b.ctx)
		if err != nil {
			return fmt.Errorf("loading batches: %w", err)
		}
		return batchesLoadedMsg(batches)
	}
}

func (b *statefulBubble) loadLectures(batch catalog.Batch) tea.Cmd {
	return func() tea.Msg {
		var enrolled bool
		if b.options.UserID != "" {
			var err error
			enrolled, err = b.store.Enrolled(b.ctx, b.options.UserID, batch.ID)
			if err != nil {
				return err
			}
		}

		grouped, err := b.store.LecturesBySubject(b.ctx, batch.ID)
		if err != nil {
			return fmt.Errorf("loading lectures of %s: %w", batch.Name, err)
		}

		watched, err := history.Get()
		if err != nil {
			b.log.WithError(err).Warn("reading history")
			watched = nil
		}

		return lecturesLoadedMsg{
			batch:    batch,
			enrolled: enrolled,
			grouped:  grouped,
			watched:  watched,
		}
	}
}

func (b *statefulBubble) loadBooks(batch catalog.Batch) tea.Cmd {
	return func() tea.Msg {
		books, err := b.store.Books(b.ctx, batch.ID)
		if err != nil {
			return fmt.Errorf("loading books of %s: %w", batch.Name, err)
		}
		return booksLoadedMsg(books)
	}
}

func (b *statefulBubble) enroll(batch catalog.Batch) tea.Cmd {
	return func() tea.Msg {
		if b.options.UserID == "" {
			return ui.NotificationMsg(fmt.Sprintf("Set %s to enroll", key.UserID))
		}

		_, err := b.store.Enroll(b.ctx, b.options.UserID, batch.ID)
		switch {
		case errors.Is(err, catalog.ErrAlreadyEnrolled):
			return ui.NotificationMsg("Already enrolled in " + batch.Name)
		case err != nil:
			return err
		}
		return enrolledMsg{batch: batch}
	}
}

func (b *statefulBubble) loadLive() tea.Cmd {
	return func() tea.Msg {
		lectures, err := b.liveStore.Load()
		if err != nil {
			return fmt.Errorf("loading live schedule: %w", err)
		}
		return liveLoadedMsg(lectures)
	}
}

// watchLive pushes the schedule whenever the file changes on disk.
func (b *statefulBubble) watchLive() tea.Cmd {
	return func() tea.Msg {
		debounce := viper.GetDuration(key.LiveRefreshDebounce)
		err := live.Watch(b.ctx, b.liveStore, debounce, func(lectures []live.Lecture, err error) {
			if err != nil {
				b.send(ui.NotificationMsg("Live schedule could not be reloaded"))
				return
			}
			b.send(liveLoadedMsg(lectures))
		})
		if err != nil {
			b.log.WithError(err).Warn("live schedule will not refresh")
		}
		return nil
	}
}

// tickLive re-evaluates live statuses as time passes.
func tickLive() tea.Cmd {
	return tea.Tick(liveTickInterval, func(t time.Time) tea.Msg {
		return liveTickMsg(t)
	})
}

func (b *statefulBubble) loadHistory() tea.Cmd {
	return func() tea.Msg {
		entries, err := history.List()
		if err != nil {
			return err
		}
		return historyLoadedMsg(entries)
	}
}

func (b *statefulBubble) removeHistory(lectureID string) tea.Cmd {
	return func() tea.Msg {
		if err := history.Remove(lectureID); err != nil {
			return err
		}
		return b.loadHistory()()
	}
}

// openPlayer creates the stage and a session when none is open.
func (b *statefulBubble) openPlayer() error {
	if b.stage == nil {
		st, err := stage.New(nil)
		if err != nil {
			return err
		}
		b.stage = st
	}

	if b.session != nil {
		return nil
	}

	session, err := b.stage.Session(
		func() { b.send(navigateMsg(1)) },
		func() { b.send(navigateMsg(-1)) },
	)
	if err != nil {
		return err
	}

	snapshots, err := stage.Snapshots(session)
	if err != nil {
		_ = session.Unmount()
		return err
	}

	b.session = session
	b.snapshots = snapshots
	b.snapshot = playback.Snapshot{}
	b.resumed = 0
	b.playerExit = nil
	b.busy = false

	b.pending = append(b.pending, waitForSnapshot(session, snapshots))
	return nil
}

// watch mounts url on the open session. When entry is present the
// lecture is resumed from and recorded to the watch history.
func (b *statefulBubble) watch(url, title string, entry mo.Option[history.Entry]) tea.Cmd {
	if err := b.openPlayer(); err != nil {
		b.raiseError(err)
		return nil
	}

	b.watching = entry
	b.position, b.duration, b.lastSaved, b.resumeAt = 0, 0, 0, 0

	var record tea.Cmd
	if e, ok := entry.Get(); ok {
		saved, found, err := history.Find(e.LectureID)
		switch {
		case err != nil:
			b.log.WithError(err).Warn("reading history")
		case found:
			b.resumeAt = saved.ResumeAt()
		default:
			record = func() tea.Msg {
				if err := history.Record(e, 0, 0); err != nil {
					b.log.WithError(err).Warn("saving history")
				}
				return nil
			}
		}
	}

	b.newState(playerState)
	b.progressStatus = "Opening " + title

	session, ref := b.session, b.stage.Resolve(url)
	mount := func() tea.Msg {
		if err := session.Mount(ref, title); err != nil {
			return err
		}
		return nil
	}

	cmds := append(b.pending, mount, record, b.spinnerC.Tick)
	b.pending = nil
	return tea.Batch(cmds...)
}

// watchLecture plays a catalog lecture, enforcing enrollment.
func (b *statefulBubble) watchLecture(item *lectureItem) tea.Cmd {
	if catalog.CanWatch(item.lecture, b.enrolled) != nil {
		return ui.Notify(enrollNotice)
	}

	b.playlist = catalog.NewPlaylist(b.grouped, item.lecture.ID)
	return b.watch(item.lecture.URL(), item.lecture.Title, mo.Some(b.entryFor(item.lecture)))
}

func (b *statefulBubble) entryFor(lecture catalog.Lecture) history.Entry {
	entry := history.Entry{
		LectureID: lecture.ID,
		Title:     lecture.Title,
		URL:       lecture.URL(),
	}

	if batch, ok := b.selectedBatch.Get(); ok {
		entry.BatchID = batch.ID
		entry.BatchName = batch.Name
	}

	if group, ok := lo.Find(b.grouped, func(g catalog.SubjectLectures) bool {
		return g.Subject.ID == lecture.SubjectID
	}); ok {
		entry.Subject = group.Subject.Name
	}

	return entry
}

// navigate moves along the playlist after the session asked for it.
func (b *statefulBubble) navigate(step int) tea.Cmd {
	if b.session == nil || b.playlist == nil {
		return ui.Notify("Nothing to play next")
	}

	lecture, ok := b.playlist.Peek(step)
	if !ok {
		return ui.Notify("No more lectures")
	}

	if catalog.CanWatch(lecture, b.enrolled) != nil {
		return ui.Notify(enrollNotice)
	}
	b.playlist.Advance(step)

	save := b.recordProgress()
	return tea.Batch(save, b.watch(lecture.URL(), lecture.Title, mo.Some(b.entryFor(lecture))))
}

// recordProgress saves the position of the lecture being watched.
func (b *statefulBubble) recordProgress() tea.Cmd {
	entry, ok := b.watching.Get()
	if !ok || b.duration <= 0 {
		return nil
	}

	pos, duration := b.position, b.duration
	b.lastSaved = pos

	return func() tea.Msg {
		if err := history.Record(entry, pos, duration); err != nil {
			b.log.WithError(err).Warn("saving history")
			return ui.NotificationMsg("Could not save progress")
		}
		return nil
	}
}

// closeSession unmounts the session, saving progress first.
func (b *statefulBubble) closeSession() {
	if b.session == nil {
		return
	}

	if cmd := b.recordProgress(); cmd != nil {
		cmd()
	}

	b.stage.Player.StopProgress()
	if err := b.session.Unmount(); err != nil {
		b.log.WithError(err).Warn("unmounting session")
	}

	b.session = nil
	b.snapshots = nil
	b.snapshot = playback.Snapshot{}
	b.playlist = nil
	b.watching = mo.None[history.Entry]()
	b.pending = nil
}

// onSnapshot reacts to a session change. Once a native source is ready the
// saved position is restored and progress polling starts.
func (b *statefulBubble) onSnapshot(snap playback.Snapshot) tea.Cmd {
	b.snapshot = snap

	if snap.State != playback.StateMounted || !snap.Ready || snap.Ref.Kind.Iframe() || b.resumed == snap.Epoch {
		return nil
	}
	b.resumed = snap.Epoch

	var cmds []tea.Cmd

	b.stage.Player.StartProgress(func(pos, duration float64) {
		b.send(progressMsg{pos: pos, duration: duration})
	})

	if b.resumeAt > 0 {
		cmds = append(cmds, b.resume(b.resumeAt))
	}

	// only mpv lives as long as its window; IINA's launcher exits at once
	if mpv, isMPV := b.stage.Player.(*player.MPV); isMPV {
		if exit := mpv.Wait(); exit != b.playerExit {
			b.playerExit = exit
			cmds = append(cmds, waitForPlayerExit(exit))
		}
	}

	return tea.Batch(cmds...)
}

func (b *statefulBubble) onProgress(msg progressMsg) tea.Cmd {
	b.position, b.duration = msg.pos, msg.duration

	if b.duration > 0 {
		b.progressStatus = fmt.Sprintf("%s / %s", clock(b.position), clock(b.duration))
	}

	if b.position-b.lastSaved >= saveInterval || b.position < b.lastSaved {
		return b.recordProgress()
	}
	return nil
}

// control runs a session operation off the UI goroutine.
func control(fn func() error) tea.Cmd {
	return func() tea.Msg {
		switch err := fn(); {
		case err == nil:
			return nil
		case errors.Is(err, playback.ErrEmbedded):
			return ui.NotificationMsg("Use the browser controls for embedded videos")
		case errors.Is(err, playback.ErrNotReady):
			return ui.NotificationMsg("Still loading")
		default:
			return ui.NotificationMsg(err.Error())
		}
	}
}

func (b *statefulBubble) resume(pos float64) tea.Cmd {
	s, ctx := b.stage, b.ctx
	return func() tea.Msg {
		if err := s.Resume(ctx, pos); err != nil {
			b.log.WithError(err).Debug("resume")
			return nil
		}
		return ui.NotificationMsg("Resumed at " + clock(pos))
	}
}

func waitForSnapshot(session *playback.Session, snapshots <-chan playback.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-snapshots
		if !ok {
			return nil
		}
		return snapshotMsg{session: session, snapshot: snap}
	}
}

func waitForPlayerExit(exit <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-exit
		return playerExitMsg{}
	}
}

func clock(seconds float64) string {
	d := time.Duration(seconds) * time.Second
	h, m, s := int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// lectureItems flattens grouped lectures into list items.
func lectureItems(grouped []catalog.SubjectLectures, enrolled bool, watched map[string]*history.Entry) []list.Item {
	var items []list.Item
	for _, g := range grouped {
		for _, l := range g.Lectures {
			items = append(items, &listItem{
				internal: &lectureItem{
					lecture: l,
					subject: g.Subject.Name,
					locked:  catalog.CanWatch(l, enrolled) != nil,
					watched: watched[l.ID],
				},
				marked: watched[l.ID] != nil && watched[l.ID].Completed(),
			})
		}
	}
	return items
}
