package mini

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/padhai-cli/padhai/catalog"
	"github.com/padhai-cli/padhai/history"
	"github.com/padhai-cli/padhai/icon"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/playback"
	"github.com/padhai-cli/padhai/player"
	"github.com/padhai-cli/padhai/query"
	"github.com/padhai-cli/padhai/style"
	"github.com/padhai-cli/padhai/util"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

type state int

const (
	batchesSearchState state = iota + 1
	batchSelectState
	lectureSelectState
	watchState
	historySelectState
	quitState
)

const enrollNotice = "Please enroll in the batch to access this lecture"

func (m *mini) handleBatchesSearchState() error {
	if m.batches == nil {
		erase := progress("Fetching batches..")
		batches, err := m.store.ActiveBatches(m.ctx)
		erase()
		if err != nil {
			return err
		}
		m.batches = batches
	}

	title("Search Batches")
	q, err := getInput("Search (empty lists all)", func(string) bool { return true }, query.SuggestMany)
	if err != nil {
		return err
	}

	found := limit(catalog.Search(m.batches, q), viper.GetInt(key.MiniSearchLimit))
	if len(found) == 0 {
		fail("No batches found")
		return nil
	}

	if err := query.Remember(q, 1); err != nil {
		m.log.WithError(err).Warn("remember search")
	}

	m.query = q
	m.found = found
	m.newState(batchSelectState)
	return nil
}

func (m *mini) handleBatchSelectState() error {
	header := "Batches >>"
	if m.query != "" {
		header = fmt.Sprintf("Results for %q >>", m.query)
	}
	title(header)

	b, batch, err := menu(m.found, batchLabel, search)
	if err != nil {
		return err
	}

	switch {
	case quit.eq(b):
		m.newState(quitState)
	case search.eq(b):
		m.previousState()
	default:
		m.selectedBatch = &batch
		m.newState(lectureSelectState)
	}

	return nil
}

func (m *mini) handleLectureSelectState() error {
	batch := m.selectedBatch

	erase := progress("Fetching lectures..")
	grouped, err := m.store.LecturesBySubject(m.ctx, batch.ID)
	if err == nil && m.userID != "" {
		m.enrolled, err = m.store.Enrolled(m.ctx, m.userID, batch.ID)
	}
	erase()
	if err != nil {
		return err
	}
	m.grouped = grouped

	lectures := flatten(grouped)
	if len(lectures) == 0 {
		fail("No lectures in this batch yet")
		m.previousState()
		return nil
	}

	title(batch.Name + " >>")

	var binds []*bind
	if !m.enrolled {
		binds = append(binds, enroll)
	}
	binds = append(binds, back)

	b, lecture, err := menu(lectures, func(l subjectLecture) string {
		return lectureLabel(l, m.enrolled)
	}, binds...)
	if err != nil {
		return err
	}

	switch {
	case quit.eq(b):
		m.newState(quitState)
		return nil
	case back.eq(b):
		m.previousState()
		return nil
	case enroll.eq(b):
		return m.enroll()
	}

	if catalog.CanWatch(lecture.Lecture, m.enrolled) != nil {
		fail(enrollNotice)
		return nil
	}

	m.playlist = catalog.NewPlaylist(grouped, lecture.ID)
	m.watching = m.entryFor(lecture.Lecture)
	m.newState(watchState)
	return nil
}

func (m *mini) enroll() error {
	if m.userID == "" {
		fail("Set " + key.UserID + " to enroll in batches")
		return nil
	}

	ok, err := confirm(fmt.Sprintf("Enroll in %s for %s?", m.selectedBatch.Name, m.selectedBatch.PriceLabel()))
	if err != nil || !ok {
		return err
	}

	_, err = m.store.Enroll(m.ctx, m.userID, m.selectedBatch.ID)
	switch {
	case errors.Is(err, catalog.ErrAlreadyEnrolled):
		fail("You are already enrolled in this batch")
	case err != nil:
		return err
	default:
		fmt.Println(style.Fg(style.SuccessColor)(icon.Get(icon.Success) + " Enrolled in " + m.selectedBatch.Name))
	}

	return nil
}

func (m *mini) entryFor(lecture catalog.Lecture) history.Entry {
	entry := history.Entry{
		LectureID: lecture.ID,
		Title:     lecture.Title,
		URL:       lecture.URL(),
	}

	if m.selectedBatch != nil {
		entry.BatchID = m.selectedBatch.ID
		entry.BatchName = m.selectedBatch.Name
	}

	if group, ok := lo.Find(m.grouped, func(g catalog.SubjectLectures) bool {
		return g.Subject.ID == lecture.SubjectID
	}); ok {
		entry.Subject = group.Subject.Name
	}

	return entry
}

// position is the last reported playback clock.
type position struct {
	mu            sync.Mutex
	pos, duration float64
}

func (p *position) set(pos, duration float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos, p.duration = pos, duration
}

func (p *position) get() (pos, duration float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos, p.duration
}

func (m *mini) handleWatchState() error {
	if err := m.ensureStage(); err != nil {
		return err
	}

	var step int
	onNext, onPrevious := func() { step = 1 }, func() { step = -1 }
	if m.playlist == nil {
		onNext, onPrevious = nil, nil
	}

	session, err := m.stage.Session(onNext, onPrevious)
	if err != nil {
		return err
	}

	clock := &position{}
	defer func() {
		m.stopWatching(clock)
		if err := session.Unmount(); err != nil {
			m.log.WithError(err).Warn("unmount")
		}
	}()

	if err := m.mount(session, clock); err != nil {
		return err
	}

	for {
		snap, err := session.Snapshot()
		if err != nil {
			return err
		}

		title("Now playing >>")
		fmt.Println(describe(snap))

		b, _, err := menu([]string{}, nil, m.controls(snap)...)
		if err != nil {
			return err
		}

		if !quit.eq(b) && m.playerClosed() {
			fail("Player closed")
			m.previousState()
			return nil
		}

		step = 0
		switch {
		case quit.eq(b):
			m.newState(quitState)
			return nil
		case back.eq(b):
			m.previousState()
			return nil
		case refresh.eq(b):
		case toggle.eq(b):
			err = session.TogglePlay()
		case mute.eq(b):
			err = session.ToggleMute()
		case fullscreen.eq(b):
			err = session.ToggleFullscreen()
		case retry.eq(b):
			err = session.Retry()
		case next.eq(b):
			session.Next()
		case prev.eq(b):
			session.Previous()
		}

		switch {
		case errors.Is(err, playback.ErrEmbedded):
			fail("Use the browser controls for embedded videos")
		case errors.Is(err, playback.ErrNotReady):
			fail("The video is still loading")
		case err != nil:
			return err
		}

		if step != 0 {
			if err := m.step(step, session, clock); err != nil {
				return err
			}
		}
	}
}

// step moves along the playlist and mounts the lecture found there.
func (m *mini) step(direction int, session *playback.Session, clock *position) error {
	lecture, ok := m.playlist.Peek(direction)
	if !ok {
		fail("No more lectures")
		return nil
	}

	if catalog.CanWatch(lecture, m.enrolled) != nil {
		fail(enrollNotice)
		return nil
	}
	m.playlist.Advance(direction)

	m.stopWatching(clock)
	m.watching = m.entryFor(lecture)
	return m.mount(session, clock)
}

// mount opens the entry being watched and resumes it where it was left.
func (m *mini) mount(session *playback.Session, clock *position) error {
	entry := m.watching
	clock.set(0, 0)

	var resumeAt float64
	saved, found, err := history.Find(entry.LectureID)
	switch {
	case err != nil:
		m.log.WithError(err).Warn("reading history")
	case found:
		resumeAt = saved.ResumeAt()
	default:
		if err := history.Record(entry, 0, 0); err != nil {
			m.log.WithError(err).Warn("saving history")
		}
	}

	ref := m.stage.Resolve(entry.URL)
	if err := session.Mount(ref, entry.Title); err != nil {
		return err
	}

	m.playerExit = nil
	if ref.Kind.Iframe() || ref.URL == "" {
		return nil
	}

	// only mpv lives as long as its window; IINA's launcher exits at once
	if mpv, isMPV := m.stage.Player.(*player.MPV); isMPV {
		m.playerExit = mpv.Wait()
	}

	m.stage.Player.StartProgress(clock.set)
	if resumeAt > 0 {
		go func() {
			if err := m.stage.Resume(m.ctx, resumeAt); err != nil {
				m.log.WithError(err).Debug("resume")
			}
		}()
	}

	return nil
}

// playerClosed reports whether the window of the mounted video was closed.
func (m *mini) playerClosed() bool {
	if m.playerExit == nil {
		return false
	}
	select {
	case <-m.playerExit:
		return true
	default:
		return false
	}
}

// stopWatching saves how far the current lecture got.
func (m *mini) stopWatching(clock *position) {
	m.stage.Player.StopProgress()

	pos, duration := clock.get()
	if duration <= 0 {
		return
	}

	if err := history.Record(m.watching, pos, duration); err != nil {
		m.log.WithError(err).Warn("saving history")
	}
}

func (m *mini) controls(snap playback.Snapshot) []*bind {
	var binds []*bind

	switch {
	case snap.LoadErr != nil:
		binds = append(binds, retry)
	case snap.Ready && !snap.Ref.Kind.Iframe():
		binds = append(binds, toggle, mute, fullscreen)
	default:
		binds = append(binds, refresh)
	}

	if m.playlist != nil {
		if m.playlist.HasNext() {
			binds = append(binds, next)
		}
		if m.playlist.HasPrevious() {
			binds = append(binds, prev)
		}
	}

	return append(binds, back)
}

func (m *mini) handleHistorySelectState() error {
	entries, err := history.List()
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fail("Nothing watched yet")
		m.newState(batchesSearchState)
		return nil
	}

	title("Continue Watching >>")
	b, entry, err := menu(entries, entryLabel, search)
	if err != nil {
		return err
	}

	switch {
	case quit.eq(b):
		m.newState(quitState)
		return nil
	case search.eq(b):
		m.newState(batchesSearchState)
		return nil
	}

	m.playlist = nil
	m.watching = *entry
	m.newState(watchState)
	return nil
}

// subjectLecture is a lecture with the name of its subject.
type subjectLecture struct {
	catalog.Lecture
	subject string
}

func flatten(grouped []catalog.SubjectLectures) []subjectLecture {
	var lectures []subjectLecture
	for _, g := range grouped {
		for _, l := range g.Lectures {
			lectures = append(lectures, subjectLecture{Lecture: l, subject: g.Subject.Name})
		}
	}
	return lectures
}

func limit[T any](items []T, n int) []T {
	if n <= 0 {
		return items
	}
	return items[:util.Min(len(items), n)]
}

func batchLabel(b catalog.Batch) string {
	parts := []string{b.Name, b.PriceLabel()}
	if weeks := lo.FromPtr(b.DurationWeeks); weeks > 0 {
		parts = append(parts, util.Quantify(weeks, "week", "weeks"))
	}
	return strings.Join(parts, " • ")
}

func lectureLabel(l subjectLecture, enrolled bool) string {
	var b strings.Builder

	if catalog.CanWatch(l.Lecture, enrolled) != nil && l.URL() != "" {
		b.WriteString(icon.Get(icon.Lock) + " ")
	}

	b.WriteString(l.subject + ": " + l.Title)

	switch {
	case l.URL() == "":
		b.WriteString(" (no video)")
	case l.Free():
		b.WriteString(" (free)")
	}

	return b.String()
}

func entryLabel(e *history.Entry) string {
	label := e.Title
	if e.BatchName != "" {
		label = e.BatchName + " • " + label
	}

	if e.Completed() {
		return label + " (watched)"
	}
	return fmt.Sprintf("%s (%.0f%%)", label, e.WatchedPercentage)
}

func describe(snap playback.Snapshot) string {
	name := style.Bold(snap.Title)
	if snap.State != playback.StateMounted {
		return name
	}

	status := snap.Ref.Kind.Label()
	switch {
	case snap.LoadErr != nil:
		status = style.Error("failed: " + snap.LoadErr.Err.Error())
	case snap.Placeholder:
		status = "no video available"
	case snap.Ref.Kind.Iframe():
		status += ", opened in your browser"
	case !snap.Ready:
		status += ", loading"
	case snap.Playing:
		status += ", playing"
	default:
		status += ", paused"
	}

	if snap.Muted {
		status += ", muted"
	}

	return name + "\n" + style.Faint(status)
}
