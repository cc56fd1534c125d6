// Package history records how far each lecture has been watched.
package history

import (
	"sort"
	"time"

	"github.com/metafates/gache"
	"github.com/padhai-cli/padhai/filesystem"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/where"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Entry is the saved progress of one lecture.
type Entry struct {
	LectureID string `json:"lecture_id"`
	Title     string `json:"title"`
	BatchID   string `json:"batch_id,omitempty"`
	BatchName string `json:"batch_name,omitempty"`
	Subject   string `json:"subject,omitempty"`
	URL       string `json:"url"`

	// Position is the last playback position in seconds.
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`

	// WatchedPercentage never decreases across saves.
	WatchedPercentage float64   `json:"watched_percentage"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Completed reports whether the lecture reached player.completion_percentage.
func (e *Entry) Completed() bool {
	return e.WatchedPercentage >= float64(viper.GetInt(key.PlayerCompletionPercentage))
}

// ResumeAt is the position to continue from, zero for completed lectures.
func (e *Entry) ResumeAt() float64 {
	if e.Completed() || e.Duration <= 0 {
		return 0
	}
	return e.Position
}

var cacher = gache.New[map[string]*Entry](
	&gache.Options{
		Path:       where.History(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// Get returns every entry keyed by lecture id.
func Get() (map[string]*Entry, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Entry), nil
	}
	return cached, nil
}

// List returns entries, most recently watched first.
func List() ([]*Entry, error) {
	saved, err := Get()
	if err != nil {
		return nil, err
	}

	entries := lo.Values(saved)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	return entries, nil
}

// Find returns the entry of a lecture.
func Find(lectureID string) (*Entry, bool, error) {
	saved, err := Get()
	if err != nil {
		return nil, false, err
	}
	entry, ok := saved[lectureID]
	return entry, ok, nil
}

// Save stores entry, keeping the highest percentage seen for the lecture.
func Save(entry Entry) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	if existing, ok := saved[entry.LectureID]; ok && existing.WatchedPercentage > entry.WatchedPercentage {
		entry.WatchedPercentage = existing.WatchedPercentage
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now()
	}

	saved[entry.LectureID] = &entry
	return cacher.Set(saved)
}

// Record saves a progress sample from the player when history.save is on.
func Record(entry Entry, pos, duration float64) error {
	if !viper.GetBool(key.HistorySave) {
		return nil
	}

	entry.Position = pos
	entry.Duration = duration
	if duration > 0 {
		entry.WatchedPercentage = min(100, pos/duration*100)
	}
	entry.UpdatedAt = time.Time{}
	return Save(entry)
}

// Remove deletes the entry of a lecture.
func Remove(lectureID string) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, lectureID)
	return cacher.Set(saved)
}

// Clear deletes every entry.
func Clear() error {
	return cacher.Set(make(map[string]*Entry))
}
