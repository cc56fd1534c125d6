package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/padhai-cli/padhai/filesystem"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/where"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

var ErrNotFound = errors.New("live lecture not found")

// Store is the JSON file holding the live schedule. Writes replace the file
// atomically so watchers never read a partial schedule.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath is live.file, or live.json in the config directory.
func DefaultPath() string {
	if path := viper.GetString(key.LiveFile); path != "" {
		return path
	}
	return where.Live()
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the schedule, ordered by scheduled time with unscheduled
// lectures last. A missing file is an empty schedule.
func (s *Store) Load() ([]Lecture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]Lecture, error) {
	data, err := afero.ReadFile(filesystem.API(), s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Lecture{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading live schedule: %w", err)
	}

	var lectures []Lecture
	if len(strings.TrimSpace(string(data))) > 0 {
		if err = json.Unmarshal(data, &lectures); err != nil {
			return nil, fmt.Errorf("decoding live schedule: %w", err)
		}
	}

	sortLectures(lectures)
	return lectures, nil
}

func sortLectures(lectures []Lecture) {
	sort.SliceStable(lectures, func(i, j int) bool {
		a, b := lectures[i].ScheduledTime, lectures[j].ScheduledTime
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

// Save replaces the schedule.
func (s *Store) Save(lectures []Lecture) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(lectures)
}

func (s *Store) save(lectures []Lecture) error {
	if lectures == nil {
		lectures = []Lecture{}
	}

	data, err := json.MarshalIndent(lectures, "", "  ")
	if err != nil {
		return err
	}
	return filesystem.WriteAtomic(s.path, data, 0o644)
}

// Add stores l with a fresh id and creation time.
func (s *Store) Add(l Lecture) (Lecture, error) {
	switch {
	case strings.TrimSpace(l.Title) == "":
		return l, errors.New("title is required")
	case strings.TrimSpace(l.VideoURL) == "":
		return l, errors.New("video URL is required")
	case strings.TrimSpace(l.Instructor) == "":
		return l, errors.New("instructor is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lectures, err := s.load()
	if err != nil {
		return l, err
	}

	l.ID = uuid.NewString()
	l.CreatedAt = time.Now()
	lectures = append(lectures, l)

	return l, s.save(lectures)
}

// Remove deletes the lecture with id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lectures, err := s.load()
	if err != nil {
		return err
	}

	kept := lectures[:0]
	for _, l := range lectures {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	if len(kept) == len(lectures) {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	return s.save(kept)
}
