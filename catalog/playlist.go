package catalog

import "github.com/samber/lo"

// Playlist walks the playable lectures of a batch in display order.
type Playlist struct {
	lectures []Lecture
	pos      int
}

// NewPlaylist flattens grouped lectures, skipping those without a video,
// and positions the cursor on currentID. An unknown id starts at the first lecture.
func NewPlaylist(grouped []SubjectLectures, currentID string) *Playlist {
	var lectures []Lecture
	for _, g := range grouped {
		lectures = append(lectures, lo.Filter(g.Lectures, func(l Lecture, _ int) bool {
			return l.URL() != ""
		})...)
	}

	_, pos, ok := lo.FindIndexOf(lectures, func(l Lecture) bool { return l.ID == currentID })
	if !ok {
		pos = 0
	}

	return &Playlist{lectures: lectures, pos: pos}
}

func (p *Playlist) Len() int {
	return len(p.lectures)
}

// Current is the lecture under the cursor.
func (p *Playlist) Current() (Lecture, bool) {
	if len(p.lectures) == 0 {
		return Lecture{}, false
	}
	return p.lectures[p.pos], true
}

func (p *Playlist) HasNext() bool {
	return p.pos+1 < len(p.lectures)
}

func (p *Playlist) HasPrevious() bool {
	return p.pos > 0 && len(p.lectures) > 0
}

// Peek returns the lecture step places from the cursor without moving it.
func (p *Playlist) Peek(step int) (Lecture, bool) {
	i := p.pos + step
	if len(p.lectures) == 0 || i < 0 || i >= len(p.lectures) {
		return Lecture{}, false
	}
	return p.lectures[i], true
}

// Advance moves the cursor step places, reporting false when that leaves
// the playlist. The cursor does not move then.
func (p *Playlist) Advance(step int) bool {
	if _, ok := p.Peek(step); !ok {
		return false
	}
	p.pos += step
	return true
}

// Next advances the cursor.
func (p *Playlist) Next() (Lecture, bool) {
	if !p.Advance(1) {
		return Lecture{}, false
	}
	return p.lectures[p.pos], true
}

// Previous moves the cursor back.
func (p *Playlist) Previous() (Lecture, bool) {
	if !p.Advance(-1) {
		return Lecture{}, false
	}
	return p.lectures[p.pos], true
}
