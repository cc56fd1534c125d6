// Package live keeps the schedule of live lectures and works out whether
// each one can be joined right now.
package live

import (
	"fmt"
	"time"

	"github.com/padhai-cli/padhai/util"
)

// Lecture is a scheduled or ongoing live class.
type Lecture struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	VideoURL      string     `json:"videoUrl"`
	Instructor    string     `json:"instructor"`
	IsLive        bool       `json:"isLive"`
	ScheduledTime *time.Time `json:"scheduledTime,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Initials is the instructor avatar text.
func (l Lecture) Initials() string {
	return util.Initials(l.Instructor)
}

type Status int

const (
	Offline Status = iota
	Upcoming
	Live
)

func (s Status) String() string {
	switch s {
	case Upcoming:
		return "upcoming"
	case Live:
		return "live"
	default:
		return "offline"
	}
}

// liveWindow is how long after its scheduled start a lecture counts as live.
const liveWindow = time.Hour

// Info is the computed status of a lecture at some instant.
type Info struct {
	Status  Status
	Message string
	// Time is the scheduled start as HH:MM local time, empty when unscheduled.
	Time string
}

// CanJoin reports whether the lecture can be played now.
func (i Info) CanJoin() bool {
	return i.Status == Live
}

// Evaluate works out the status of l at now.
func Evaluate(l Lecture, now time.Time) Info {
	var at string
	if l.ScheduledTime != nil {
		at = l.ScheduledTime.Local().Format("15:04")

		diff := l.ScheduledTime.Sub(now)
		switch {
		case diff > 0:
			hours := int(diff / time.Hour)
			minutes := int(diff % time.Hour / time.Minute)
			return Info{Status: Upcoming, Message: fmt.Sprintf("Starts in %dh %dm", hours, minutes), Time: at}
		case diff > -liveWindow:
			return Info{Status: Live, Message: "Live Now", Time: at}
		}
	}

	if l.IsLive {
		return Info{Status: Live, Message: "Available Now", Time: at}
	}
	return Info{Status: Offline, Message: "Offline", Time: at}
}
