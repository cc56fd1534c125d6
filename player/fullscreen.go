package player

import "sync"

// fullscreenWatch fans mpv fullscreen changes out to subscribers. The
// subscribers outlive a single mpv process: the observer is armed again on
// every start, and each subscriber hears false when the window goes away.
type fullscreenWatch struct {
	mu       sync.Mutex
	next     int
	subs     map[int]func(bool)
	listener *EventListener
}

func (w *fullscreenWatch) add(fn func(bool)) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.subs == nil {
		w.subs = make(map[int]func(bool))
	}
	w.next++
	w.subs[w.next] = fn
	return w.next
}

func (w *fullscreenWatch) remove(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.subs, id)
	if len(w.subs) == 0 && w.listener != nil {
		w.listener.Stop()
		w.listener = nil
	}
}

// arm observes the fullscreen property on socket unless nobody is
// subscribed or an observer is already active.
func (w *fullscreenWatch) arm(socket string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.subs) == 0 || w.listener != nil {
		return nil
	}

	listener := NewEventListener(socket, []string{"fullscreen"}, func(e Event) {
		if e.Name != "fullscreen" {
			return
		}
		if fullscreen, ok := e.Data.(bool); ok {
			w.dispatch(fullscreen)
		}
	})
	if err := listener.Start(); err != nil {
		return err
	}

	w.listener = listener
	return nil
}

// exited drops the observer of a process that is gone and reports that
// the window is no longer fullscreen.
func (w *fullscreenWatch) exited() {
	w.mu.Lock()
	if w.listener != nil {
		w.listener.Stop()
		w.listener = nil
	}
	w.mu.Unlock()

	w.dispatch(false)
}

func (w *fullscreenWatch) dispatch(fullscreen bool) {
	w.mu.Lock()
	subs := make([]func(bool), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.mu.Unlock()

	for _, fn := range subs {
		fn(fullscreen)
	}
}
