package playback

import "sync"

// loop runs tasks one at a time on a dedicated goroutine.
// post never blocks, so callbacks fired while a task runs cannot deadlock.
type loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool

	wake chan struct{}
	done chan struct{}
}

func newLoop() *loop {
	l := &loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *loop) run() {
	defer close(l.done)

	for range l.wake {
		for {
			l.mu.Lock()
			if l.closed {
				l.queue = nil
				l.mu.Unlock()
				return
			}
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			task := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()

			task()
		}
	}
}

// post enqueues task and reports whether the loop accepted it.
func (l *loop) post(task func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// call runs task on the loop and waits for it to finish.
// It must not be used from inside a task.
func (l *loop) call(task func()) error {
	finished := make(chan struct{})
	if !l.post(func() {
		defer close(finished)
		task()
	}) {
		return ErrSessionClosed
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrSessionClosed
		}
	}
}

// shutdown stops the loop once the running task returns. Queued tasks are dropped.
func (l *loop) shutdown() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}
