package hls

import "sync"

// worker runs demux output writes on its own goroutine so the fetch loop
// never waits on segment muxing.
type worker struct {
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

func newWorker(size int) *worker {
	w := &worker{
		tasks: make(chan func(), size),
		done:  make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *worker) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case task := <-w.tasks:
			task()
		}
	}
}

// submit queues task, blocking while the queue is full. It reports false once stopped.
func (w *worker) submit(task func()) bool {
	select {
	case <-w.done:
		return false
	default:
	}

	select {
	case w.tasks <- task:
		return true
	case <-w.done:
		return false
	}
}

// stop discards queued tasks and waits for the running one.
func (w *worker) stop() {
	w.once.Do(func() { close(w.done) })
	w.wg.Wait()
}
