package store

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Loop runs deferred tasks one at a time, in FIFO order, on a dedicated
// goroutine. Work scheduled from inside a dispatch never runs on the
// dispatching call stack.
type Loop struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []func()
	pending int
	closed  bool
	done    chan struct{}
	logger  *zap.Logger
}

// NewLoop starts a loop. Call Close to stop it.
func NewLoop(logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loop{done: make(chan struct{}), logger: logger}
	l.cond = sync.NewCond(&l.mu)
	go l.run()
	return l
}

// Defer schedules fn. Returns false if the loop is closed.
func (l *Loop) Defer(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.tasks = append(l.tasks, fn)
	l.pending++
	l.cond.Broadcast()
	return true
}

// Flush blocks until every scheduled task, including tasks scheduled by
// running tasks, has finished. Must not be called from a loop task.
func (l *Loop) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.pending > 0 {
		l.cond.Wait()
	}
}

// Close runs the remaining tasks and stops the loop. Tasks deferred after
// Close are dropped.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	l.cond.Broadcast()
	l.mu.Unlock()
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		for len(l.tasks) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.tasks) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
		l.mu.Unlock()

		l.exec(fn)

		l.mu.Lock()
		l.pending--
		if l.pending == 0 {
			l.cond.Broadcast()
		}
		l.mu.Unlock()
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("deferred task panicked", zap.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}
