package state

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Executor runs closures on the sequencing point that owns hub and engine
// state.
type Executor interface {
	Post(fn func())
}

// Queue is a single-consumer executor. Transport goroutines Post closures;
// Run executes them one at a time, in arrival order.
type Queue struct {
	ch   chan func()
	done chan struct{}
	once sync.Once
	log  *log.Logger
}

func NewQueue(size int, logger *log.Logger) *Queue {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Queue{
		ch:   make(chan func(), size),
		done: make(chan struct{}),
		log:  logger,
	}
}

// Post enqueues fn. It returns without running fn once Run has stopped.
func (q *Queue) Post(fn func()) {
	select {
	case <-q.done:
		return
	default:
	}
	select {
	case q.ch <- fn:
	case <-q.done:
	}
}

func (q *Queue) Run(ctx context.Context) {
	defer q.once.Do(func() { close(q.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-q.ch:
			q.exec(fn)
		}
	}
}

// Done is closed when Run returns.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

func (q *Queue) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.log.WithField("panic", r).Error("queued handler panicked")
		}
	}()
	fn()
}

// Inline runs closures immediately on the calling goroutine.
type Inline struct{}

func (Inline) Post(fn func()) { fn() }
