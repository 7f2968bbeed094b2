// Package dispatch provides the single execution context non-blocking
// drivers require: one goroutine that runs posted functions in arrival
// order. Driving a Device through a Loop, and posting every transport
// completion back to the same Loop, satisfies the driver's serialization
// contract without locks in the driver itself.
package dispatch

import "sync"

// Loop is a single-goroutine executor. Functions posted from any goroutine
// run one at a time, in order.
type Loop struct {
	funcs chan func()
	done  chan struct{}
	stop  sync.Once
}

// New starts the loop goroutine.
func New() *Loop {
	l := &Loop{
		funcs: make(chan func(), 64),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for f := range l.funcs {
		f()
	}
}

// Post enqueues f for the loop goroutine. Post must not be called after
// Stop.
func (l *Loop) Post(f func()) {
	l.funcs <- f
}

// Do posts f and blocks until it has run. Do must not be called from the
// loop goroutine itself.
func (l *Loop) Do(f func()) {
	ran := make(chan struct{})
	l.Post(func() {
		f()
		close(ran)
	})
	<-ran
}

// Stop lets queued work drain and joins the loop goroutine. Subsequent Stop
// calls are no-ops.
func (l *Loop) Stop() {
	l.stop.Do(func() { close(l.funcs) })
	<-l.done
}

// Await runs start on the loop and blocks until the sequence it begins
// resolves. start receives the completion callback to hand to the driver; a
// synchronous rejection from start resolves Await immediately with that
// error. Await must not be called from the loop goroutine.
func Await(l *Loop, start func(done func(error)) error) error {
	errs := make(chan error, 1)
	l.Post(func() {
		if err := start(func(err error) { errs <- err }); err != nil {
			errs <- err
		}
	})
	return <-errs
}
