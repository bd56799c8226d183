package wssrc

import (
	"sync"
)

// A loopFunc is a long-running function, e.g. a read loop. It should terminate
// promptly when the quit channel is closed.
type loopFunc func(quit <-chan struct{})

// A singletonLoop runs a loopFunc in at most one goroutine at a time. start()
// launches it and stop() asks it to quit and waits until it has returned.
// Calls must alternate: start, stop, start, ...
type singletonLoop struct {
	run loopFunc

	// Closed when stop() is requested, to trigger run loop exit.
	quit chan struct{}

	// Closed when the run loop actually terminates.
	terminated chan struct{}

	sync.Mutex
}

func newSingletonLoop(run loopFunc) *singletonLoop {
	return &singletonLoop{
		run: run,
	}
}

func (loop *singletonLoop) start() {
	loop.Lock()
	defer loop.Unlock()

	if loop.quit != nil || loop.terminated != nil {
		panic("singletonLoop: already running")
	}
	loop.quit = make(chan struct{})
	loop.terminated = make(chan struct{})

	go func(quit <-chan struct{}, terminated chan<- struct{}) {
		log.Debug("Starting read loop")
		loop.run(quit)
		// Close terminated channel to unblock stop().
		close(terminated)
	}(loop.quit, loop.terminated)
}

func (loop *singletonLoop) stop() {
	loop.Lock()
	defer loop.Unlock()

	if loop.quit == nil || loop.terminated == nil {
		panic("singletonLoop: not running")
	}

	log.Debug("Stopping read loop")
	close(loop.quit)
	<-loop.terminated

	loop.quit = nil
	loop.terminated = nil
}

func (loop *singletonLoop) running() bool {
	loop.Lock()
	defer loop.Unlock()
	return loop.quit != nil
}
