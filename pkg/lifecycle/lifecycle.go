/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package lifecycle

import (
	"errors"
	"sync/atomic"

	"github.com/fedipress/fedipress/internal/pkg/log"
)

var logger = log.New("lifecycle")

// State is the state of a service.
type State = uint32

// Service states.
const (
	StateNotStarted State = 0
	StateStarting   State = 1
	StateStarted    State = 2
	StateStopped    State = 3
)

// ErrNotStarted indicates that an operation was invoked on a service that has
// not yet been started.
var ErrNotStarted = errors.New("service has not started")

// Lifecycle implements the lifecycle of a service, i.e. Start and Stop.
type Lifecycle struct {
	name  string
	state uint32
	start func()
	stop  func()
}

// Opt sets a Lifecycle option.
type Opt func(l *Lifecycle)

// WithStart sets the start function which is invoked when Start() is called.
func WithStart(start func()) Opt {
	return func(l *Lifecycle) {
		l.start = start
	}
}

// WithStop sets the stop function which is invoked when Stop() is called.
func WithStop(stop func()) Opt {
	return func(l *Lifecycle) {
		l.stop = stop
	}
}

// New returns a new Lifecycle.
func New(name string, opts ...Opt) *Lifecycle {
	l := &Lifecycle{
		name:  name,
		start: func() {},
		stop:  func() {},
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Start starts the service.
func (h *Lifecycle) Start() {
	if !atomic.CompareAndSwapUint32(&h.state, StateNotStarted, StateStarting) {
		logger.Debug("Service already started", log.WithServiceName(h.name))

		return
	}

	h.start()

	atomic.StoreUint32(&h.state, StateStarted)
}

// Stop stops the service.
func (h *Lifecycle) Stop() {
	if !atomic.CompareAndSwapUint32(&h.state, StateStarted, StateStopped) {
		logger.Debug("Service already stopped", log.WithServiceName(h.name))

		return
	}

	h.stop()
}

// State returns the state of the service.
func (h *Lifecycle) State() State {
	return atomic.LoadUint32(&h.state)
}
