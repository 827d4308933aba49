/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package taskmgr runs registered tasks periodically.
package taskmgr

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/fedipress/fedipress/internal/pkg/log"
	"github.com/fedipress/fedipress/pkg/lifecycle"
)

var logger = log.New("taskmgr")

const defaultCheckInterval = 10 * time.Second

// Manager runs registered tasks at their configured intervals. A task that
// is still running when its next interval elapses is skipped until it
// finishes.
type Manager struct {
	*lifecycle.Lifecycle

	interval time.Duration
	tasks    map[string]*registration
	done     chan struct{}
	mutex    sync.RWMutex
}

// New returns a new task manager that checks for runnable tasks at the given
// interval. Register each task with RegisterTask, then call Start.
func New(checkInterval time.Duration) *Manager {
	if checkInterval <= 0 {
		checkInterval = defaultCheckInterval
	}

	m := &Manager{
		interval: checkInterval,
		done:     make(chan struct{}),
		tasks:    make(map[string]*registration),
	}

	m.Lifecycle = lifecycle.New("taskmgr",
		lifecycle.WithStart(m.start),
		lifecycle.WithStop(m.stop))

	return m
}

// RegisterTask registers a task to be run periodically at the given interval.
func (m *Manager) RegisterTask(id string, interval time.Duration, task func()) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.tasks[id] = &registration{
		handle:   task,
		id:       id,
		interval: interval,
	}

	logger.Info("Registered task", log.WithTaskID(id))
}

func (m *Manager) getTasks() []*registration {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	tasks := make([]*registration, 0, len(m.tasks))

	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}

	return tasks
}

func (m *Manager) start() {
	go func() {
		logger.Info("Started task manager")

		for {
			select {
			case <-time.After(m.interval):
				for _, t := range m.getTasks() {
					if t.due() {
						go t.run()
					}
				}
			case <-m.done:
				logger.Debug("Stopped task manager")

				return
			}
		}
	}()
}

func (m *Manager) stop() {
	close(m.done)
}

type registration struct {
	handle   func()
	running  uint32
	id       string
	interval time.Duration
	lastRun  atomic.Value
}

func (r *registration) due() bool {
	lastRun, ok := r.lastRun.Load().(time.Time)

	return !ok || time.Since(lastRun) >= r.interval
}

func (r *registration) run() {
	if !atomic.CompareAndSwapUint32(&r.running, 0, 1) {
		// Still running from the previous interval.
		return
	}

	defer atomic.StoreUint32(&r.running, 0)

	logger.Debug("Running task", log.WithTaskID(r.id))

	r.handle()

	r.lastRun.Store(time.Now())
}
