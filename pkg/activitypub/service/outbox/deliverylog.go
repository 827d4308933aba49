/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package outbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fedipress/fedipress/internal/pkg/log"
)

// logRecord is one NDJSON line in a task's delivery log.
type logRecord struct {
	Recipient string    `json:"recipient"`
	Inbox     string    `json:"inbox,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// deliveryLog appends per-recipient delivery outcomes to one NDJSON file per
// task.
type deliveryLog struct {
	dir string
}

func newDeliveryLog(dir string) *deliveryLog {
	return &deliveryLog{dir: dir}
}

func (l *deliveryLog) Append(taskID string, record *logRecord) {
	if err := l.append(taskID, record); err != nil {
		logger.Warn("Error writing delivery log", log.WithTaskID(taskID), log.WithError(err))
	}
}

func (l *deliveryLog) append(taskID string, record *logRecord) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create delivery log directory: %w", err)
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal delivery log record: %w", err)
	}

	f, err := os.OpenFile(l.path(taskID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open delivery log: %w", err)
	}

	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write delivery log: %w", err)
	}

	return nil
}

func (l *deliveryLog) Remove(taskID string) {
	if err := os.Remove(l.path(taskID)); err != nil && !os.IsNotExist(err) {
		logger.Warn("Error removing delivery log", log.WithTaskID(taskID), log.WithError(err))
	}
}

func (l *deliveryLog) path(taskID string) string {
	return filepath.Join(l.dir, taskID+".log")
}
