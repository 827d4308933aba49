/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPromMetrics(t *testing.T) {
	pm := NewPrometheus()
	require.NotNil(t, pm)

	pm.OutboxPostTime(100 * time.Millisecond)
	pm.OutboxResolveInboxTime(50 * time.Millisecond)
	pm.DeliveryQueueSize(3)
	pm.DeliverySucceeded()
	pm.DeliveryFailed()
	pm.InboxHandlerTime("Follow", 10*time.Millisecond)

	rw := httptest.NewRecorder()
	pm.HTTPHandler().ServeHTTP(rw, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rw.Code)
	require.Contains(t, rw.Body.String(), "fedipress_outbox_queue_size 3")
	require.Contains(t, rw.Body.String(), "fedipress_outbox_delivered_total 1")
}

func TestNoOp(t *testing.T) {
	m := NewNoOp()

	require.NotPanics(t, func() {
		m.OutboxPostTime(time.Second)
		m.OutboxResolveInboxTime(time.Second)
		m.DeliveryQueueSize(1)
		m.DeliverySucceeded()
		m.DeliveryFailed()
		m.InboxHandlerTime("Like", time.Second)
	})
}
