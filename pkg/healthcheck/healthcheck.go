/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package healthcheck provides a /healthcheck endpoint reporting the health
// of the server's dependencies: the ActivityPub store and the delivery
// queue.
package healthcheck

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fedipress/fedipress/internal/pkg/log"
	"github.com/fedipress/fedipress/pkg/httpserver"
	"github.com/fedipress/fedipress/pkg/lifecycle"
	"github.com/fedipress/fedipress/pkg/restapi/common"
)

var logger = log.New("healthcheck")

const (
	healthCheckEndpoint = "/healthcheck"

	statusSuccess    = "success"
	statusNotStarted = "not started"
)

type store interface {
	GetActorHandles() ([]string, error)
}

type deliveryQueue interface {
	State() lifecycle.State
}

// Handler implements the health check HTTP handler.
type Handler struct {
	store store
	queue deliveryQueue
}

// NewHandler returns a new health check handler.
func NewHandler(s store, queue deliveryQueue) *Handler {
	return &Handler{store: s, queue: queue}
}

// Method returns the HTTP method.
func (h *Handler) Method() string {
	return http.MethodGet
}

// Path returns the base path of the target URL for this handler.
func (h *Handler) Path() string {
	return healthCheckEndpoint
}

// Handler returns the HTTP request handler.
func (h *Handler) Handler() common.HTTPRequestHandler {
	return h.checkHealth
}

type response struct {
	Status        string    `json:"status"`
	StoreStatus   string    `json:"storeStatus"`
	OutboxStatus  string    `json:"outboxStatus"`
	CurrentTime   time.Time `json:"currentTime"`
	ServerVersion string    `json:"version,omitempty"`
}

func (h *Handler) checkHealth(rw http.ResponseWriter, _ *http.Request) {
	storeStatus := statusSuccess
	outboxStatus := statusSuccess
	status := http.StatusOK

	if _, err := h.store.GetActorHandles(); err != nil {
		storeStatus = err.Error()
		status = http.StatusServiceUnavailable
	}

	if h.queue.State() != lifecycle.StateStarted {
		outboxStatus = statusNotStarted
		status = http.StatusServiceUnavailable
	}

	hc := &response{
		Status:        statusSuccess,
		StoreStatus:   storeStatus,
		OutboxStatus:  outboxStatus,
		CurrentTime:   time.Now(),
		ServerVersion: httpserver.BuildVersion,
	}

	if status != http.StatusOK {
		hc.Status = "unavailable"
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	if err := json.NewEncoder(rw).Encode(hc); err != nil {
		logger.Error("Error writing health check response", log.WithError(err))
	}
}
