/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webfinger

import (
	"encoding/json"
	"net/http"

	"github.com/fedipress/fedipress/internal/pkg/log"
	fperrors "github.com/fedipress/fedipress/pkg/errors"
	"github.com/fedipress/fedipress/pkg/restapi/common"
)

var logger = log.New("webfinger")

// Handler implements the /.well-known/webfinger REST endpoint.
type Handler struct {
	resolver *Resolver
	marshal  func(v interface{}) ([]byte, error)
}

// NewHandler returns the /.well-known/webfinger REST handler.
func NewHandler(resolver *Resolver) *Handler {
	return &Handler{
		resolver: resolver,
		marshal:  json.Marshal,
	}
}

// Path returns the HTTP REST endpoint for the handler.
func (h *Handler) Path() string {
	return "/.well-known/webfinger"
}

// Method returns the HTTP REST method for the handler.
func (h *Handler) Method() string {
	return http.MethodGet
}

// Params returns the query parameters the handler requires.
func (h *Handler) Params() map[string]string {
	return map[string]string{"resource": "{resource}"}
}

// Handler returns the HTTP REST handle for the handler.
func (h *Handler) Handler() common.HTTPRequestHandler {
	return h.handle
}

func (h *Handler) handle(w http.ResponseWriter, req *http.Request) {
	resource := req.URL.Query().Get("resource")

	jrd, err := h.resolver.Resolve(resource)
	if err != nil {
		logger.Debug("Error resolving WebFinger resource",
			log.WithResource(resource), log.WithError(err))

		w.WriteHeader(fperrors.StatusCode(err))

		return
	}

	jrdBytes, err := h.marshal(jrd)
	if err != nil {
		logger.Error("Error marshalling WebFinger response", log.WithError(err))

		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	w.Header().Add("Content-Type", "application/jrd+json")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(jrdBytes); err != nil {
		logger.Warn("Unable to write response", log.WithError(err))
	}
}
