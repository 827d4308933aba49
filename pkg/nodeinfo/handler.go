/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package nodeinfo

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fedipress/fedipress/internal/pkg/log"
	"github.com/fedipress/fedipress/pkg/restapi/common"
)

const internalServerErrorResponse = "Internal Server Error.\n"

type nodeInfoRetriever interface {
	GetNodeInfo(version Version) *NodeInfo
}

// Handler implements a /nodeinfo/{version} REST endpoint.
type Handler struct {
	version     Version
	retriever   nodeInfoRetriever
	contentType string
	marshal     func(v interface{}) ([]byte, error)
}

// NewHandler returns the /nodeinfo REST handler for the given version.
func NewHandler(version Version, retriever nodeInfoRetriever) *Handler {
	return &Handler{
		version:   version,
		retriever: retriever,
		contentType: fmt.Sprintf(`application/json; profile="http://nodeinfo.diaspora.software/ns/schema/%s#"`,
			version),
		marshal: json.Marshal,
	}
}

// Path returns the HTTP REST endpoint for the NodeInfo handler.
func (h *Handler) Path() string {
	return fmt.Sprintf("/nodeinfo/%s", h.version)
}

// Method returns the HTTP REST method for the NodeInfo handler.
func (h *Handler) Method() string {
	return http.MethodGet
}

// Handler returns the HTTP REST handle for the NodeInfo handler.
func (h *Handler) Handler() common.HTTPRequestHandler {
	return h.handle
}

func (h *Handler) handle(w http.ResponseWriter, _ *http.Request) {
	nodeInfoBytes, err := h.marshal(h.retriever.GetNodeInfo(h.version))
	if err != nil {
		logger.Error("Error marshalling node info", log.WithError(err))

		writeResponse(w, http.StatusInternalServerError, "text/plain", []byte(internalServerErrorResponse))

		return
	}

	writeResponse(w, http.StatusOK, h.contentType, nodeInfoBytes)
}

// WellKnownHandler implements the /.well-known/nodeinfo discovery endpoint.
type WellKnownHandler struct {
	response []byte
	err      error
}

// NewWellKnownHandler returns the /.well-known/nodeinfo REST handler, which
// points at the versioned NodeInfo documents under the given base URL.
func NewWellKnownHandler(baseURL string) *WellKnownHandler {
	response, err := json.Marshal(&WellKnownResponse{
		Links: []WellKnownLink{
			{
				Rel:  "http://nodeinfo.diaspora.software/ns/schema/2.0",
				Href: fmt.Sprintf("%s/nodeinfo/%s", baseURL, V2_0),
			},
			{
				Rel:  "http://nodeinfo.diaspora.software/ns/schema/2.1",
				Href: fmt.Sprintf("%s/nodeinfo/%s", baseURL, V2_1),
			},
		},
	})

	return &WellKnownHandler{response: response, err: err}
}

// Path returns the HTTP REST endpoint for the handler.
func (h *WellKnownHandler) Path() string {
	return "/.well-known/nodeinfo"
}

// Method returns the HTTP REST method for the handler.
func (h *WellKnownHandler) Method() string {
	return http.MethodGet
}

// Handler returns the HTTP REST handle for the handler.
func (h *WellKnownHandler) Handler() common.HTTPRequestHandler {
	return h.handle
}

func (h *WellKnownHandler) handle(w http.ResponseWriter, _ *http.Request) {
	if h.err != nil {
		logger.Error("Error marshalling NodeInfo links", log.WithError(h.err))

		writeResponse(w, http.StatusInternalServerError, "text/plain", []byte(internalServerErrorResponse))

		return
	}

	writeResponse(w, http.StatusOK, "application/json", h.response)
}

func writeResponse(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Add("Content-Type", contentType)
	w.WriteHeader(status)

	if _, err := w.Write(body); err != nil {
		logger.Warn("Unable to write response", log.WithError(err))
	}
}
