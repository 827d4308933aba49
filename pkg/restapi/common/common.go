/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package common defines the contract between REST endpoint handlers and the
// HTTP server that mounts them.
package common

import "net/http"

// HTTPRequestHandler handles an HTTP request.
type HTTPRequestHandler func(http.ResponseWriter, *http.Request)

// HTTPHandler defines a REST endpoint: the path and method it is mounted at,
// and the handler that serves it.
type HTTPHandler interface {
	Path() string
	Method() string
	Handler() HTTPRequestHandler
}

// NewHTTPHandler returns an HTTPHandler for the given path, method and
// handler function.
func NewHTTPHandler(path, method string, handler HTTPRequestHandler) HTTPHandler {
	return &httpHandler{path: path, method: method, handler: handler}
}

type httpHandler struct {
	path    string
	method  string
	handler HTTPRequestHandler
}

func (h *httpHandler) Path() string { return h.path }

func (h *httpHandler) Method() string { return h.method }

func (h *httpHandler) Handler() HTTPRequestHandler { return h.handler }
