/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package resthandler provides the ActivityPub REST endpoints: actor
// documents, the inbox, and the followers/following/outbox/liked
// collections.
package resthandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/fedipress/fedipress/internal/pkg/log"
	store "github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
	"github.com/fedipress/fedipress/pkg/config"
	fperrors "github.com/fedipress/fedipress/pkg/errors"
	"github.com/fedipress/fedipress/pkg/restapi/common"
)

var logger = log.New("activitypub_resthandler")

// ActivityJSONType is the content type of ActivityPub documents.
const ActivityJSONType = "application/activity+json"

const pageParam = "page"

type handler struct {
	endpoint string
	method   string
	cfg      *config.Config
	handle   common.HTTPRequestHandler
	marshal  func(v interface{}) ([]byte, error)
}

func newHandler(endpoint, method string, cfg *config.Config, h common.HTTPRequestHandler) *handler {
	return &handler{
		endpoint: endpoint,
		method:   method,
		cfg:      cfg,
		handle:   h,
		marshal:  json.Marshal,
	}
}

// Path returns the base path of the target URL for this handler.
func (h *handler) Path() string {
	return h.endpoint
}

// Method returns the HTTP method of the handler.
func (h *handler) Method() string {
	return h.method
}

// Handler returns the handler that is invoked when the endpoint is requested.
func (h *handler) Handler() common.HTTPRequestHandler {
	return h.handle
}

func (h *handler) writeDocument(w http.ResponseWriter, doc interface{}) {
	docBytes, err := h.marshal(doc)
	if err != nil {
		logger.Error("Error marshalling response", log.WithServiceEndpoint(h.endpoint), log.WithError(err))

		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	w.Header().Add("Content-Type", ActivityJSONType)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(docBytes); err != nil {
		logger.Warn("Unable to write response", log.WithServiceEndpoint(h.endpoint), log.WithError(err))
	}
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := fperrors.StatusCode(err)

	if errors.Is(err, store.ErrNotFound) {
		status = http.StatusNotFound
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Error handling request", log.WithServiceEndpoint(h.endpoint), log.WithError(err))
	} else {
		logger.Debug("Request failed", log.WithServiceEndpoint(h.endpoint),
			log.WithHTTPStatus(status), log.WithError(err))
	}

	w.WriteHeader(status)
}

func getHandle(req *http.Request) string {
	return mux.Vars(req)["handle"]
}

// acceptsActivityJSON returns true if the request prefers an ActivityPub
// representation over HTML.
func acceptsActivityJSON(req *http.Request) bool {
	accept := req.Header.Get("Accept")

	return strings.Contains(accept, ActivityJSONType) ||
		strings.Contains(accept, "application/ld+json")
}

// collectionResponse renders the given item IRIs either as a complete
// OrderedCollection summary (with a link to the first page) or, when the
// 'page' parameter is present, as the requested OrderedCollectionPage.
func (h *handler) collectionResponse(req *http.Request, collectionIRI string,
	items []*vocab.ObjectProperty) (interface{}, error) {
	id := vocab.MustParseURL(collectionIRI)

	pageStr := req.URL.Query().Get(pageParam)
	if pageStr == "" {
		opts := []vocab.Opt{
			vocab.WithContext(vocab.ContextActivityStreams),
			vocab.WithID(id),
			vocab.WithTotalItems(len(items)),
		}

		if len(items) > 0 {
			opts = append(opts,
				vocab.WithFirst(pageURL(collectionIRI, 0)),
				vocab.WithLast(pageURL(collectionIRI, h.lastPageNum(len(items)))))
		}

		return vocab.NewOrderedCollection(nil, opts...), nil
	}

	pageNum, err := strconv.Atoi(pageStr)
	if err != nil || pageNum < 0 {
		return nil, fperrors.NewBadRequestf("invalid page [%s]", pageStr)
	}

	pageSize := h.cfg.PageSize
	if pageSize <= 0 || pageSize > h.cfg.MaxPageSize {
		pageSize = h.cfg.MaxPageSize
	}

	from := pageNum * pageSize
	if from > len(items) {
		from = len(items)
	}

	to := from + pageSize
	if to > len(items) {
		to = len(items)
	}

	opts := []vocab.Opt{
		vocab.WithContext(vocab.ContextActivityStreams),
		vocab.WithID(pageURL(collectionIRI, pageNum)),
		vocab.WithPartOf(id),
		vocab.WithTotalItems(len(items)),
	}

	if to < len(items) {
		opts = append(opts, vocab.WithNext(pageURL(collectionIRI, pageNum+1)))
	}

	if pageNum > 0 {
		opts = append(opts, vocab.WithPrev(pageURL(collectionIRI, pageNum-1)))
	}

	return vocab.NewOrderedCollectionPage(items[from:to], opts...), nil
}

func (h *handler) lastPageNum(totalItems int) int {
	pageSize := h.cfg.PageSize
	if pageSize <= 0 {
		pageSize = config.DefaultPageSize
	}

	if totalItems == 0 {
		return 0
	}

	return (totalItems - 1) / pageSize
}

func pageURL(collectionIRI string, pageNum int) *url.URL {
	return vocab.MustParseURL(fmt.Sprintf("%s?%s=%d", collectionIRI, pageParam, pageNum))
}

func iriItems(uris []string) []*vocab.ObjectProperty {
	items := make([]*vocab.ObjectProperty, 0, len(uris))

	for _, uri := range uris {
		u, err := url.Parse(uri)
		if err != nil {
			logger.Warn("Ignoring invalid IRI in collection", log.WithError(err))

			continue
		}

		items = append(items, vocab.NewObjectProperty(vocab.WithIRI(u)))
	}

	return items
}
