/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resthandler

import (
	"net/http"

	"github.com/fedipress/fedipress/pkg/config"
)

type inboxService interface {
	HandleRequest(handle string, req *http.Request) error
	HandleSharedRequest(req *http.Request) error
}

// Inbox implements the POST handler for an actor's inbox. Accepted
// activities are acknowledged with 202 since processing happens
// asynchronously from the peer's point of view.
type Inbox struct {
	*handler

	service inboxService
	shared  bool
}

// NewInbox returns the POST handler for /@{handle}/inbox.
func NewInbox(cfg *config.Config, service inboxService) *Inbox {
	ib := &Inbox{service: service}

	ib.handler = newHandler("/@{handle}/inbox", http.MethodPost, cfg, ib.handlePost)

	return ib
}

// NewSharedInbox returns the POST handler for the instance-wide /inbox.
func NewSharedInbox(cfg *config.Config, service inboxService) *Inbox {
	ib := &Inbox{service: service, shared: true}

	ib.handler = newHandler("/inbox", http.MethodPost, cfg, ib.handlePost)

	return ib
}

func (ib *Inbox) handlePost(w http.ResponseWriter, req *http.Request) {
	var err error

	if ib.shared {
		err = ib.service.HandleSharedRequest(req)
	} else {
		err = ib.service.HandleRequest(getHandle(req), req)
	}

	if err != nil {
		ib.writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusAccepted)
}
