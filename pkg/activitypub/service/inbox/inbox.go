/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package inbox ingests activities POSTed to a local actor's inbox: the HTTP
// signature and body digest are verified, the envelope is validated, the
// activity is archived (deduplicated by ID) and then dispatched to the
// activity handler.
package inbox

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fedipress/fedipress/internal/pkg/log"
	service "github.com/fedipress/fedipress/pkg/activitypub/service/spi"
	store "github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
	"github.com/fedipress/fedipress/pkg/config"
	fperrors "github.com/fedipress/fedipress/pkg/errors"
	"github.com/fedipress/fedipress/pkg/metrics"
)

var logger = log.New("activitypub_inbox")

type signatureVerifier interface {
	VerifyRequest(req *http.Request) (*url.URL, error)
}

// Inbox processes activities that are POSTed to a local actor's inbox or to
// the instance's shared inbox.
type Inbox struct {
	cfg           *config.Config
	activityStore store.ActivityStore
	handler       service.ActivityHandler
	verifier      signatureVerifier
	metrics       metrics.Provider
}

// New returns a new inbox.
func New(cfg *config.Config, s store.ActivityStore, handler service.ActivityHandler,
	verifier signatureVerifier, metricsProvider metrics.Provider) *Inbox {
	return &Inbox{
		cfg:           cfg,
		activityStore: s,
		handler:       handler,
		verifier:      verifier,
		metrics:       metricsProvider,
	}
}

// HandleRequest processes an inbound inbox POST addressed to the local actor
// with the given handle. The error kind determines the HTTP response status
// at the route boundary.
func (ib *Inbox) HandleRequest(handle string, req *http.Request) error {
	actorIRI, activity, err := ib.verifyAndParse(req)
	if err != nil {
		return err
	}

	return ib.HandleActivity(handle, actorIRI, activity)
}

// HandleSharedRequest processes a POST to the instance's shared inbox. The
// activity is dispatched to every local actor it addresses.
func (ib *Inbox) HandleSharedRequest(req *http.Request) error {
	actorIRI, activity, err := ib.verifyAndParse(req)
	if err != nil {
		return err
	}

	handles := ib.localRecipients(activity)
	if len(handles) == 0 {
		return fperrors.NewBadRequestf("activity [%s] does not address any local actor", activity.ID())
	}

	for _, handle := range handles {
		if err := ib.HandleActivity(handle, actorIRI, activity); err != nil {
			return err
		}
	}

	return nil
}

// HandleActivity validates, archives and dispatches the given activity. The
// verified actor IRI may be nil if signature verification is disabled.
func (ib *Inbox) HandleActivity(handle string, verifiedActor *url.URL, activity *vocab.ActivityType) error {
	startTime := time.Now()

	defer func() {
		if activity.Type() != nil {
			ib.metrics.InboxHandlerTime(activity.Type().String(), time.Since(startTime))
		}
	}()

	if err := activity.Validate(); err != nil {
		return fperrors.NewBadRequest(fmt.Errorf("invalid activity: %w", err))
	}

	if verifiedActor != nil && verifiedActor.String() != activity.Actor().String() {
		return fperrors.NewSignatureVerificationf(
			"activity actor [%s] does not match the actor of the verified signature [%s]",
			activity.Actor(), verifiedActor)
	}

	// Peers may redeliver; the activity ID makes receipt idempotent.
	if _, err := ib.activityStore.GetActivity(store.Inbox, activity.ID().URL()); err == nil {
		logger.Info("Ignoring duplicate activity", log.WithActivityID(activity.ID()))

		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("check for duplicate activity [%s]: %w", activity.ID(), err)
	}

	if err := ib.activityStore.AddActivity(store.Inbox, activity); err != nil {
		return fmt.Errorf("archive activity [%s]: %w", activity.ID(), err)
	}

	logger.Debug("Dispatching activity", log.WithActivityID(activity.ID()),
		log.WithActivityType(activity.Type().String()), log.WithHandle(handle))

	return ib.handler.HandleActivity(handle, activity)
}

func (ib *Inbox) verifyAndParse(req *http.Request) (*url.URL, *vocab.ActivityType, error) {
	var actorIRI *url.URL

	if ib.cfg.SignatureVerificationEnabled {
		verifiedActor, err := ib.verifier.VerifyRequest(req)
		if err != nil {
			return nil, nil, fmt.Errorf("verify request: %w", err)
		}

		actorIRI = verifiedActor
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, nil, fperrors.NewBadRequest(fmt.Errorf("read request body: %w", err))
	}

	activity := &vocab.ActivityType{}

	if err := activity.UnmarshalJSON(body); err != nil {
		return nil, nil, fperrors.NewBadRequest(fmt.Errorf("unmarshal activity: %w", err))
	}

	return actorIRI, activity, nil
}

// localRecipients returns the handles of the local actors addressed by the
// given activity, either in to/cc or (for Follow) as the object itself.
func (ib *Inbox) localRecipients(activity *vocab.ActivityType) []string {
	seen := make(map[string]struct{})

	var handles []string

	add := func(uri *url.URL) {
		if uri == nil {
			return
		}

		handle := ib.cfg.ExtractHandleFromURI(uri.String())
		if handle == "" {
			return
		}

		if _, ok := seen[handle]; !ok {
			seen[handle] = struct{}{}

			handles = append(handles, handle)
		}
	}

	for _, iri := range activity.To() {
		add(iri)
	}

	for _, iri := range activity.CC() {
		add(iri)
	}

	if obj := activity.Object(); obj != nil {
		add(obj.IRI())
	}

	return handles
}
