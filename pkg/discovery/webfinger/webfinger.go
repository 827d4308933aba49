/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package webfinger implements the WebFinger protocol (RFC 7033) for
// resolving local actors from acct: and URL resource strings.
package webfinger

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/fedipress/fedipress/pkg/config"
	fperrors "github.com/fedipress/fedipress/pkg/errors"
)

// JRD is the JSON Resource Descriptor returned for a resolved resource.
type JRD struct {
	Subject string   `json:"subject"`
	Aliases []string `json:"aliases,omitempty"`
	Links   []Link   `json:"links"`
}

// Link is a single link relation in a JRD.
type Link struct {
	Rel      string `json:"rel"`
	Type     string `json:"type,omitempty"`
	Href     string `json:"href,omitempty"`
	Template string `json:"template,omitempty"`
}

var handleRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// UserChecker reports whether a local user exists.
type UserChecker func(handle string) bool

// Resolver resolves WebFinger resources for this instance.
type Resolver struct {
	cfg        *config.Config
	userExists UserChecker
}

// NewResolver returns a WebFinger resolver. The userExists check typically
// consults the actor store or the configured ResolveUser callback.
func NewResolver(cfg *config.Config, userExists UserChecker) *Resolver {
	return &Resolver{
		cfg:        cfg,
		userExists: userExists,
	}
}

// Resolve parses the given resource string, verifies that it names a user of
// this instance and returns the resource descriptor. A malformed resource is
// a BadRequest error; an unknown user or foreign domain is NotFound.
func (r *Resolver) Resolve(resource string) (*JRD, error) {
	handle, domain, err := parseResource(resource)
	if err != nil {
		return nil, err
	}

	if domain != r.cfg.InstanceDomain() {
		return nil, fperrors.NewNotFoundf("resource [%s] is not served by this instance", resource)
	}

	if !handleRegex.MatchString(handle) {
		return nil, fperrors.NewBadRequestf("invalid handle in resource [%s]", resource)
	}

	if !r.userExists(handle) {
		return nil, fperrors.NewNotFoundf("no such user [%s]", handle)
	}

	actorURI := r.cfg.ActorURI(handle)

	return &JRD{
		Subject: r.cfg.WebFingerResource(handle),
		Aliases: []string{actorURI},
		Links: []Link{
			{
				Rel:  "self",
				Type: "application/activity+json",
				Href: actorURI,
			},
			{
				Rel:  "http://webfinger.net/rel/profile-page",
				Type: "text/html",
				Href: actorURI,
			},
			{
				Rel:      "http://ostatus.org/schema/1.0/subscribe",
				Template: fmt.Sprintf("%s/authorize_interaction?uri={uri}", r.cfg.SiteBaseURL),
			},
		},
	}, nil
}

// parseResource returns the handle and domain named by a WebFinger resource
// of the form 'acct:handle@domain' or 'https://domain/@handle'.
func parseResource(resource string) (handle, domain string, err error) {
	if resource == "" {
		return "", "", fperrors.NewBadRequestf("resource is required")
	}

	if acct, ok := strings.CutPrefix(resource, "acct:"); ok {
		handle, domain, ok = strings.Cut(acct, "@")
		if !ok || handle == "" || domain == "" {
			return "", "", fperrors.NewBadRequestf("invalid acct resource [%s]", resource)
		}

		return handle, domain, nil
	}

	u, err := url.Parse(resource)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", "", fperrors.NewBadRequestf("invalid resource [%s]", resource)
	}

	handle, ok := strings.CutPrefix(strings.TrimPrefix(u.Path, "/"), "@")
	if !ok || handle == "" {
		return "", "", fperrors.NewBadRequestf("resource [%s] does not name an actor", resource)
	}

	return handle, u.Host, nil
}
