/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resthandler

import (
	"net/http"

	store "github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
	"github.com/fedipress/fedipress/pkg/config"
)

type actorService interface {
	EnsureActor(handle string) (*store.StoredActor, error)
	ActorDocument(actor *store.StoredActor) (vocab.Document, error)
	GroupDocument(group *store.StoredGroup) (vocab.Document, error)
}

// Actor implements the GET handler for an actor's profile URL. HTML requests
// are delegated to the site's UI layer with a 406 so that the web server in
// front can fall through to the profile page.
type Actor struct {
	*handler

	service   actorService
	negotiate bool
}

// NewActor returns a handler that serves the actor document at /@{handle},
// subject to Accept negotiation.
func NewActor(cfg *config.Config, service actorService) *Actor {
	a := &Actor{service: service, negotiate: true}

	a.handler = newHandler("/@{handle}", http.MethodGet, cfg, a.handleGet)

	return a
}

// NewActorJSON returns a handler that always serves the actor document at
// /ap/users/{handle}.
func NewActorJSON(cfg *config.Config, service actorService) *Actor {
	a := &Actor{service: service}

	a.handler = newHandler("/ap/users/{handle}", http.MethodGet, cfg, a.handleGet)

	return a
}

func (a *Actor) handleGet(w http.ResponseWriter, req *http.Request) {
	if a.negotiate && !acceptsActivityJSON(req) {
		w.WriteHeader(http.StatusNotAcceptable)

		return
	}

	actor, err := a.service.EnsureActor(getHandle(req))
	if err != nil {
		a.writeError(w, err)

		return
	}

	doc, err := a.service.ActorDocument(actor)
	if err != nil {
		a.writeError(w, err)

		return
	}

	a.writeDocument(w, doc)
}

// Group implements the GET handler for a group actor at /c/{handle}. Unlike
// person actors, groups are only created by explicit administration, so a
// missing group is a 404.
type Group struct {
	*handler

	service actorService
	groups  interface {
		GetGroup(handle string) (*store.StoredGroup, error)
	}
}

// NewGroup returns a handler that serves the group actor document.
func NewGroup(cfg *config.Config, service actorService,
	groups interface {
		GetGroup(handle string) (*store.StoredGroup, error)
	}) *Group {
	g := &Group{service: service, groups: groups}

	g.handler = newHandler("/c/{handle}", http.MethodGet, cfg, g.handleGet)

	return g
}

func (g *Group) handleGet(w http.ResponseWriter, req *http.Request) {
	group, err := g.groups.GetGroup(getHandle(req))
	if err != nil {
		g.writeError(w, err)

		return
	}

	doc, err := g.service.GroupDocument(group)
	if err != nil {
		g.writeError(w, err)

		return
	}

	g.writeDocument(w, doc)
}
