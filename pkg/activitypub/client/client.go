/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package client retrieves ActivityPub objects (actors, public keys and
// objects) from remote servers, with caching.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bluele/gcache"

	"github.com/fedipress/fedipress/internal/pkg/log"
	"github.com/fedipress/fedipress/pkg/activitypub/client/transport"
	"github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
	fperrors "github.com/fedipress/fedipress/pkg/errors"
)

var logger = log.New("activitypub_client")

const (
	defaultCacheSize       = 100
	defaultCacheExpiration = time.Minute
	defaultTimeout         = 10 * time.Second
	defaultKeyCacheTTL     = time.Hour
)

// Config contains configuration parameters for the client.
type Config struct {
	CacheSize       int
	CacheExpiration time.Duration
	Timeout         time.Duration
	KeyCacheTTL     time.Duration
}

type httpTransport interface {
	Get(ctx context.Context, req *transport.Request) (*http.Response, error)
}

// Client retrieves ActivityPub objects from remote servers. Actors are held
// in an in-memory cache; resolved public keys are additionally persisted to
// the key store so that verification survives a restart.
type Client struct {
	httpTransport

	timeout     time.Duration
	keyCacheTTL time.Duration
	keyStore    spi.KeyStore
	actorCache  gcache.Cache
}

// New returns a new ActivityPub client. The key store may be nil, in which
// case resolved public keys are not persisted.
func New(cfg Config, t httpTransport, keyStore spi.KeyStore) *Client {
	c := &Client{
		httpTransport: t,
		timeout:       cfg.Timeout,
		keyCacheTTL:   cfg.KeyCacheTTL,
		keyStore:      keyStore,
	}

	if c.timeout == 0 {
		c.timeout = defaultTimeout
	}

	if c.keyCacheTTL == 0 {
		c.keyCacheTTL = defaultKeyCacheTTL
	}

	cacheSize := cfg.CacheSize
	if cacheSize == 0 {
		cacheSize = defaultCacheSize
	}

	cacheExpiration := cfg.CacheExpiration
	if cacheExpiration == 0 {
		cacheExpiration = defaultCacheExpiration
	}

	c.actorCache = gcache.New(cacheSize).ARC().
		Expiration(cacheExpiration).
		LoaderFunc(func(i interface{}) (interface{}, error) {
			return c.getActor(i.(string))
		}).Build()

	return c
}

// GetActor retrieves the actor at the given IRI.
func (c *Client) GetActor(actorIRI *url.URL) (*vocab.ActorType, error) {
	result, err := c.actorCache.Get(actorIRI.String())
	if err != nil {
		return nil, err
	}

	return result.(*vocab.ActorType), nil
}

func (c *Client) getActor(actorIRI string) (*vocab.ActorType, error) {
	iri, err := url.Parse(actorIRI)
	if err != nil {
		return nil, fmt.Errorf("parse actor IRI [%s]: %w", actorIRI, err)
	}

	respBytes, err := c.get(iri)
	if err != nil {
		return nil, fmt.Errorf("get actor from %s: %w", actorIRI, err)
	}

	actor := &vocab.ActorType{}

	if err := json.Unmarshal(respBytes, actor); err != nil {
		return nil, fmt.Errorf("invalid actor in response from %s: %w", actorIRI, err)
	}

	if actor.ID() == nil || actor.ID().URL() == nil {
		return nil, fmt.Errorf("actor in response from %s has no ID", actorIRI)
	}

	return actor, nil
}

// GetObject retrieves the object at the given IRI.
func (c *Client) GetObject(iri *url.URL) (*vocab.ObjectType, error) {
	respBytes, err := c.get(iri)
	if err != nil {
		return nil, fmt.Errorf("get object from %s: %w", iri, err)
	}

	obj := &vocab.ObjectType{}

	if err := json.Unmarshal(respBytes, obj); err != nil {
		return nil, fmt.Errorf("invalid object in response from %s: %w", iri, err)
	}

	return obj, nil
}

// ResolveInbox returns the inbox to deliver to for the given actor. If
// preferShared is true and the actor advertises a shared inbox then the
// shared inbox is returned.
func (c *Client) ResolveInbox(actor *vocab.ActorType, preferShared bool) (*url.URL, error) {
	if preferShared {
		if endpoints := actor.Endpoints(); endpoints != nil && endpoints.SharedInbox != "" {
			sharedInbox, err := url.Parse(endpoints.SharedInbox)
			if err == nil {
				return sharedInbox, nil
			}

			logger.Warn("Ignoring invalid shared inbox", log.WithActorIRI(actor.ID().URL()), log.WithError(err))
		}
	}

	inbox := actor.Inbox()
	if inbox == nil {
		return nil, fmt.Errorf("actor [%s] has no inbox", actor.ID())
	}

	return inbox, nil
}

// GetPublicKeyPem resolves the given key ID to the owning actor's public key
// PEM. The persisted key cache is consulted first; on a miss or an expired
// entry the actor document is fetched at the key ID with the fragment
// stripped and the matching key is cached.
func (c *Client) GetPublicKeyPem(keyID string) (string, error) {
	if c.keyStore != nil {
		cached, err := c.keyStore.GetCachedKey(keyID)
		if err == nil && !cached.Expired() {
			return cached.PublicKeyPem, nil
		}
	}

	actorIRI, err := url.Parse(keyID)
	if err != nil {
		return "", fmt.Errorf("parse key ID [%s]: %w", keyID, err)
	}

	actorIRI.Fragment = ""

	actor, err := c.GetActor(actorIRI)
	if err != nil {
		return "", fmt.Errorf("get actor for key [%s]: %w", keyID, err)
	}

	pubKey := actor.PublicKey()
	if pubKey == nil || pubKey.PublicKeyPem == "" {
		return "", fmt.Errorf("actor [%s] has no public key", actorIRI)
	}

	if pubKey.ID != "" && pubKey.ID != keyID {
		return "", fmt.Errorf("public key ID [%s] of actor [%s] does not match requested key [%s]",
			pubKey.ID, actorIRI, keyID)
	}

	if c.keyStore != nil {
		err = c.keyStore.PutCachedKey(&spi.CachedKey{
			KeyID:        keyID,
			PublicKeyPem: pubKey.PublicKeyPem,
			CachedAt:     time.Now(),
			TTL:          c.keyCacheTTL,
		})
		if err != nil {
			logger.Warn("Error caching public key", log.WithKeyID(keyID), log.WithError(err))
		}
	}

	return pubKey.PublicKeyPem, nil
}

// SweepCachedKeys removes expired entries from the persisted key cache. It
// is intended to be run periodically by the task manager.
func (c *Client) SweepCachedKeys() {
	if c.keyStore == nil {
		return
	}

	keyIDs, err := c.keyStore.GetCachedKeyIDs()
	if err != nil {
		logger.Warn("Error retrieving cached key IDs", log.WithError(err))

		return
	}

	for _, keyID := range keyIDs {
		cached, err := c.keyStore.GetCachedKey(keyID)
		if err != nil || !cached.Expired() {
			continue
		}

		if err := c.keyStore.DeleteCachedKey(keyID); err != nil {
			logger.Warn("Error deleting expired cached key", log.WithKeyID(keyID), log.WithError(err))
		}
	}
}

func (c *Client) get(iri *url.URL) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	resp, err := c.Get(ctx, transport.NewRequest(iri,
		transport.WithHeader(transport.AcceptHeader, transport.ActivityStreamsContentType)))
	if err != nil {
		return nil, fperrors.NewTransientf("request to %s failed: %w", iri, err)
	}

	defer func() {
		if e := resp.Body.Close(); e != nil {
			logger.Warn("Error closing response body", log.WithRequestURL(iri), log.WithError(e))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			return nil, fperrors.NewNotFoundf("request to %s returned status code %d", iri, resp.StatusCode)
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fperrors.NewTransientf("request to %s returned status code %d", iri, resp.StatusCode)
		}

		return nil, fmt.Errorf("request to %s returned status code %d", iri, resp.StatusCode)
	}

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fperrors.NewTransientf("read response body from %s: %w", iri, err)
	}

	return respBytes, nil
}
