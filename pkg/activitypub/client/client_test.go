/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fedipress/fedipress/pkg/activitypub/client/transport"
	"github.com/fedipress/fedipress/pkg/activitypub/store/memstore"
	"github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
	fperrors "github.com/fedipress/fedipress/pkg/errors"
)

const actorJSON = `{
  "@context": ["https://www.w3.org/ns/activitystreams", "https://w3id.org/security/v1"],
  "id": "https://remote.example/@bob",
  "type": "Person",
  "preferredUsername": "bob",
  "inbox": "https://remote.example/@bob/inbox",
  "outbox": "https://remote.example/@bob/outbox",
  "endpoints": {"sharedInbox": "https://remote.example/inbox"},
  "publicKey": {
    "id": "https://remote.example/@bob#main-key",
    "owner": "https://remote.example/@bob",
    "publicKeyPem": "-----BEGIN PUBLIC KEY-----\nabc\n-----END PUBLIC KEY-----\n"
  }
}`

func TestGetActor(t *testing.T) {
	tp := &mockTransport{responses: map[string]*mockResponse{
		"https://remote.example/@bob": {status: http.StatusOK, body: actorJSON},
	}}

	c := New(Config{}, tp, nil)

	actor, err := c.GetActor(vocab.MustParseURL("https://remote.example/@bob"))
	require.NoError(t, err)
	require.Equal(t, "bob", actor.PreferredUsername())
	require.Equal(t, "https://remote.example/@bob/inbox", actor.Inbox().String())

	t.Run("Second fetch is served from cache", func(t *testing.T) {
		_, err := c.GetActor(vocab.MustParseURL("https://remote.example/@bob"))
		require.NoError(t, err)
		require.Equal(t, 1, tp.requests["https://remote.example/@bob"])
	})

	t.Run("Accept header", func(t *testing.T) {
		require.Equal(t, transport.ActivityStreamsContentType, tp.lastAccept)
	})

	t.Run("Not found", func(t *testing.T) {
		tp := &mockTransport{responses: map[string]*mockResponse{
			"https://remote.example/@gone": {status: http.StatusNotFound},
		}}

		_, err := New(Config{}, tp, nil).GetActor(vocab.MustParseURL("https://remote.example/@gone"))
		require.Error(t, err)
		require.True(t, fperrors.IsKind(err, fperrors.KindNotFound))
	})

	t.Run("Server error -> transient", func(t *testing.T) {
		tp := &mockTransport{responses: map[string]*mockResponse{
			"https://remote.example/@bob": {status: http.StatusInternalServerError},
		}}

		_, err := New(Config{}, tp, nil).GetActor(vocab.MustParseURL("https://remote.example/@bob"))
		require.Error(t, err)
		require.True(t, fperrors.IsTransient(err))
	})

	t.Run("Network error -> transient", func(t *testing.T) {
		tp := &mockTransport{err: fmt.Errorf("connection refused")}

		_, err := New(Config{}, tp, nil).GetActor(vocab.MustParseURL("https://remote.example/@bob"))
		require.Error(t, err)
		require.True(t, fperrors.IsTransient(err))
	})
}

func TestResolveInbox(t *testing.T) {
	tp := &mockTransport{responses: map[string]*mockResponse{
		"https://remote.example/@bob": {status: http.StatusOK, body: actorJSON},
	}}

	c := New(Config{}, tp, nil)

	actor, err := c.GetActor(vocab.MustParseURL("https://remote.example/@bob"))
	require.NoError(t, err)

	inbox, err := c.ResolveInbox(actor, false)
	require.NoError(t, err)
	require.Equal(t, "https://remote.example/@bob/inbox", inbox.String())

	sharedInbox, err := c.ResolveInbox(actor, true)
	require.NoError(t, err)
	require.Equal(t, "https://remote.example/inbox", sharedInbox.String())
}

func TestGetPublicKeyPem(t *testing.T) {
	tp := &mockTransport{responses: map[string]*mockResponse{
		"https://remote.example/@bob": {status: http.StatusOK, body: actorJSON},
	}}

	keyStore := memstore.New("test")

	c := New(Config{KeyCacheTTL: time.Hour}, tp, keyStore)

	pemData, err := c.GetPublicKeyPem("https://remote.example/@bob#main-key")
	require.NoError(t, err)
	require.Contains(t, pemData, "BEGIN PUBLIC KEY")

	t.Run("Key is persisted", func(t *testing.T) {
		cached, err := keyStore.GetCachedKey("https://remote.example/@bob#main-key")
		require.NoError(t, err)
		require.Equal(t, pemData, cached.PublicKeyPem)
		require.False(t, cached.Expired())
	})

	t.Run("Second resolve served from key store", func(t *testing.T) {
		c2 := New(Config{KeyCacheTTL: time.Hour}, &mockTransport{err: fmt.Errorf("unreachable")}, keyStore)

		pemData2, err := c2.GetPublicKeyPem("https://remote.example/@bob#main-key")
		require.NoError(t, err)
		require.Equal(t, pemData, pemData2)
	})

	t.Run("Key ID mismatch -> error", func(t *testing.T) {
		_, err := c.GetPublicKeyPem("https://remote.example/@bob#other-key")
		require.Error(t, err)
		require.Contains(t, err.Error(), "does not match")
	})
}

func TestSweepCachedKeys(t *testing.T) {
	keyStore := memstore.New("test")

	require.NoError(t, keyStore.PutCachedKey(&spi.CachedKey{
		KeyID:        "https://remote.example/@bob#main-key",
		PublicKeyPem: "pem",
		CachedAt:     time.Now().Add(-2 * time.Hour),
		TTL:          time.Hour,
	}))

	require.NoError(t, keyStore.PutCachedKey(&spi.CachedKey{
		KeyID:        "https://remote.example/@carol#main-key",
		PublicKeyPem: "pem",
		CachedAt:     time.Now(),
		TTL:          time.Hour,
	}))

	c := New(Config{}, &mockTransport{}, keyStore)

	c.SweepCachedKeys()

	_, err := keyStore.GetCachedKey("https://remote.example/@bob#main-key")
	require.Error(t, err)

	_, err = keyStore.GetCachedKey("https://remote.example/@carol#main-key")
	require.NoError(t, err)
}

type mockResponse struct {
	status int
	body   string
}

type mockTransport struct {
	responses  map[string]*mockResponse
	requests   map[string]int
	lastAccept string
	err        error
}

func (m *mockTransport) Get(_ context.Context, req *transport.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}

	if m.requests == nil {
		m.requests = make(map[string]int)
	}

	m.requests[req.URL.String()]++
	m.lastAccept = req.Header.Get(transport.AcceptHeader)

	resp, ok := m.responses[req.URL.String()]
	if !ok {
		return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(""))}, nil
	}

	return &http.Response{
		StatusCode: resp.status,
		Body:       io.NopCloser(strings.NewReader(resp.body)),
	}, nil
}
