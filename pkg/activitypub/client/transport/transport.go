/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package transport sends signed HTTP requests to remote ActivityPub
// servers.
package transport

import (
	"bytes"
	"context"
	"crypto"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/fedipress/fedipress/internal/pkg/log"
)

var logger = log.New("activitypub_transport")

// Header names and media types used on federation requests.
const (
	AcceptHeader      = "Accept"
	ContentTypeHeader = "Content-Type"

	// ActivityStreamsContentType is the Accept value sent on outbound GETs.
	ActivityStreamsContentType = `application/activity+json, application/ld+json; profile="https://www.w3.org/ns/activitystreams"`

	// ActivityJSONContentType is the Content-Type of outbound POSTs.
	ActivityJSONContentType = "application/activity+json"
)

// Signer signs an HTTP request and adds the signature to the header of the request.
type Signer interface {
	SignRequest(privKey crypto.PrivateKey, pubKeyID string, req *http.Request, body []byte) error
}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Key holds the signing key material of a local actor.
type Key struct {
	PrivateKey  crypto.PrivateKey
	PublicKeyID string
}

// NewKey returns signing key material for the given private key and public key ID.
func NewKey(privateKey crypto.PrivateKey, publicKeyID string) *Key {
	return &Key{
		PrivateKey:  privateKey,
		PublicKeyID: publicKeyID,
	}
}

// Transport Gets and Posts requests to remote servers using HTTP signatures.
// Requests are signed with the request's key if one is set, otherwise with
// the transport's default key. A nil default key sends unsigned requests.
type Transport struct {
	client     httpClient
	defaultKey *Key
	getSigner  Signer
	postSigner Signer
}

// New returns a new transport.
func New(client httpClient, defaultKey *Key, getSigner, postSigner Signer) *Transport {
	return &Transport{
		client:     client,
		defaultKey: defaultKey,
		getSigner:  getSigner,
		postSigner: postSigner,
	}
}

// Default returns a transport that uses the default HTTP client and no HTTP
// signatures. This transport should only be used by tests.
func Default() *Transport {
	return &Transport{
		client:     http.DefaultClient,
		getSigner:  &NoOpSigner{},
		postSigner: &NoOpSigner{},
	}
}

// Request contains the destination URL, headers and optional signing key.
type Request struct {
	URL    *url.URL
	Header http.Header
	Key    *Key
}

// RequestOpt sets an option on a request.
type RequestOpt func(r *Request)

// WithHeader sets a header on the request.
func WithHeader(name, value string) RequestOpt {
	return func(r *Request) {
		r.Header.Set(name, value)
	}
}

// WithKey sets the signing key for the request, overriding the transport's
// default key.
func WithKey(key *Key) RequestOpt {
	return func(r *Request) {
		r.Key = key
	}
}

// NewRequest returns a new request to the given URL.
func NewRequest(toURL *url.URL, opts ...RequestOpt) *Request {
	r := &Request{
		URL:    toURL,
		Header: make(http.Header),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Post sends a signed HTTP POST with the given payload. The Content-Type is
// set to application/activity+json unless the request already carries one.
func (t *Transport) Post(ctx context.Context, r *Request, payload []byte) (*http.Response, error) {
	var body io.Reader
	if len(payload) > 0 {
		body = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("new request to %s: %w", r.URL, err)
	}

	req.Header = r.Header

	if req.Header.Get(ContentTypeHeader) == "" {
		req.Header.Set(ContentTypeHeader, ActivityJSONContentType)
	}

	if key := t.key(r); key != nil {
		if err := t.postSigner.SignRequest(key.PrivateKey, key.PublicKeyID, req, payload); err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
	}

	logger.Debug("Sending HTTP POST", log.WithRequestURL(r.URL))

	return t.client.Do(req)
}

// Get sends a signed HTTP GET.
func (t *Transport) Get(ctx context.Context, r *Request) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request to %s: %w", r.URL, err)
	}

	req.Header = r.Header

	if key := t.key(r); key != nil {
		if err := t.getSigner.SignRequest(key.PrivateKey, key.PublicKeyID, req, nil); err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
	}

	logger.Debug("Sending HTTP GET", log.WithRequestURL(r.URL))

	return t.client.Do(req)
}

func (t *Transport) key(r *Request) *Key {
	if r.Key != nil {
		return r.Key
	}

	return t.defaultKey
}

// NoOpSigner is a signer that does nothing. This signer should only be used by tests.
type NoOpSigner struct{}

// DefaultSigner returns a no-op signer. This signer should only be used by tests.
func DefaultSigner() *NoOpSigner {
	return &NoOpSigner{}
}

// SignRequest does nothing.
func (s *NoOpSigner) SignRequest(crypto.PrivateKey, string, *http.Request, []byte) error {
	return nil
}
