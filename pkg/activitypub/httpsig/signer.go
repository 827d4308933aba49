/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package httpsig signs and verifies HTTP requests using draft-cavage HTTP
// signatures with an RSA-SHA256 algorithm and a SHA-256 body digest.
package httpsig

import (
	"crypto"
	"fmt"
	"net/http"
	"time"

	"github.com/go-fed/httpsig"

	"github.com/fedipress/fedipress/internal/pkg/log"
)

var logger = log.New("activitypub_httpsig")

const (
	dateHeader   = "Date"
	digestHeader = "Digest"
)

// DefaultGetSignerConfig returns the default configuration for signing HTTP GET requests.
func DefaultGetSignerConfig() SignerConfig {
	return SignerConfig{
		Headers: []string{"(request-target)", "host", "date"},
	}
}

// DefaultPostSignerConfig returns the default configuration for signing HTTP POST requests.
func DefaultPostSignerConfig() SignerConfig {
	return SignerConfig{
		DigestAlgorithm: httpsig.DigestSha256,
		Headers:         []string{"(request-target)", "host", "date", "digest"},
	}
}

// SignerConfig contains the configuration for signing HTTP requests.
type SignerConfig struct {
	DigestAlgorithm httpsig.DigestAlgorithm
	Headers         []string
}

// Signer signs HTTP requests.
type Signer struct {
	SignerConfig
}

// NewSigner returns a new signer.
func NewSigner(cfg SignerConfig) *Signer {
	return &Signer{
		SignerConfig: cfg,
	}
}

// SignRequest signs an HTTP request. The Date header is populated with the
// current UTC time if the caller has not already set it.
func (s *Signer) SignRequest(privKey crypto.PrivateKey, pubKeyID string, req *http.Request, body []byte) error {
	logger.Debug("Signing request", log.WithRequestURL(req.URL), log.WithKeyID(pubKeyID))

	signer, _, err := httpsig.NewSigner([]httpsig.Algorithm{httpsig.RSA_SHA256},
		s.DigestAlgorithm, s.Headers, httpsig.Signature, 0)
	if err != nil {
		return fmt.Errorf("new signer: %w", err)
	}

	if req.Header.Get(dateHeader) == "" {
		req.Header.Set(dateHeader, time.Now().UTC().Format(http.TimeFormat))
	}

	if err := signer.SignRequest(privKey, pubKeyID, req, body); err != nil {
		return fmt.Errorf("sign request: %w", err)
	}

	return nil
}
