/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package httpsig

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-fed/httpsig"

	"github.com/fedipress/fedipress/internal/pkg/log"
	fperrors "github.com/fedipress/fedipress/pkg/errors"
)

// KeyRetriever resolves a key ID to the owning actor's PEM-encoded public
// key. Implementations typically fetch the actor document at the key ID with
// the URL fragment stripped, and cache the result.
type KeyRetriever interface {
	GetPublicKeyPem(keyID string) (string, error)
}

// Verifier verifies signatures of HTTP requests.
type Verifier struct {
	retriever KeyRetriever
}

// NewVerifier returns a new HTTP signature verifier.
func NewVerifier(retriever KeyRetriever) *Verifier {
	return &Verifier{
		retriever: retriever,
	}
}

// VerifyRequest verifies the HTTP signature on the request and, if the
// request carries a body, the SHA-256 digest of the body. On success the
// actor IRI (the key ID with the fragment stripped) is returned.
func (v *Verifier) VerifyRequest(req *http.Request) (*url.URL, error) {
	header, err := ParseSignatureHeader(req.Header.Get("Signature"))
	if err != nil {
		return nil, fperrors.NewSignatureVerification(err)
	}

	if !SupportedAlgorithm(header.Algorithm) {
		return nil, fperrors.NewSignatureVerificationf("unsupported signature algorithm [%s]", header.Algorithm)
	}

	logger.Debug("Verifying request", log.WithRequestURL(req.URL), log.WithKeyID(header.KeyID))

	pemData, err := v.retriever.GetPublicKeyPem(header.KeyID)
	if err != nil {
		return nil, fmt.Errorf("get public key [%s]: %w", header.KeyID, err)
	}

	pubKey, err := ParseRSAPublicKeyFromPEM(pemData)
	if err != nil {
		return nil, fperrors.NewSignatureVerification(fmt.Errorf("parse public key [%s]: %w", header.KeyID, err))
	}

	if err := v.verifySignature(req, pubKey); err != nil {
		return nil, err
	}

	if err := v.verifyBodyDigest(req); err != nil {
		return nil, err
	}

	actorIRI, err := url.Parse(header.KeyID)
	if err != nil {
		return nil, fperrors.NewSignatureVerification(fmt.Errorf("parse key ID [%s]: %w", header.KeyID, err))
	}

	actorIRI.Fragment = ""

	logger.Debug("Successfully verified signature", log.WithActorIRI(actorIRI))

	return actorIRI, nil
}

func (v *Verifier) verifySignature(req *http.Request, pubKey interface{}) error {
	verifier, err := httpsig.NewVerifier(req)
	if err != nil {
		return fperrors.NewSignatureVerification(fmt.Errorf("new verifier: %w", err))
	}

	if err := verifier.Verify(pubKey, httpsig.RSA_SHA256); err != nil {
		return fperrors.NewSignatureVerification(fmt.Errorf("verify signature: %w", err))
	}

	return nil
}

// verifyBodyDigest requires and verifies the Digest header whenever the
// request carries a body. The body is restored for downstream readers.
func (v *Verifier) verifyBodyDigest(req *http.Request) error {
	if req.Body == nil {
		return nil
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}

	req.Body.Close()

	req.Body = io.NopCloser(bytes.NewReader(body))

	if len(body) == 0 {
		return nil
	}

	digest := req.Header.Get(digestHeader)
	if digest == "" {
		return fperrors.NewSignatureVerificationf("missing Digest header on request with body")
	}

	return VerifyDigest(body, digest)
}
