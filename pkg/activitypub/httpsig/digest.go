/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package httpsig

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	fperrors "github.com/fedipress/fedipress/pkg/errors"
)

const digestPrefix = "SHA-256="

// GenerateDigest returns the SHA-256 digest header value for the given body.
func GenerateDigest(body []byte) string {
	h := sha256.Sum256(body)

	return digestPrefix + base64.StdEncoding.EncodeToString(h[:])
}

// VerifyDigest verifies the given Digest header value against the raw body.
// The header may carry multiple comma-separated entries; the SHA-256 entry is
// used. The comparison is constant time.
func VerifyDigest(body []byte, digestHeader string) error {
	var digest string

	for _, entry := range strings.Split(digestHeader, ",") {
		entry = strings.TrimSpace(entry)

		if strings.HasPrefix(strings.ToUpper(entry), digestPrefix) {
			digest = entry[len(digestPrefix):]

			break
		}
	}

	if digest == "" {
		return fperrors.NewSignatureVerificationf("no SHA-256 entry in Digest header [%s]", digestHeader)
	}

	given, err := base64.StdEncoding.DecodeString(digest)
	if err != nil {
		return fperrors.NewSignatureVerification(fmt.Errorf("decode digest: %w", err))
	}

	computed := sha256.Sum256(body)

	if subtle.ConstantTimeCompare(given, computed[:]) != 1 {
		return fperrors.NewSignatureVerificationf("digest mismatch")
	}

	return nil
}
