/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package httpsig

import (
	"fmt"
	"strings"
)

// SignatureHeader holds the four attributes of a Signature header.
type SignatureHeader struct {
	KeyID     string
	Algorithm string
	Headers   []string
	Signature string
}

// Supported signature algorithms.
const (
	AlgorithmRSASHA256 = "rsa-sha256"
	AlgorithmHS2019    = "hs2019"
)

// ParseSignatureHeader parses a Signature header value. All four attributes
// (keyId, algorithm, headers, signature) are required; the algorithm is
// lowercased. An error is returned on any malformed or missing attribute.
func ParseSignatureHeader(value string) (*SignatureHeader, error) {
	header := &SignatureHeader{}

	for _, kv := range strings.Split(value, ",") {
		kv = strings.TrimSpace(kv)

		name, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}

		val = strings.Trim(val, `"`)

		switch name {
		case "keyId":
			header.KeyID = val
		case "algorithm":
			header.Algorithm = strings.ToLower(val)
		case "headers":
			header.Headers = strings.Fields(val)
		case "signature":
			header.Signature = val
		}
	}

	if header.KeyID == "" || header.Algorithm == "" || len(header.Headers) == 0 || header.Signature == "" {
		return nil, fmt.Errorf("signature header is missing one or more of keyId, algorithm, headers, signature")
	}

	return header, nil
}

// SupportedAlgorithm returns true if the given (lowercased) algorithm is
// supported for verification.
func SupportedAlgorithm(algorithm string) bool {
	return algorithm == AlgorithmRSASHA256 || algorithm == AlgorithmHS2019
}

// String formats the header in wire form.
func (h *SignatureHeader) String() string {
	return fmt.Sprintf(`keyId=%q,algorithm=%q,headers=%q,signature=%q`,
		h.KeyID, h.Algorithm, strings.Join(h.Headers, " "), h.Signature)
}
