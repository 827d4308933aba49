/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKinds(t *testing.T) {
	require.Equal(t, http.StatusNotFound, NewNotFoundf("no such handle").(*FederationError).StatusCode())
	require.Equal(t, http.StatusBadRequest, StatusCode(NewBadRequestf("malformed envelope")))
	require.Equal(t, http.StatusUnauthorized, StatusCode(NewUnauthorized(errors.New("no credentials"))))
	require.Equal(t, http.StatusForbidden, StatusCode(NewSignatureVerificationf("digest mismatch")))
	require.Equal(t, http.StatusBadGateway, StatusCode(NewDeliveryf("inbox rejected POST")))
	require.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("some other error")))
}

func TestKindWrapped(t *testing.T) {
	err := fmt.Errorf("handle follow: %w", NewBadRequestf("no actor"))

	require.True(t, IsKind(err, KindBadRequest))
	require.False(t, IsKind(err, KindNotFound))
	require.Equal(t, KindBadRequest, GetKind(err))
	require.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestTransient(t *testing.T) {
	err := NewTransient(errors.New("connection refused"))

	require.True(t, IsTransient(err))
	require.True(t, IsTransient(fmt.Errorf("deliver: %w", err)))
	require.False(t, IsTransient(errors.New("connection refused")))
	require.EqualError(t, err, "connection refused")

	require.True(t, IsTransient(NewTransientf("status %d", 502)))
}
