/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package errors defines the federation error taxonomy. Each kind maps to the
// HTTP status code that the route layer should respond with.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies the category of a federation error.
type Kind int

// Error kinds.
const (
	// KindFederation is the generic federation error.
	KindFederation Kind = iota
	// KindNotFound indicates that a handle, object or activity does not exist.
	KindNotFound
	// KindUnauthorized indicates missing credentials.
	KindUnauthorized
	// KindBadRequest indicates a malformed envelope or resource string.
	KindBadRequest
	// KindSignatureVerification indicates an invalid or absent HTTP signature.
	KindSignatureVerification
	// KindDelivery indicates that a remote inbox rejected a POST or the
	// network failed.
	KindDelivery
)

// StatusCode returns the HTTP status code for the kind.
func (k Kind) StatusCode() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBadRequest:
		return http.StatusBadRequest
	case KindSignatureVerification:
		return http.StatusForbidden
	case KindDelivery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindUnauthorized:
		return "Unauthorized"
	case KindBadRequest:
		return "BadRequest"
	case KindSignatureVerification:
		return "SignatureVerification"
	case KindDelivery:
		return "Delivery"
	default:
		return "Federation"
	}
}

// FederationError is an error with a Kind.
type FederationError struct {
	kind Kind
	err  error
}

// Error returns the message of the wrapped error.
func (e *FederationError) Error() string {
	return e.err.Error()
}

// Unwrap returns the wrapped error.
func (e *FederationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of the error.
func (e *FederationError) Kind() Kind {
	return e.kind
}

// StatusCode returns the HTTP status code mapped to the error's kind.
func (e *FederationError) StatusCode() int {
	return e.kind.StatusCode()
}

// New returns a federation error of the given kind.
func New(kind Kind, err error) error {
	return &FederationError{kind: kind, err: err}
}

// Newf returns a federation error of the given kind with a formatted message.
func Newf(kind Kind, format string, a ...interface{}) error {
	return &FederationError{kind: kind, err: fmt.Errorf(format, a...)}
}

// NewNotFound returns a NotFound error.
func NewNotFound(err error) error {
	return New(KindNotFound, err)
}

// NewNotFoundf returns a NotFound error with a formatted message.
func NewNotFoundf(format string, a ...interface{}) error {
	return Newf(KindNotFound, format, a...)
}

// NewUnauthorized returns an Unauthorized error.
func NewUnauthorized(err error) error {
	return New(KindUnauthorized, err)
}

// NewBadRequest returns a BadRequest error.
func NewBadRequest(err error) error {
	return New(KindBadRequest, err)
}

// NewBadRequestf returns a BadRequest error with a formatted message.
func NewBadRequestf(format string, a ...interface{}) error {
	return Newf(KindBadRequest, format, a...)
}

// NewSignatureVerification returns a SignatureVerification error.
func NewSignatureVerification(err error) error {
	return New(KindSignatureVerification, err)
}

// NewSignatureVerificationf returns a SignatureVerification error with a
// formatted message.
func NewSignatureVerificationf(format string, a ...interface{}) error {
	return Newf(KindSignatureVerification, format, a...)
}

// NewDelivery returns a Delivery error.
func NewDelivery(err error) error {
	return New(KindDelivery, err)
}

// NewDeliveryf returns a Delivery error with a formatted message.
func NewDeliveryf(format string, a ...interface{}) error {
	return Newf(KindDelivery, format, a...)
}

// GetKind returns the kind of the given error, or KindFederation if the error
// is not a FederationError.
func GetKind(err error) Kind {
	var fe *FederationError

	if errors.As(err, &fe) {
		return fe.Kind()
	}

	return KindFederation
}

// StatusCode returns the HTTP status code for the given error.
func StatusCode(err error) int {
	return GetKind(err).StatusCode()
}

// IsKind returns true if the given error is of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *FederationError

	return errors.As(err, &fe) && fe.Kind() == kind
}

var transientType = &transient{} //nolint:gochecknoglobals

// NewTransient returns a transient error that wraps the given error in order
// to indicate to the caller that a retry may resolve the problem, whereas a
// persistent error will always fail with the same outcome if retried.
func NewTransient(err error) error {
	return &transient{err: err}
}

// NewTransientf returns a transient error with a formatted message.
func NewTransientf(format string, a ...interface{}) error {
	return &transient{err: fmt.Errorf(format, a...)}
}

// IsTransient returns true if the given error is a transient error.
func IsTransient(err error) bool {
	return errors.As(err, &transientType)
}

type transient struct {
	err error
}

func (e *transient) Error() string {
	return e.err.Error()
}

func (e *transient) Unwrap() error {
	return e.err
}
