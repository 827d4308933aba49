/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package log

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log fields.
const (
	FieldActivityID     = "activity-id"
	FieldActivityType   = "activity-type"
	FieldActorIRI       = "actor-iri"
	FieldHandle         = "handle"
	FieldDomain         = "domain"
	FieldKeyID          = "key-id"
	FieldTargetIRI      = "target"
	FieldRecipient      = "recipient"
	FieldInboxURL       = "inbox-url"
	FieldObjectIRI      = "object-iri"
	FieldTaskID         = "task-id"
	FieldRetries        = "retries"
	FieldNextRetry      = "next-retry"
	FieldDeliveredCount = "delivered"
	FieldFailedCount    = "failed"
	FieldTopic          = "topic"
	FieldMessageID      = "message-id"
	FieldPayload        = "payload"
	FieldHTTPStatus     = "http-status"
	FieldRequestURL     = "request-url"
	FieldRequestHeaders = "request-headers"
	FieldServiceName    = "service"
	FieldStorePath      = "path"
	FieldNamespace      = "namespace"
	FieldKey            = "key"
	FieldAddress        = "address"
	FieldTotalItems     = "total"
	FieldData           = "data"
	FieldEndpoint       = "endpoint"
	FieldSize           = "size"
	FieldParameter      = "parameter"
	FieldResource       = "resource"
	FieldVisibility     = "visibility"
	FieldDuration       = "duration"
)

// WithError sets the error field.
func WithError(err error) zap.Field {
	return zap.Error(err)
}

// WithActivityID sets the activity-id field.
func WithActivityID(value fmt.Stringer) zap.Field {
	return zap.Stringer(FieldActivityID, value)
}

// WithActivityIDString sets the activity-id field.
func WithActivityIDString(value string) zap.Field {
	return zap.String(FieldActivityID, value)
}

// WithActivityType sets the activity-type field.
func WithActivityType(value string) zap.Field {
	return zap.String(FieldActivityType, value)
}

// WithActorIRI sets the actor-iri field.
func WithActorIRI(value fmt.Stringer) zap.Field {
	return zap.Stringer(FieldActorIRI, value)
}

// WithActorIRIString sets the actor-iri field.
func WithActorIRIString(value string) zap.Field {
	return zap.String(FieldActorIRI, value)
}

// WithHandle sets the handle field.
func WithHandle(value string) zap.Field {
	return zap.String(FieldHandle, value)
}

// WithDomain sets the domain field.
func WithDomain(value string) zap.Field {
	return zap.String(FieldDomain, value)
}

// WithKeyID sets the key-id field.
func WithKeyID(value string) zap.Field {
	return zap.String(FieldKeyID, value)
}

// WithTargetIRI sets the target field.
func WithTargetIRI(value fmt.Stringer) zap.Field {
	return zap.Stringer(FieldTargetIRI, value)
}

// WithRecipient sets the recipient field.
func WithRecipient(value string) zap.Field {
	return zap.String(FieldRecipient, value)
}

// WithInboxURL sets the inbox-url field.
func WithInboxURL(value string) zap.Field {
	return zap.String(FieldInboxURL, value)
}

// WithObjectIRI sets the object-iri field.
func WithObjectIRI(value string) zap.Field {
	return zap.String(FieldObjectIRI, value)
}

// WithTaskID sets the task-id field.
func WithTaskID(value string) zap.Field {
	return zap.String(FieldTaskID, value)
}

// WithRetries sets the retries field.
func WithRetries(value int) zap.Field {
	return zap.Int(FieldRetries, value)
}

// WithNextRetry sets the next-retry field.
func WithNextRetry(value time.Time) zap.Field {
	return zap.Time(FieldNextRetry, value)
}

// WithDeliveredCount sets the delivered field.
func WithDeliveredCount(value int) zap.Field {
	return zap.Int(FieldDeliveredCount, value)
}

// WithFailedCount sets the failed field.
func WithFailedCount(value int) zap.Field {
	return zap.Int(FieldFailedCount, value)
}

// WithTopic sets the topic field.
func WithTopic(value string) zap.Field {
	return zap.String(FieldTopic, value)
}

// WithMessageID sets the message-id field.
func WithMessageID(value string) zap.Field {
	return zap.String(FieldMessageID, value)
}

// WithPayload sets the payload field.
func WithPayload(value []byte) zap.Field {
	return zap.String(FieldPayload, string(value))
}

// WithHTTPStatus sets the http-status field.
func WithHTTPStatus(value int) zap.Field {
	return zap.Int(FieldHTTPStatus, value)
}

// WithRequestURL sets the request-url field.
func WithRequestURL(value fmt.Stringer) zap.Field {
	return zap.Stringer(FieldRequestURL, value)
}

// WithRequestHeaders sets the request-headers field.
func WithRequestHeaders(value http.Header) zap.Field {
	return zap.Object(FieldRequestHeaders, newHTTPHeaderMarshaller(value))
}

// WithServiceName sets the service field.
func WithServiceName(value string) zap.Field {
	return zap.String(FieldServiceName, value)
}

// WithStorePath sets the path field.
func WithStorePath(value string) zap.Field {
	return zap.String(FieldStorePath, value)
}

// WithNamespace sets the namespace field.
func WithNamespace(value string) zap.Field {
	return zap.String(FieldNamespace, value)
}

// WithKey sets the key field.
func WithKey(value string) zap.Field {
	return zap.String(FieldKey, value)
}

// WithAddress sets the address field.
func WithAddress(value string) zap.Field {
	return zap.String(FieldAddress, value)
}

// WithTotalItems sets the total field.
func WithTotalItems(value int) zap.Field {
	return zap.Int(FieldTotalItems, value)
}

// WithData sets the data field.
func WithData(value []byte) zap.Field {
	return zap.ByteString(FieldData, value)
}

// WithServiceEndpoint sets the endpoint field.
func WithServiceEndpoint(value string) zap.Field {
	return zap.String(FieldEndpoint, value)
}

// WithSize sets the size field.
func WithSize(value int) zap.Field {
	return zap.Int(FieldSize, value)
}

// WithParameter sets the parameter field.
func WithParameter(value string) zap.Field {
	return zap.String(FieldParameter, value)
}

// WithResource sets the resource field.
func WithResource(value string) zap.Field {
	return zap.String(FieldResource, value)
}

// WithVisibility sets the visibility field.
func WithVisibility(value string) zap.Field {
	return zap.String(FieldVisibility, value)
}

// WithDuration sets the duration field.
func WithDuration(value time.Duration) zap.Field {
	return zap.Duration(FieldDuration, value)
}

type httpHeaderMarshaller struct {
	headers http.Header
}

func newHTTPHeaderMarshaller(headers http.Header) *httpHeaderMarshaller {
	return &httpHeaderMarshaller{headers: headers}
}

func (m *httpHeaderMarshaller) MarshalLogObject(e zapcore.ObjectEncoder) error {
	for k, values := range m.headers {
		if err := e.AddArray(k, zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
			for _, v := range values {
				ae.AppendString(v)
			}

			return nil
		})); err != nil {
			return fmt.Errorf("marshal header %s: %w", k, err)
		}
	}

	return nil
}
