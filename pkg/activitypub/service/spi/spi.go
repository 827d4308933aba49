/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package spi defines the interfaces between the ActivityPub services.
package spi

import (
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
	"github.com/fedipress/fedipress/pkg/lifecycle"
)

// ServiceLifecycle defines the functions of a service lifecycle.
type ServiceLifecycle interface {
	// Start starts the service.
	Start()
	// Stop stops the service.
	Stop()
	// State returns the state of the service.
	State() lifecycle.State
}

// ActivityHandler handles an inbound ActivityPub activity that has already
// passed signature verification.
type ActivityHandler interface {
	// HandleActivity handles the activity addressed to the local actor with
	// the given handle.
	HandleActivity(handle string, activity *vocab.ActivityType) error
}

// Outbox enqueues activities for delivery to remote inboxes.
type Outbox interface {
	ServiceLifecycle

	// Deliver persists a delivery task for the given activity and recipients
	// and triggers an asynchronous drain. The sender handle selects the
	// signing key; an empty sender sends unsigned requests.
	Deliver(activity *vocab.ActivityType, recipients []string, senderHandle string) (taskID string, err error)
}

// DeliveryStats reports the state of the outbound delivery queue.
type DeliveryStats struct {
	Pending   int
	Delivered int
	Failed    int
}
