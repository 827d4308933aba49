/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package outbox

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	initialBackoff = 2 * time.Second
	maxBackoff     = 5 * time.Minute
)

// retryInterval returns the wait before the given (1-based) retry. The
// interval doubles with each retry and is capped at maxBackoff.
func retryInterval(retryCount int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialBackoff
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = maxBackoff
	b.MaxElapsedTime = 0

	interval := b.NextBackOff()

	for i := 1; i < retryCount; i++ {
		interval = b.NextBackOff()
	}

	if interval > maxBackoff {
		interval = maxBackoff
	}

	return interval
}
