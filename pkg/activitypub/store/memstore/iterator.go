/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package memstore

import (
	"github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
)

type activityIterator struct {
	results []*vocab.ActivityType
	current int
}

func newActivityIterator(results []*vocab.ActivityType) *activityIterator {
	return &activityIterator{
		results: results,
	}
}

// Next returns the next activity or ErrNotFound if there are no more items.
func (it *activityIterator) Next() (*vocab.ActivityType, error) {
	if it.current >= len(it.results) {
		return nil, spi.ErrNotFound
	}

	a := it.results[it.current]
	it.current++

	return a, nil
}

// TotalItems returns the total number of matching items.
func (it *activityIterator) TotalItems() int {
	return len(it.results)
}

// Close closes the iterator.
func (it *activityIterator) Close() {
}
