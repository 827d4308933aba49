/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vocab

import (
	"net/url"
)

// OrderedCollectionPageType defines an 'OrderedCollectionPage'.
type OrderedCollectionPageType struct {
	*ObjectType

	page *orderedCollectionPageType
}

type orderedCollectionPageType struct {
	Next         *URLProperty      `json:"next,omitempty"`
	Prev         *URLProperty      `json:"prev,omitempty"`
	PartOf       *URLProperty      `json:"partOf,omitempty"`
	TotalItems   int               `json:"totalItems"`
	OrderedItems []*ObjectProperty `json:"orderedItems,omitempty"`
}

// NewOrderedCollectionPage returns a new 'OrderedCollectionPage' with the given items.
func NewOrderedCollectionPage(items []*ObjectProperty, opts ...Opt) *OrderedCollectionPageType {
	options := NewOptions(opts...)

	return &OrderedCollectionPageType{
		ObjectType: NewObject(
			WithContext(getContexts(options)...),
			WithID(options.ID),
			WithType(TypeOrderedCollectionPage),
		),
		page: &orderedCollectionPageType{
			Next:         NewURLProperty(options.Next),
			Prev:         NewURLProperty(options.Prev),
			PartOf:       NewURLProperty(options.PartOf),
			TotalItems:   options.TotalItems,
			OrderedItems: items,
		},
	}
}

// Next returns the next page of the collection.
func (t *OrderedCollectionPageType) Next() *url.URL {
	if t.page.Next == nil {
		return nil
	}

	return t.page.Next.URL()
}

// Prev returns the previous page of the collection.
func (t *OrderedCollectionPageType) Prev() *url.URL {
	if t.page.Prev == nil {
		return nil
	}

	return t.page.Prev.URL()
}

// PartOf returns the collection to which this page belongs.
func (t *OrderedCollectionPageType) PartOf() *url.URL {
	if t.page.PartOf == nil {
		return nil
	}

	return t.page.PartOf.URL()
}

// TotalItems returns the total number of items in the collection.
func (t *OrderedCollectionPageType) TotalItems() int {
	return t.page.TotalItems
}

// Items returns the ordered items in the page.
func (t *OrderedCollectionPageType) Items() []*ObjectProperty {
	return t.page.OrderedItems
}

// MarshalJSON marshals the ordered collection page.
func (t *OrderedCollectionPageType) MarshalJSON() ([]byte, error) {
	return MarshalJSON(t.ObjectType, t.page)
}

// UnmarshalJSON unmarshals the ordered collection page.
func (t *OrderedCollectionPageType) UnmarshalJSON(bytes []byte) error {
	t.ObjectType = NewObject()
	t.page = &orderedCollectionPageType{}

	return UnmarshalJSON(bytes, t.ObjectType, t.page)
}
