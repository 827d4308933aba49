/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vocab

import (
	"net/url"
)

// CollectionType defines a 'Collection'.
type CollectionType struct {
	*ObjectType

	coll *collectionType
}

type collectionType struct {
	Current    *URLProperty      `json:"current,omitempty"`
	First      *URLProperty      `json:"first,omitempty"`
	Last       *URLProperty      `json:"last,omitempty"`
	TotalItems int               `json:"totalItems"`
	Items      []*ObjectProperty `json:"items,omitempty"`
}

// NewCollection returns a new 'Collection' with the given items.
func NewCollection(items []*ObjectProperty, opts ...Opt) *CollectionType {
	options := NewOptions(opts...)

	return &CollectionType{
		ObjectType: NewObject(
			WithContext(getContexts(options)...),
			WithID(options.ID),
			WithType(TypeCollection),
		),
		coll: &collectionType{
			Current:    NewURLProperty(options.Current),
			First:      NewURLProperty(options.First),
			Last:       NewURLProperty(options.Last),
			TotalItems: options.TotalItems,
			Items:      items,
		},
	}
}

// Current returns the current page of the collection.
func (t *CollectionType) Current() *url.URL {
	if t.coll.Current == nil {
		return nil
	}

	return t.coll.Current.URL()
}

// First returns the first page of the collection.
func (t *CollectionType) First() *url.URL {
	if t.coll.First == nil {
		return nil
	}

	return t.coll.First.URL()
}

// Last returns the last page of the collection.
func (t *CollectionType) Last() *url.URL {
	if t.coll.Last == nil {
		return nil
	}

	return t.coll.Last.URL()
}

// TotalItems returns the total number of items in the collection.
func (t *CollectionType) TotalItems() int {
	return t.coll.TotalItems
}

// Items returns the items in the collection.
func (t *CollectionType) Items() []*ObjectProperty {
	return t.coll.Items
}

// SetTotalItems sets the total number of items in the collection.
func (t *CollectionType) SetTotalItems(totalItems int) {
	t.coll.TotalItems = totalItems
}

// MarshalJSON marshals the collection.
func (t *CollectionType) MarshalJSON() ([]byte, error) {
	return MarshalJSON(t.ObjectType, t.coll)
}

// UnmarshalJSON unmarshals the collection.
func (t *CollectionType) UnmarshalJSON(bytes []byte) error {
	t.ObjectType = NewObject()
	t.coll = &collectionType{}

	return UnmarshalJSON(bytes, t.ObjectType, t.coll)
}

// OrderedCollectionType defines an 'OrderedCollection'.
type OrderedCollectionType struct {
	*ObjectType

	coll *orderedCollectionType
}

type orderedCollectionType struct {
	Current      *URLProperty      `json:"current,omitempty"`
	First        *URLProperty      `json:"first,omitempty"`
	Last         *URLProperty      `json:"last,omitempty"`
	TotalItems   int               `json:"totalItems"`
	OrderedItems []*ObjectProperty `json:"orderedItems,omitempty"`
}

// NewOrderedCollection returns a new 'OrderedCollection' with the given items.
func NewOrderedCollection(items []*ObjectProperty, opts ...Opt) *OrderedCollectionType {
	options := NewOptions(opts...)

	return &OrderedCollectionType{
		ObjectType: NewObject(
			WithContext(getContexts(options)...),
			WithID(options.ID),
			WithType(TypeOrderedCollection),
		),
		coll: &orderedCollectionType{
			Current:      NewURLProperty(options.Current),
			First:        NewURLProperty(options.First),
			Last:         NewURLProperty(options.Last),
			TotalItems:   options.TotalItems,
			OrderedItems: items,
		},
	}
}

// Current returns the current page of the collection.
func (t *OrderedCollectionType) Current() *url.URL {
	if t.coll.Current == nil {
		return nil
	}

	return t.coll.Current.URL()
}

// First returns the first page of the collection.
func (t *OrderedCollectionType) First() *url.URL {
	if t.coll.First == nil {
		return nil
	}

	return t.coll.First.URL()
}

// Last returns the last page of the collection.
func (t *OrderedCollectionType) Last() *url.URL {
	if t.coll.Last == nil {
		return nil
	}

	return t.coll.Last.URL()
}

// TotalItems returns the total number of items in the collection.
func (t *OrderedCollectionType) TotalItems() int {
	return t.coll.TotalItems
}

// Items returns the ordered items in the collection.
func (t *OrderedCollectionType) Items() []*ObjectProperty {
	return t.coll.OrderedItems
}

// SetTotalItems sets the total number of items in the collection.
func (t *OrderedCollectionType) SetTotalItems(totalItems int) {
	t.coll.TotalItems = totalItems
}

// MarshalJSON marshals the ordered collection.
func (t *OrderedCollectionType) MarshalJSON() ([]byte, error) {
	return MarshalJSON(t.ObjectType, t.coll)
}

// UnmarshalJSON unmarshals the ordered collection.
func (t *OrderedCollectionType) UnmarshalJSON(bytes []byte) error {
	t.ObjectType = NewObject()
	t.coll = &orderedCollectionType{}

	return UnmarshalJSON(bytes, t.ObjectType, t.coll)
}
