/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vocab

import (
	"encoding/json"
	"net/url"
	"time"
)

// TombstoneType defines a 'Tombstone' object, which replaces a deleted object
// and records the type the object had before deletion.
type TombstoneType struct {
	*ObjectType

	tombstone *tombstoneType
}

type tombstoneType struct {
	FormerType *TypeProperty `json:"formerType,omitempty"`
	Deleted    *time.Time    `json:"deleted,omitempty"`
}

// NewTombstone returns a new 'Tombstone' object.
func NewTombstone(id *url.URL, formerType Type, deleted *time.Time, opts ...Opt) *TombstoneType {
	options := NewOptions(opts...)

	return &TombstoneType{
		ObjectType: NewObject(
			WithContext(options.Context...),
			WithID(id),
			WithType(TypeTombstone),
		),
		tombstone: &tombstoneType{
			FormerType: NewTypeProperty(formerType),
			Deleted:    deleted,
		},
	}
}

// FormerType returns the type that the object had before it was deleted.
func (t *TombstoneType) FormerType() *TypeProperty {
	if t == nil || t.tombstone == nil {
		return nil
	}

	return t.tombstone.FormerType
}

// Deleted returns the time at which the object was deleted.
func (t *TombstoneType) Deleted() *time.Time {
	if t == nil || t.tombstone == nil {
		return nil
	}

	return t.tombstone.Deleted
}

// MarshalJSON marshals the tombstone.
func (t *TombstoneType) MarshalJSON() ([]byte, error) {
	return MarshalJSON(t.ObjectType, t.tombstone)
}

// UnmarshalJSON unmarshals the tombstone.
func (t *TombstoneType) UnmarshalJSON(bytes []byte) error {
	t.ObjectType = NewObject()
	t.tombstone = &tombstoneType{}

	return UnmarshalJSON(bytes, t.ObjectType, t.tombstone)
}

// ToTombstone converts the given object to a Tombstone. An error is returned
// if the object is not of type Tombstone.
func (t *ObjectType) ToTombstone() (*TombstoneType, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}

	ts := &TombstoneType{}

	if err := json.Unmarshal(b, ts); err != nil {
		return nil, err
	}

	return ts, nil
}
