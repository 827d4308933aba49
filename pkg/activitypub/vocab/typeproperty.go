/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vocab

import (
	"encoding/json"
	"strings"
)

// TypeProperty is the 'type' property of an object, which may hold one or
// more types.
type TypeProperty struct {
	types []Type
}

// NewTypeProperty wraps the given types. An empty list yields a nil property.
func NewTypeProperty(t ...Type) *TypeProperty {
	if len(t) == 0 {
		return nil
	}

	return &TypeProperty{types: t}
}

// Types returns all types held by the property.
func (p *TypeProperty) Types() []Type {
	if p == nil {
		return nil
	}

	return p.types
}

// String renders the types for logs and error messages.
func (p *TypeProperty) String() string {
	if p == nil || len(p.types) == 0 {
		return ""
	}

	strs := make([]string, len(p.types))

	for i, t := range p.types {
		strs[i] = string(t)
	}

	return strings.Join(strs, ",")
}

// Is returns true if the property holds all of the given types.
func (p *TypeProperty) Is(types ...Type) bool {
	if p == nil || len(types) == 0 {
		return false
	}

	for _, t := range types {
		if !p.is(t) {
			return false
		}
	}

	return true
}

// IsAny returns true if the property holds any of the given types.
func (p *TypeProperty) IsAny(types ...Type) bool {
	if p == nil {
		return false
	}

	for _, t := range types {
		if p.is(t) {
			return true
		}
	}

	return false
}

func (p *TypeProperty) is(t Type) bool {
	for _, pt := range p.types {
		if pt == t {
			return true
		}
	}

	return false
}

// MarshalJSON marshals the types, collapsing a single type to a string.
func (p *TypeProperty) MarshalJSON() ([]byte, error) {
	if len(p.types) == 1 {
		return json.Marshal(p.types[0])
	}

	return json.Marshal(p.types)
}

// UnmarshalJSON unmarshals either a single type string or an array of them.
func (p *TypeProperty) UnmarshalJSON(data []byte) error {
	var single Type

	if err := json.Unmarshal(data, &single); err == nil {
		p.types = []Type{single}

		return nil
	}

	var types []Type

	if err := json.Unmarshal(data, &types); err != nil {
		return err
	}

	p.types = types

	return nil
}
