/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vocab

import (
	"encoding/json"
)

// ContextProperty is the '@context' property of a document, which may hold
// one or more JSON-LD contexts.
type ContextProperty struct {
	contexts []Context
}

// NewContextProperty wraps the given contexts. An empty list yields a nil
// property.
func NewContextProperty(contexts ...Context) *ContextProperty {
	if len(contexts) == 0 {
		return nil
	}

	return &ContextProperty{contexts: contexts}
}

// Contexts returns all contexts held by the property.
func (p *ContextProperty) Contexts() []Context {
	if p == nil {
		return nil
	}

	return p.contexts
}

// Contains returns true if the property holds all of the given contexts.
func (p *ContextProperty) Contains(contexts ...Context) bool {
	if p == nil || len(contexts) == 0 {
		return false
	}

	for _, c := range contexts {
		if !p.contains(c) {
			return false
		}
	}

	return true
}

// ContainsAny returns true if the property holds any of the given contexts.
func (p *ContextProperty) ContainsAny(contexts ...Context) bool {
	if p == nil {
		return false
	}

	for _, c := range contexts {
		if p.contains(c) {
			return true
		}
	}

	return false
}

func (p *ContextProperty) contains(c Context) bool {
	for _, pc := range p.contexts {
		if pc == c {
			return true
		}
	}

	return false
}

// MarshalJSON marshals the contexts, collapsing a single context to a string.
func (p *ContextProperty) MarshalJSON() ([]byte, error) {
	if len(p.contexts) == 1 {
		return json.Marshal(p.contexts[0])
	}

	return json.Marshal(p.contexts)
}

// UnmarshalJSON unmarshals either a single context string or an array of
// them.
func (p *ContextProperty) UnmarshalJSON(data []byte) error {
	var single Context

	if err := json.Unmarshal(data, &single); err == nil {
		p.contexts = []Context{single}

		return nil
	}

	var contexts []Context

	if err := json.Unmarshal(data, &contexts); err != nil {
		return err
	}

	p.contexts = contexts

	return nil
}
