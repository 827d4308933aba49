/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vocab

import (
	"net/url"
)

// LinkType defines the ActivityPub 'Link' type, including the
// 'Mention' and 'Hashtag' tag subtypes.
type LinkType struct {
	link *linkType
}

type linkType struct {
	Type *TypeProperty `json:"type,omitempty"`
	HRef *URLProperty  `json:"href,omitempty"`
	Name string        `json:"name,omitempty"`
	Rel  []string      `json:"rel,omitempty"`
}

// NewLink creates a new Link type.
func NewLink(hRef *url.URL, rel ...string) *LinkType {
	return &LinkType{
		link: &linkType{
			Type: NewTypeProperty(TypeLink),
			HRef: NewURLProperty(hRef),
			Rel:  rel,
		},
	}
}

// NewMention creates a new Mention tag. The name is the @user@domain form of
// the mentioned actor and the href is the actor's URI.
func NewMention(hRef *url.URL, name string) *LinkType {
	return &LinkType{
		link: &linkType{
			Type: NewTypeProperty(TypeMention),
			HRef: NewURLProperty(hRef),
			Name: name,
		},
	}
}

// NewHashtag creates a new Hashtag tag. The name carries the leading '#' and
// the href points at the local tag page.
func NewHashtag(hRef *url.URL, name string) *LinkType {
	return &LinkType{
		link: &linkType{
			Type: NewTypeProperty(TypeHashtag),
			HRef: NewURLProperty(hRef),
			Name: name,
		},
	}
}

// Type returns the type of the link.
func (t *LinkType) Type() *TypeProperty {
	if t == nil || t.link == nil {
		return nil
	}

	return t.link.Type
}

// HRef returns the reference ('href' field).
func (t *LinkType) HRef() *url.URL {
	if t == nil || t.link == nil || t.link.HRef == nil {
		return nil
	}

	return t.link.HRef.URL()
}

// Name returns the display name ('name' field).
func (t *LinkType) Name() string {
	if t == nil || t.link == nil {
		return ""
	}

	return t.link.Name
}

// Rel returns the relationship ('rel' field).
func (t *LinkType) Rel() Relationship {
	if t == nil || t.link == nil {
		return nil
	}

	return t.link.Rel
}

// MarshalJSON marshals the link type to JSON.
func (t *LinkType) MarshalJSON() ([]byte, error) {
	return MarshalJSON(t.link)
}

// UnmarshalJSON unmarshals the link type from JSON.
func (t *LinkType) UnmarshalJSON(bytes []byte) error {
	t.link = &linkType{}

	return UnmarshalJSON(bytes, &t.link)
}

// Relationship holds the relationship of the Link.
type Relationship []string

// Is returns true if the given relationship is contained.
func (r Relationship) Is(relationship string) bool {
	for _, rel := range r {
		if rel == relationship {
			return true
		}
	}

	return false
}
