/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vocab

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// ObjectType defines an 'object'.
type ObjectType struct {
	object     *objectType
	additional Document
}

// NewObject returns a new 'object'.
func NewObject(opts ...Opt) *ObjectType {
	options := NewOptions(opts...)

	return &ObjectType{
		object: &objectType{
			Context:      NewContextProperty(options.Context...),
			ID:           NewURLProperty(options.ID),
			Type:         NewTypeProperty(options.Types...),
			To:           NewURLCollectionProperty(options.To...),
			CC:           NewURLCollectionProperty(options.CC...),
			Published:    options.Published,
			Updated:      options.Updated,
			AttributedTo: NewURLProperty(options.AttributedTo),
			InReplyTo:    NewURLProperty(options.InReplyTo),
			Name:         options.Name,
			Summary:      options.Summary,
			Content:      options.Content,
			MediaType:    options.MediaType,
			URL:          NewURLCollectionProperty(options.URL...),
			Tag:          options.Tags,
			Attachment:   options.Attachment,
		},
	}
}

// NewObjectWithDocument returns a new object initialized with the given document.
func NewObjectWithDocument(doc Document, opts ...Opt) (*ObjectType, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}

	bytes, err := MarshalJSON(NewObject(opts...), doc)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	obj := &ObjectType{}

	err = json.Unmarshal(bytes, &obj)
	if err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	return obj, nil
}

type objectType struct {
	Context      *ContextProperty       `json:"@context,omitempty"`
	ID           *URLProperty           `json:"id,omitempty"`
	Type         *TypeProperty          `json:"type,omitempty"`
	To           *URLCollectionProperty `json:"to,omitempty"`
	CC           *URLCollectionProperty `json:"cc,omitempty"`
	Published    *time.Time             `json:"published,omitempty"`
	Updated      *time.Time             `json:"updated,omitempty"`
	AttributedTo *URLProperty           `json:"attributedTo,omitempty"`
	InReplyTo    *URLProperty           `json:"inReplyTo,omitempty"`
	Name         string                 `json:"name,omitempty"`
	Summary      string                 `json:"summary,omitempty"`
	Content      string                 `json:"content,omitempty"`
	MediaType    string                 `json:"mediaType,omitempty"`
	URL          *URLCollectionProperty `json:"url,omitempty"`
	Tag          []*TagProperty         `json:"tag,omitempty"`
	Attachment   []*ObjectProperty      `json:"attachment,omitempty"`
}

// Context returns the context property.
func (t *ObjectType) Context() *ContextProperty {
	return t.object.Context
}

// ID returns the object's ID.
func (t *ObjectType) ID() *URLProperty {
	return t.object.ID
}

// SetID sets the object's ID.
func (t *ObjectType) SetID(id *url.URL) {
	t.object.ID = NewURLProperty(id)
}

// Type returns the type of the object.
func (t *ObjectType) Type() *TypeProperty {
	return t.object.Type
}

// Published returns the time when the object was published.
func (t *ObjectType) Published() *time.Time {
	return t.object.Published
}

// Updated returns the time when the object was last updated.
func (t *ObjectType) Updated() *time.Time {
	return t.object.Updated
}

// AttributedTo returns the IRI of the actor that the object is attributed to.
func (t *ObjectType) AttributedTo() *URLProperty {
	return t.object.AttributedTo
}

// InReplyTo returns the IRI of the object that this object is a reply to.
func (t *ObjectType) InReplyTo() *URLProperty {
	return t.object.InReplyTo
}

// Name returns the object's display name.
func (t *ObjectType) Name() string {
	return t.object.Name
}

// Summary returns the object's summary.
func (t *ObjectType) Summary() string {
	return t.object.Summary
}

// Content returns the object's content.
func (t *ObjectType) Content() string {
	return t.object.Content
}

// MediaType returns the media type of the content.
func (t *ObjectType) MediaType() string {
	return t.object.MediaType
}

// URL returns the object's URLs.
func (t *ObjectType) URL() []*url.URL {
	if t.object.URL == nil {
		return nil
	}

	return t.object.URL.URLs()
}

// Tag returns the object's tags.
func (t *ObjectType) Tag() []*TagProperty {
	return t.object.Tag
}

// Attachment returns the object's attachments.
func (t *ObjectType) Attachment() []*ObjectProperty {
	return t.object.Attachment
}

// To returns a set of URLs to which the object should be sent.
func (t *ObjectType) To() Recipients {
	if t.object.To == nil {
		return nil
	}

	return t.object.To.URLs()
}

// CC returns a set of URLs to which a copy of the object should be sent.
func (t *ObjectType) CC() Recipients {
	if t.object.CC == nil {
		return nil
	}

	return t.object.CC.URLs()
}

// Value returns the value of a property.
func (t *ObjectType) Value(key string) (interface{}, bool) {
	v, ok := t.additional[key]

	return v, ok
}

// MarshalJSON marshals the object.
func (t *ObjectType) MarshalJSON() ([]byte, error) {
	return MarshalJSON(t.object, t.additional)
}

// UnmarshalJSON unmarshals the object.
func (t *ObjectType) UnmarshalJSON(bytes []byte) error {
	header := &objectType{}

	err := json.Unmarshal(bytes, header)
	if err != nil {
		return err
	}

	doc := make(Document)

	err = json.Unmarshal(bytes, &doc)
	if err != nil {
		return err
	}

	// Delete all of the reserved ActivityStreams fields
	for _, prop := range reservedProperties() {
		delete(doc, prop)
	}

	t.object = header
	t.additional = doc

	return nil
}

// Recipients holds a set of recipient IRIs.
type Recipients []*url.URL

// Contains returns true if the recipients contain the given IRI.
func (r Recipients) Contains(iri fmt.Stringer) bool {
	if iri == nil {
		return false
	}

	for _, u := range r {
		if u.String() == iri.String() {
			return true
		}
	}

	return false
}

// IsPublic returns true if the recipients contain the 'Public' IRI.
func (r Recipients) IsPublic() bool {
	for _, u := range r {
		if u.String() == PublicIRI {
			return true
		}
	}

	return false
}
