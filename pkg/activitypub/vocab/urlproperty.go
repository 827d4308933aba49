/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vocab

import (
	"encoding/json"
	"net/url"
)

// URLProperty holds a single URL and marshals to a JSON string.
type URLProperty struct {
	u *url.URL
}

// NewURLProperty wraps the given URL. A nil URL yields a nil property so that
// the field is omitted from the marshaled document.
func NewURLProperty(u *url.URL) *URLProperty {
	if u == nil {
		return nil
	}

	return &URLProperty{u: u}
}

// String returns the URL as a string, or "" for a nil property.
func (p *URLProperty) String() string {
	if p == nil || p.u == nil {
		return ""
	}

	return p.u.String()
}

// URL returns the wrapped URL.
func (p *URLProperty) URL() *url.URL {
	if p == nil {
		return nil
	}

	return p.u
}

// MarshalJSON marshals the URL as a JSON string.
func (p *URLProperty) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.u.String())
}

// UnmarshalJSON unmarshals the URL from a JSON string.
func (p *URLProperty) UnmarshalJSON(data []byte) error {
	var s string

	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	u, err := url.Parse(s)
	if err != nil {
		return err
	}

	p.u = u

	return nil
}

// URLCollectionProperty holds one or more URLs. A single URL marshals as a
// plain string, multiple URLs as an array, matching what other fediverse
// servers produce.
type URLCollectionProperty struct {
	urls []*URLProperty
}

// NewURLCollectionProperty wraps the given URLs. An empty list yields a nil
// property.
func NewURLCollectionProperty(urls ...*url.URL) *URLCollectionProperty {
	if len(urls) == 0 {
		return nil
	}

	p := &URLCollectionProperty{urls: make([]*URLProperty, len(urls))}

	for i, u := range urls {
		p.urls[i] = &URLProperty{u: u}
	}

	return p
}

// URLs returns the wrapped URLs.
func (p *URLCollectionProperty) URLs() []*url.URL {
	urls := make([]*url.URL, len(p.urls))

	for i, u := range p.urls {
		urls[i] = u.URL()
	}

	return urls
}

// MarshalJSON marshals the collection, collapsing a single URL to a string.
func (p *URLCollectionProperty) MarshalJSON() ([]byte, error) {
	if len(p.urls) == 1 {
		return json.Marshal(p.urls[0])
	}

	return json.Marshal(p.urls)
}

// UnmarshalJSON unmarshals either a single URL string or an array of them.
func (p *URLCollectionProperty) UnmarshalJSON(data []byte) error {
	single := &URLProperty{}

	if err := json.Unmarshal(data, single); err == nil {
		p.urls = []*URLProperty{single}

		return nil
	}

	var urls []*URLProperty

	if err := json.Unmarshal(data, &urls); err != nil {
		return err
	}

	p.urls = urls

	return nil
}
