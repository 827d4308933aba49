/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package content converts internal site content into ActivityStreams
// objects and wraps them in activities.
package content

import (
	"time"
)

// Visibility values recognized by the addressing rules.
const (
	VisibilityPublic    = "public"
	VisibilityUnlisted  = "unlisted"
	VisibilityFollowers = "followers"
	VisibilityPrivate   = "private"
	VisibilityDirect    = "direct"
)

// Content is a unit of local site content to federate.
type Content struct {
	Slug         string
	Type         string
	Content      string
	Visibility   string
	PublishedAt  *time.Time
	UpdatedAt    *time.Time
	AuthorHandle string
	Frontmatter  Frontmatter
}

// Frontmatter holds the content's metadata. Only the fields relevant to the
// content's type are consulted.
type Frontmatter struct {
	Title         string
	Excerpt       string
	Description   string
	Tags          []string
	Category      string
	FeaturedImage string

	// Note fields.
	SpoilerText string
	Sensitive   bool
	InReplyTo   string

	// Event fields.
	StartDateTime *time.Time
	StartDate     *time.Time
	Date          *time.Time
	EndDateTime   *time.Time
	EndDate       *time.Time
	Location      string

	// Video and image fields.
	URL      string
	EmbedURL string
	Duration string
	Width    int
	Height   int
	Image    string

	// NoFederate excludes the content from federation entirely.
	NoFederate bool
}

// Title returns the frontmatter title, falling back to the slug.
func (c *Content) Title() string {
	if c.Frontmatter.Title != "" {
		return c.Frontmatter.Title
	}

	return c.Slug
}
