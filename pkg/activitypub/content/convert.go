/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package content

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fedipress/fedipress/pkg/activitypub/text"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
	"github.com/fedipress/fedipress/pkg/config"
)

// internal content type -> ActivityStreams type
var asTypes = map[string]vocab.Type{
	"blog":      vocab.TypeArticle,
	"blog-post": vocab.TypeArticle,
	"note":      vocab.TypeNote,
	"product":   vocab.TypePage,
	"profile":   vocab.TypePerson,
	"event":     vocab.TypeEvent,
	"program":   vocab.TypeEvent,
	"video":     vocab.TypeVideo,
	"image":     vocab.TypeImage,
	"document":  vocab.TypeDocument,
}

// internal content type -> object ID path segment
var typePaths = map[string]string{
	"blog":     "blog",
	"note":     "notes",
	"product":  "products",
	"event":    "events",
	"program":  "programs",
	"video":    "videos",
	"profile":  "profiles",
	"image":    "images",
	"document": "docs",
}

// ASType maps an internal content type to its ActivityStreams type.
func ASType(internalType string) vocab.Type {
	if t, ok := asTypes[internalType]; ok {
		return t
	}

	return vocab.TypeObject
}

// Converter builds ActivityStreams objects from local content.
type Converter struct {
	cfg *config.Config
}

// NewConverter returns a new content converter.
func NewConverter(cfg *config.Config) *Converter {
	return &Converter{cfg: cfg}
}

// ActorURI returns the content-facing actor URI of a local author.
func (c *Converter) ActorURI(handle string) string {
	return c.cfg.SiteBaseURL + "/ap/users/" + handle
}

// FollowersURI returns the followers collection of a content-facing actor URI.
func (c *Converter) FollowersURI(handle string) string {
	return c.ActorURI(handle) + "/followers"
}

// ObjectID derives the canonical object ID for the given content.
func (c *Converter) ObjectID(cnt *Content) string {
	typePath, ok := typePaths[cnt.Type]
	if !ok {
		typePath = "content"
	}

	return fmt.Sprintf("%s/ap/content/%s/%s", c.cfg.SiteBaseURL, typePath, cnt.Slug)
}

// ActivityID derives an activity ID for the given activity type and slug.
// The epoch-millisecond suffix keeps IDs unique per slug.
func (c *Converter) ActivityID(activityType vocab.Type, slug string, at time.Time) string {
	return fmt.Sprintf("%s/ap/activities/%s/%s-%d",
		c.cfg.SiteBaseURL, strings.ToLower(string(activityType)), slug, at.UnixMilli())
}

// AddressingForVisibility returns the to and cc lists for the given
// visibility. Unknown visibilities fall back to public.
func AddressingForVisibility(visibility, actorURI, followersURI string) (to, cc []string) {
	switch visibility {
	case VisibilityUnlisted:
		return []string{followersURI}, []string{vocab.PublicIRI}
	case VisibilityFollowers:
		return []string{followersURI}, nil
	case VisibilityPrivate:
		return []string{actorURI}, nil
	case VisibilityDirect:
		return nil, nil
	default:
		return []string{vocab.PublicIRI}, []string{followersURI}
	}
}

// Addressing returns the to and cc lists for the given content, with
// mentioned actors appended to cc for public and unlisted content, and to
// to otherwise.
func (c *Converter) Addressing(cnt *Content) (to, cc []*url.URL) {
	toStrs, ccStrs := AddressingForVisibility(cnt.Visibility,
		c.ActorURI(cnt.AuthorHandle), c.FollowersURI(cnt.AuthorHandle))

	for _, m := range text.ParseMentions(cnt.Content) {
		switch cnt.Visibility {
		case VisibilityFollowers, VisibilityDirect:
			toStrs = append(toStrs, c.MentionURI(m))
		default:
			ccStrs = append(ccStrs, c.MentionURI(m))
		}
	}

	return parseURIs(toStrs), parseURIs(ccStrs)
}

// MentionURI resolves a mention to an actor URI. Local mentions resolve to
// this instance's actor URI; remote mentions to https://{domain}/@{handle}.
func (c *Converter) MentionURI(m text.Mention) string {
	if !m.IsRemote() || m.Domain == c.cfg.InstanceDomain() {
		return c.cfg.ActorURI(m.Handle)
	}

	return fmt.Sprintf("https://%s/@%s", m.Domain, m.Handle)
}

// Convert maps the given content to an ActivityStreams object.
func (c *Converter) Convert(cnt *Content) (*vocab.ObjectProperty, error) {
	if cnt.Type == "profile" {
		return vocab.NewObjectProperty(vocab.WithEmbeddedActor(c.profileActor(cnt))), nil
	}

	to, cc := c.Addressing(cnt)

	opts := []vocab.Opt{
		vocab.WithID(vocab.MustParseURL(c.ObjectID(cnt))),
		vocab.WithType(ASType(cnt.Type)),
		vocab.WithAttributedTo(vocab.MustParseURL(c.ActorURI(cnt.AuthorHandle))),
		vocab.WithTo(to...),
		vocab.WithCC(cc...),
		vocab.WithPublishedTime(cnt.PublishedAt),
		vocab.WithUpdatedTime(cnt.UpdatedAt),
	}

	var extra vocab.Document

	switch ASType(cnt.Type) {
	case vocab.TypeArticle:
		opts = append(opts, c.articleOpts(cnt)...)
	case vocab.TypeNote:
		opts = append(opts, c.noteOpts(cnt)...)
		extra = vocab.Document{"sensitive": cnt.Frontmatter.Sensitive}
	case vocab.TypeEvent:
		opts = append(opts, c.commonOpts(cnt)...)
		extra = c.eventExtra(cnt)
	case vocab.TypeVideo:
		opts = append(opts, c.videoOpts(cnt)...)
		extra = c.videoExtra(cnt)
	case vocab.TypeImage:
		opts = append(opts, c.imageOpts(cnt)...)
	default:
		opts = append(opts, c.commonOpts(cnt)...)
	}

	obj := vocab.NewObject(opts...)

	if len(extra) > 0 {
		withExtra, err := vocab.NewObjectWithDocument(extra, opts...)
		if err != nil {
			return nil, fmt.Errorf("build %s object for [%s]: %w", ASType(cnt.Type), cnt.Slug, err)
		}

		obj = withExtra
	}

	return vocab.NewObjectProperty(vocab.WithObject(obj)), nil
}

func (c *Converter) commonOpts(cnt *Content) []vocab.Opt {
	opts := []vocab.Opt{
		vocab.WithName(cnt.Title()),
		vocab.WithContent(cnt.Content),
	}

	if summary := c.summary(cnt); summary != "" {
		opts = append(opts, vocab.WithSummary(summary))
	}

	return opts
}

func (c *Converter) articleOpts(cnt *Content) []vocab.Opt {
	opts := c.commonOpts(cnt)

	if cnt.Frontmatter.FeaturedImage != "" {
		opts = append(opts, vocab.WithAttachment(imageAttachment(cnt.Frontmatter.FeaturedImage, "")))
	}

	tags := make([]string, 0, len(cnt.Frontmatter.Tags)+1)
	tags = append(tags, cnt.Frontmatter.Tags...)

	if cnt.Frontmatter.Category != "" {
		tags = append(tags, cnt.Frontmatter.Category)
	}

	if tagProps := c.hashtagProps(tags); len(tagProps) > 0 {
		opts = append(opts, vocab.WithTag(tagProps...))
	}

	return opts
}

func (c *Converter) noteOpts(cnt *Content) []vocab.Opt {
	opts := []vocab.Opt{
		vocab.WithContent(cnt.Content),
	}

	if cnt.Frontmatter.SpoilerText != "" {
		opts = append(opts, vocab.WithSummary(cnt.Frontmatter.SpoilerText))
	}

	if cnt.Frontmatter.InReplyTo != "" {
		opts = append(opts, vocab.WithInReplyTo(vocab.MustParseURL(cnt.Frontmatter.InReplyTo)))
	}

	var tagProps []*vocab.TagProperty

	tagProps = append(tagProps, c.hashtagProps(text.ParseHashtags(cnt.Content))...)

	for _, m := range text.ParseMentions(cnt.Content) {
		tagProps = append(tagProps, vocab.NewTagProperty(
			vocab.WithLink(vocab.NewMention(vocab.MustParseURL(c.MentionURI(m)), m.Raw))))
	}

	if len(tagProps) > 0 {
		opts = append(opts, vocab.WithTag(tagProps...))
	}

	return opts
}

func (c *Converter) videoOpts(cnt *Content) []vocab.Opt {
	opts := c.commonOpts(cnt)

	videoURL := cnt.Frontmatter.URL
	if videoURL == "" {
		videoURL = cnt.Frontmatter.EmbedURL
	}

	if videoURL != "" {
		opts = append(opts, vocab.WithURL(vocab.MustParseURL(videoURL)))
	}

	if cnt.Frontmatter.Image != "" {
		opts = append(opts, vocab.WithAttachment(imageAttachment(cnt.Frontmatter.Image, "thumbnail")))
	}

	return opts
}

func (c *Converter) imageOpts(cnt *Content) []vocab.Opt {
	opts := c.commonOpts(cnt)

	imageURL := cnt.Frontmatter.URL
	if imageURL == "" {
		imageURL = cnt.Frontmatter.Image
	}

	if imageURL == "" {
		imageURL = cnt.Frontmatter.FeaturedImage
	}

	if imageURL != "" {
		opts = append(opts, vocab.WithURL(vocab.MustParseURL(imageURL)))
	}

	return opts
}

func (c *Converter) eventExtra(cnt *Content) vocab.Document {
	extra := make(vocab.Document)

	startTime := firstTime(cnt.Frontmatter.StartDateTime, cnt.Frontmatter.StartDate,
		cnt.Frontmatter.Date, cnt.PublishedAt)
	if startTime != nil {
		extra["startTime"] = startTime.Format(time.RFC3339)
	}

	endTime := firstTime(cnt.Frontmatter.EndDateTime, cnt.Frontmatter.EndDate)
	if endTime != nil {
		extra["endTime"] = endTime.Format(time.RFC3339)
	}

	if cnt.Frontmatter.Location != "" {
		extra["location"] = vocab.Document{
			"type": string(vocab.TypePlace),
			"name": cnt.Frontmatter.Location,
		}
	}

	return extra
}

func (c *Converter) videoExtra(cnt *Content) vocab.Document {
	extra := make(vocab.Document)

	if cnt.Frontmatter.Duration != "" {
		extra["duration"] = cnt.Frontmatter.Duration
	}

	if cnt.Frontmatter.Width > 0 {
		extra["width"] = cnt.Frontmatter.Width
	}

	if cnt.Frontmatter.Height > 0 {
		extra["height"] = cnt.Frontmatter.Height
	}

	return extra
}

// profileActor renders the content-facing Person document of a local author.
func (c *Converter) profileActor(cnt *Content) *vocab.ActorType {
	handle := cnt.AuthorHandle
	actorURI := c.ActorURI(handle)

	opts := []vocab.Opt{
		vocab.WithPreferredUsername(handle),
		vocab.WithInbox(vocab.MustParseURL(actorURI + "/inbox")),
		vocab.WithOutbox(vocab.MustParseURL(actorURI + "/outbox")),
		vocab.WithFollowers(vocab.MustParseURL(actorURI + "/followers")),
		vocab.WithFollowing(vocab.MustParseURL(actorURI + "/following")),
		vocab.WithLiked(vocab.MustParseURL(actorURI + "/liked")),
		vocab.WithDiscoverable(true),
		vocab.WithManuallyApprovesFollowers(false),
	}

	if cnt.Frontmatter.Title != "" {
		opts = append(opts, vocab.WithName(cnt.Frontmatter.Title))
	}

	if summary := c.summary(cnt); summary != "" {
		opts = append(opts, vocab.WithSummary(summary))
	}

	return vocab.NewPerson(vocab.MustParseURL(actorURI), opts...)
}

func (c *Converter) summary(cnt *Content) string {
	if cnt.Frontmatter.Excerpt != "" {
		return cnt.Frontmatter.Excerpt
	}

	return cnt.Frontmatter.Description
}

func (c *Converter) hashtagProps(tags []string) []*vocab.TagProperty {
	props := make([]*vocab.TagProperty, 0, len(tags))

	for _, tag := range tags {
		if tag == "" {
			continue
		}

		href := vocab.MustParseURL(c.cfg.SiteBaseURL + "/tags/" + url.PathEscape(tag))

		props = append(props, vocab.NewTagProperty(vocab.WithLink(vocab.NewHashtag(href, "#"+tag))))
	}

	return props
}

func imageAttachment(imageURL, name string) *vocab.ObjectProperty {
	opts := []vocab.Opt{
		vocab.WithType(vocab.TypeImage),
		vocab.WithURL(vocab.MustParseURL(imageURL)),
	}

	if name != "" {
		opts = append(opts, vocab.WithName(name))
	}

	return vocab.NewObjectProperty(vocab.WithObject(vocab.NewObject(opts...)))
}

func parseURIs(raw []string) []*url.URL {
	uris := make([]*url.URL, 0, len(raw))

	for _, s := range raw {
		u, err := url.Parse(s)
		if err != nil {
			continue
		}

		uris = append(uris, u)
	}

	return uris
}

func firstTime(candidates ...*time.Time) *time.Time {
	for _, t := range candidates {
		if t != nil {
			return t
		}
	}

	return nil
}
