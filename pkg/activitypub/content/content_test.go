/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package content

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
	"github.com/fedipress/fedipress/pkg/config"
)

func TestASType(t *testing.T) {
	require.Equal(t, vocab.TypeArticle, ASType("blog"))
	require.Equal(t, vocab.TypeArticle, ASType("blog-post"))
	require.Equal(t, vocab.TypeNote, ASType("note"))
	require.Equal(t, vocab.TypePage, ASType("product"))
	require.Equal(t, vocab.TypePerson, ASType("profile"))
	require.Equal(t, vocab.TypeEvent, ASType("event"))
	require.Equal(t, vocab.TypeEvent, ASType("program"))
	require.Equal(t, vocab.TypeVideo, ASType("video"))
	require.Equal(t, vocab.TypeImage, ASType("image"))
	require.Equal(t, vocab.TypeDocument, ASType("document"))
	require.Equal(t, vocab.TypeObject, ASType("recipe"))
}

func TestObjectID(t *testing.T) {
	c := NewConverter(newTestConfig(t))

	require.Equal(t, "https://example.com/ap/content/blog/test-post",
		c.ObjectID(&Content{Slug: "test-post", Type: "blog"}))
	require.Equal(t, "https://example.com/ap/content/notes/hello",
		c.ObjectID(&Content{Slug: "hello", Type: "note"}))
	require.Equal(t, "https://example.com/ap/content/content/stew",
		c.ObjectID(&Content{Slug: "stew", Type: "recipe"}))
}

func TestActivityID(t *testing.T) {
	c := NewConverter(newTestConfig(t))

	at := time.UnixMilli(1700000000000)

	require.Equal(t, "https://example.com/ap/activities/create/test-post-1700000000000",
		c.ActivityID(vocab.TypeCreate, "test-post", at))
}

func TestAddressingForVisibility(t *testing.T) {
	const (
		actor     = "https://example.com/ap/users/alice"
		followers = "https://example.com/ap/users/alice/followers"
	)

	tests := []struct {
		visibility string
		to         []string
		cc         []string
	}{
		{VisibilityPublic, []string{vocab.PublicIRI}, []string{followers}},
		{VisibilityUnlisted, []string{followers}, []string{vocab.PublicIRI}},
		{VisibilityFollowers, []string{followers}, nil},
		{VisibilityPrivate, []string{actor}, nil},
		{VisibilityDirect, nil, nil},
		{"", []string{vocab.PublicIRI}, []string{followers}},
		{"bogus", []string{vocab.PublicIRI}, []string{followers}},
	}

	for _, test := range tests {
		t.Run(test.visibility, func(t *testing.T) {
			to, cc := AddressingForVisibility(test.visibility, actor, followers)
			require.Equal(t, test.to, to)
			require.Equal(t, test.cc, cc)
		})
	}
}

func TestAddressingWithMentions(t *testing.T) {
	c := NewConverter(newTestConfig(t))

	t.Run("public -> mentions in cc", func(t *testing.T) {
		to, cc := c.Addressing(&Content{
			AuthorHandle: "alice",
			Visibility:   VisibilityPublic,
			Content:      "cc @bob@remote.example please",
		})

		require.Len(t, to, 1)
		require.Equal(t, vocab.PublicIRI, to[0].String())
		require.Len(t, cc, 2)
		require.Equal(t, "https://example.com/ap/users/alice/followers", cc[0].String())
		require.Equal(t, "https://remote.example/@bob", cc[1].String())
	})

	t.Run("direct -> mentions in to", func(t *testing.T) {
		to, cc := c.Addressing(&Content{
			AuthorHandle: "alice",
			Visibility:   VisibilityDirect,
			Content:      "psst @bob@remote.example",
		})

		require.Len(t, to, 1)
		require.Equal(t, "https://remote.example/@bob", to[0].String())
		require.Empty(t, cc)
	})

	t.Run("local mention resolves to local actor", func(t *testing.T) {
		_, cc := c.Addressing(&Content{
			AuthorHandle: "alice",
			Visibility:   VisibilityPublic,
			Content:      "hi @bob",
		})

		require.Len(t, cc, 2)
		require.Equal(t, "https://example.com/@bob", cc[1].String())
	})
}

func TestWrapInCreate(t *testing.T) {
	c := NewConverter(newTestConfig(t))

	published := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	create, err := c.WrapInCreate(&Content{
		Slug:         "test-post",
		Type:         "blog",
		Content:      "<p>Hello</p>",
		Visibility:   VisibilityPublic,
		PublishedAt:  &published,
		AuthorHandle: "alice",
		Frontmatter: Frontmatter{
			Title:   "Test Post",
			Excerpt: "A test",
			Tags:    []string{"golang"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, create.Validate())

	require.True(t, create.Type().Is(vocab.TypeCreate))
	require.Equal(t, "https://example.com/ap/users/alice", create.Actor().String())
	require.True(t, strings.HasPrefix(create.ID().String(),
		"https://example.com/ap/activities/create/test-post-"))

	obj := create.Object().Object()
	require.NotNil(t, obj)
	require.True(t, obj.Type().Is(vocab.TypeArticle))
	require.Equal(t, "Test Post", obj.Name())
	require.Equal(t, "A test", obj.Summary())
	require.Equal(t, "https://example.com/ap/content/blog/test-post", obj.ID().String())
	require.Equal(t, []string{vocab.PublicIRI}, recipientStrings(obj.To()))
	require.Equal(t, []string{"https://example.com/ap/users/alice/followers"}, recipientStrings(obj.CC()))

	require.Equal(t, recipientStrings(obj.To()), recipientStrings(create.To()))
	require.Equal(t, recipientStrings(obj.CC()), recipientStrings(create.CC()))

	tags := obj.Tag()
	require.Len(t, tags, 1)
	require.Equal(t, "#golang", tags[0].Link().Name())
	require.Equal(t, "https://example.com/tags/golang", tags[0].Link().HRef().String())
}

func TestWrapInUpdate(t *testing.T) {
	c := NewConverter(newTestConfig(t))

	published := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	updated := published.Add(time.Hour)

	update, err := c.WrapInUpdate(&Content{
		Slug:         "test-post",
		Type:         "blog",
		Visibility:   VisibilityPublic,
		PublishedAt:  &published,
		UpdatedAt:    &updated,
		AuthorHandle: "alice",
		Frontmatter:  Frontmatter{Title: "Test Post"},
	})
	require.NoError(t, err)
	require.NoError(t, update.Validate())

	require.True(t, update.Type().Is(vocab.TypeUpdate))
	require.Equal(t, updated, *update.Published())
}

func TestWrapInDelete(t *testing.T) {
	c := NewConverter(newTestConfig(t))

	deleted := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

	del, err := c.WrapInDelete(&Content{
		Slug:         "test-post",
		Type:         "blog",
		Visibility:   VisibilityFollowers,
		AuthorHandle: "alice",
	}, deleted)
	require.NoError(t, err)
	require.NoError(t, del.Validate())

	require.True(t, del.Type().Is(vocab.TypeDelete))
	require.Equal(t, []string{vocab.PublicIRI}, recipientStrings(del.To()))

	obj := del.Object().Object()
	require.NotNil(t, obj)
	require.True(t, obj.Type().Is(vocab.TypeTombstone))
	require.Equal(t, "https://example.com/ap/content/blog/test-post", obj.ID().String())

	tombstone, err := obj.ToTombstone()
	require.NoError(t, err)
	require.True(t, tombstone.FormerType().Is(vocab.TypeArticle))
	require.NotNil(t, tombstone.Deleted())
	require.True(t, tombstone.Deleted().Equal(deleted))
}

func TestConvertNote(t *testing.T) {
	c := NewConverter(newTestConfig(t))

	prop, err := c.Convert(&Content{
		Slug:         "reply",
		Type:         "note",
		Content:      "hey @bob@remote.example check #golang",
		Visibility:   VisibilityPublic,
		AuthorHandle: "alice",
		Frontmatter: Frontmatter{
			SpoilerText: "cw",
			Sensitive:   true,
			InReplyTo:   "https://remote.example/notes/1",
		},
	})
	require.NoError(t, err)

	obj := prop.Object()
	require.NotNil(t, obj)
	require.True(t, obj.Type().Is(vocab.TypeNote))
	require.Equal(t, "cw", obj.Summary())
	require.Equal(t, "https://remote.example/notes/1", obj.InReplyTo().String())

	sensitive, ok := obj.Value("sensitive")
	require.True(t, ok)
	require.Equal(t, true, sensitive)

	tags := obj.Tag()
	require.Len(t, tags, 2)
	require.Equal(t, "#golang", tags[0].Link().Name())
	require.Equal(t, "@bob@remote.example", tags[1].Link().Name())
	require.Equal(t, "https://remote.example/@bob", tags[1].Link().HRef().String())
}

func TestConvertEvent(t *testing.T) {
	c := NewConverter(newTestConfig(t))

	start := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	prop, err := c.Convert(&Content{
		Slug:         "meetup",
		Type:         "event",
		Content:      "<p>Come along</p>",
		Visibility:   VisibilityPublic,
		AuthorHandle: "alice",
		Frontmatter: Frontmatter{
			Title:         "Go Meetup",
			StartDateTime: &start,
			EndDateTime:   &end,
			Location:      "Town Hall",
		},
	})
	require.NoError(t, err)

	obj := prop.Object()
	require.NotNil(t, obj)
	require.True(t, obj.Type().Is(vocab.TypeEvent))

	startTime, ok := obj.Value("startTime")
	require.True(t, ok)
	require.Equal(t, start.Format(time.RFC3339), startTime)

	endTime, ok := obj.Value("endTime")
	require.True(t, ok)
	require.Equal(t, end.Format(time.RFC3339), endTime)

	location, ok := obj.Value("location")
	require.True(t, ok)
	locationDoc, ok := location.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "Place", locationDoc["type"])
	require.Equal(t, "Town Hall", locationDoc["name"])
}

func TestConvertEventFallsBackToPublishedStart(t *testing.T) {
	c := NewConverter(newTestConfig(t))

	published := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

	prop, err := c.Convert(&Content{
		Slug:         "meetup",
		Type:         "event",
		Visibility:   VisibilityPublic,
		PublishedAt:  &published,
		AuthorHandle: "alice",
		Frontmatter:  Frontmatter{Title: "Go Meetup"},
	})
	require.NoError(t, err)

	startTime, ok := prop.Object().Value("startTime")
	require.True(t, ok)
	require.Equal(t, published.Format(time.RFC3339), startTime)
}

func TestConvertVideo(t *testing.T) {
	c := NewConverter(newTestConfig(t))

	prop, err := c.Convert(&Content{
		Slug:         "demo",
		Type:         "video",
		Visibility:   VisibilityPublic,
		AuthorHandle: "alice",
		Frontmatter: Frontmatter{
			Title:    "Demo",
			URL:      "https://example.com/videos/demo.mp4",
			Duration: "PT3M20S",
			Width:    1920,
			Height:   1080,
			Image:    "https://example.com/images/demo.jpg",
		},
	})
	require.NoError(t, err)

	obj := prop.Object()
	require.NotNil(t, obj)
	require.True(t, obj.Type().Is(vocab.TypeVideo))

	urls := obj.URL()
	require.Len(t, urls, 1)
	require.Equal(t, "https://example.com/videos/demo.mp4", urls[0].String())

	duration, ok := obj.Value("duration")
	require.True(t, ok)
	require.Equal(t, "PT3M20S", duration)

	width, ok := obj.Value("width")
	require.True(t, ok)
	require.EqualValues(t, 1920, width)

	attachments := obj.Attachment()
	require.Len(t, attachments, 1)
	require.Equal(t, "thumbnail", attachments[0].Object().Name())
}

func TestConvertProfile(t *testing.T) {
	c := NewConverter(newTestConfig(t))

	prop, err := c.Convert(&Content{
		Slug:         "alice",
		Type:         "profile",
		Visibility:   VisibilityPublic,
		AuthorHandle: "alice",
		Frontmatter: Frontmatter{
			Title:       "Alice",
			Description: "Writes about Go",
		},
	})
	require.NoError(t, err)

	actor := prop.Actor()
	require.NotNil(t, actor)
	require.True(t, actor.Type().Is(vocab.TypePerson))
	require.Equal(t, "https://example.com/ap/users/alice", actor.ID().String())
	require.Equal(t, "alice", actor.PreferredUsername())
	require.Equal(t, "Alice", actor.Name())
	require.Equal(t, "Writes about Go", actor.Summary())
	require.Equal(t, "https://example.com/ap/users/alice/inbox", actor.Inbox().String())
	require.True(t, actor.Discoverable())
	require.False(t, actor.ManuallyApprovesFollowers())
}

func TestFollowAcceptReject(t *testing.T) {
	c := NewConverter(newTestConfig(t))

	actorIRI := vocab.MustParseURL("https://example.com/@alice")
	targetIRI := vocab.MustParseURL("https://remote.example/@bob")

	follow := c.NewFollow(actorIRI, targetIRI)
	require.NoError(t, follow.Validate())
	require.True(t, follow.Type().Is(vocab.TypeFollow))
	require.Equal(t, targetIRI.String(), follow.Object().IRI().String())
	require.True(t, follow.To().Contains(targetIRI))

	accept := c.NewAccept(targetIRI, follow)
	require.NoError(t, accept.Validate())
	require.True(t, accept.Type().Is(vocab.TypeAccept))
	require.Equal(t, targetIRI.String(), accept.Actor().String())
	require.True(t, accept.To().Contains(actorIRI))
	require.NotNil(t, accept.Object().Activity())
	require.Equal(t, follow.ID().String(), accept.Object().Activity().ID().String())

	reject := c.NewReject(targetIRI, follow)
	require.NoError(t, reject.Validate())
	require.True(t, reject.Type().Is(vocab.TypeReject))
	require.True(t, reject.To().Contains(actorIRI))
}

func TestLikeAnnounceUndo(t *testing.T) {
	c := NewConverter(newTestConfig(t))

	objectIRI := vocab.MustParseURL("https://remote.example/notes/1")

	like := c.NewLike("alice", objectIRI)
	require.NoError(t, like.Validate())
	require.Equal(t, "https://example.com/ap/users/alice", like.Actor().String())
	require.Equal(t, objectIRI.String(), like.Object().IRI().String())
	require.True(t, like.To().IsPublic())
	require.True(t, like.CC().Contains(
		vocab.MustParseURL("https://example.com/ap/users/alice/followers")))

	announce := c.NewAnnounce("alice", objectIRI)
	require.NoError(t, announce.Validate())
	require.True(t, announce.To().IsPublic())
	require.True(t, announce.CC().Contains(
		vocab.MustParseURL("https://example.com/ap/users/alice/followers")))

	undo := c.NewUndo(announce)
	require.NoError(t, undo.Validate())
	require.True(t, undo.Type().Is(vocab.TypeUndo))
	require.Equal(t, announce.Actor().String(), undo.Actor().String())
	require.True(t, undo.To().IsPublic())
	require.NotNil(t, undo.Object().Activity())
	require.Equal(t, announce.ID().String(), undo.Object().Activity().ID().String())
}

func recipientStrings(r vocab.Recipients) []string {
	strs := make([]string, len(r))

	for i, u := range r {
		strs[i] = u.String()
	}

	return strs
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.New("https://example.com")
	require.NoError(t, err)

	return cfg
}
