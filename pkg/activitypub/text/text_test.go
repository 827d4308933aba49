/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package text

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMentions(t *testing.T) {
	mentions := ParseMentions("Thanks @alice and @bob@remote.example for the feedback! cc @alice")

	require.Len(t, mentions, 2)

	require.Equal(t, "alice", mentions[0].Handle)
	require.Empty(t, mentions[0].Domain)
	require.Equal(t, "@alice", mentions[0].Raw)
	require.False(t, mentions[0].IsRemote())

	require.Equal(t, "bob", mentions[1].Handle)
	require.Equal(t, "remote.example", mentions[1].Domain)
	require.Equal(t, "@bob@remote.example", mentions[1].Raw)
	require.True(t, mentions[1].IsRemote())

	t.Run("Case-insensitive dedupe", func(t *testing.T) {
		mentions := ParseMentions("@Alice and @alice")
		require.Len(t, mentions, 1)
		require.Equal(t, "Alice", mentions[0].Handle)
	})

	t.Run("No mentions", func(t *testing.T) {
		require.Empty(t, ParseMentions("no mentions here"))
	})
}

func TestParseHashtags(t *testing.T) {
	tags := ParseHashtags("Planting #Tomatoes this #spring. More #tomatoes soon. #spring_2026")

	require.Equal(t, []string{"Tomatoes", "spring", "spring_2026"}, tags)

	t.Run("Start of content", func(t *testing.T) {
		require.Equal(t, []string{"gardening"}, ParseHashtags("#gardening tips"))
	})

	t.Run("Preceded by word character is not a hashtag", func(t *testing.T) {
		require.Empty(t, ParseHashtags("see issue#42 and x#y"))
	})

	t.Run("HTML entity is not a hashtag", func(t *testing.T) {
		require.Empty(t, ParseHashtags("it&#39;s fine"))
	})
}

func TestLinkifyMentions(t *testing.T) {
	hrefFor := func(m Mention) string {
		if m.IsRemote() {
			return "https://" + m.Domain + "/@" + m.Handle
		}

		return "https://example.com/@" + m.Handle
	}

	result := LinkifyMentions("hi @alice and @bob@remote.example", hrefFor)

	require.Equal(t, `hi <a href="https://example.com/@alice" class="mention">@alice</a> `+
		`and <a href="https://remote.example/@bob" class="mention">@bob@remote.example</a>`, result)

	t.Run("Skips mentions inside anchors", func(t *testing.T) {
		content := `see <a href="https://example.com/@alice">@alice</a> and @bob`

		result := LinkifyMentions(content, hrefFor)

		require.Equal(t, `see <a href="https://example.com/@alice">@alice</a> `+
			`and <a href="https://example.com/@bob" class="mention">@bob</a>`, result)
	})

	t.Run("Empty href leaves text untouched", func(t *testing.T) {
		result := LinkifyMentions("hi @alice", func(Mention) string { return "" })
		require.Equal(t, "hi @alice", result)
	})
}

func TestLinkifyHashtags(t *testing.T) {
	hrefFor := func(tag string) string {
		return "https://example.com/tags/" + tag
	}

	result := LinkifyHashtags("all about #gardening", hrefFor)

	require.Equal(t, `all about <a href="https://example.com/tags/gardening" class="hashtag" rel="tag">#gardening</a>`,
		result)

	t.Run("Start of content", func(t *testing.T) {
		result := LinkifyHashtags("#spring is here", hrefFor)
		require.Equal(t, `<a href="https://example.com/tags/spring" class="hashtag" rel="tag">#spring</a> is here`,
			result)
	})

	t.Run("Skips hashtags inside anchors", func(t *testing.T) {
		content := `<a href="https://example.com/tags/spring"> #spring</a> and #summer`

		result := LinkifyHashtags(content, hrefFor)

		require.Equal(t, `<a href="https://example.com/tags/spring"> #spring</a> `+
			`and <a href="https://example.com/tags/summer" class="hashtag" rel="tag">#summer</a>`, result)
	})
}
