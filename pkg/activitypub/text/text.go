/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package text parses mentions and hashtags out of content and substitutes
// them with links.
package text

import (
	"fmt"
	"regexp"
	"strings"
)

// Mention is a parsed @handle or @handle@domain reference. Raw preserves the
// matched text including the leading '@'.
type Mention struct {
	Handle string
	Domain string
	Raw    string
}

// IsRemote returns true if the mention carries a domain.
func (m Mention) IsRemote() bool {
	return m.Domain != ""
}

var (
	mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_-]+)(?:@([A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)+))?`)

	// Hashtags must not be preceded by a word character. The '&' exclusion
	// keeps numeric HTML entities from matching.
	hashtagPattern = regexp.MustCompile(`(^|[^0-9A-Za-z_&])#([A-Za-z0-9_]+)`)
)

// ParseMentions returns the mentions in the content, de-duplicated
// case-insensitively, in order of first occurrence.
func ParseMentions(content string) []Mention {
	var mentions []Mention

	seen := make(map[string]struct{})

	for _, match := range mentionPattern.FindAllStringSubmatch(content, -1) {
		key := strings.ToLower(match[0])
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}

		mentions = append(mentions, Mention{
			Handle: match[1],
			Domain: match[2],
			Raw:    match[0],
		})
	}

	return mentions
}

// ParseHashtags returns the hashtags in the content without the leading '#',
// de-duplicated case-insensitively (the first-seen spelling is kept), in
// order of first occurrence.
func ParseHashtags(content string) []string {
	var tags []string

	seen := make(map[string]struct{})

	for _, match := range hashtagPattern.FindAllStringSubmatch(content, -1) {
		tag := match[2]

		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}

		tags = append(tags, tag)
	}

	return tags
}

// LinkifyMentions replaces mention occurrences with anchor tags. The href is
// produced by the given resolver; a mention resolving to an empty href is
// left as-is. Occurrences inside an existing anchor are skipped.
func LinkifyMentions(content string, hrefFor func(m Mention) string) string {
	return replaceOutsideAnchors(content, mentionPattern.FindAllStringSubmatchIndex(content, -1),
		func(match []int) string {
			raw := content[match[0]:match[1]]

			m := Mention{Handle: content[match[2]:match[3]], Raw: raw}
			if match[4] != -1 {
				m.Domain = content[match[4]:match[5]]
			}

			href := hrefFor(m)
			if href == "" {
				return raw
			}

			return fmt.Sprintf(`<a href=%q class="mention">%s</a>`, href, raw)
		})
}

// LinkifyHashtags replaces hashtag occurrences with anchor tags. Occurrences
// inside an existing anchor are skipped.
func LinkifyHashtags(content string, hrefFor func(tag string) string) string {
	return replaceOutsideAnchors(content, hashtagPattern.FindAllStringSubmatchIndex(content, -1),
		func(match []int) string {
			prefix := content[match[2]:match[3]]
			tag := content[match[4]:match[5]]

			href := hrefFor(tag)
			if href == "" {
				return content[match[0]:match[1]]
			}

			return fmt.Sprintf(`%s<a href=%q class="hashtag" rel="tag">#%s</a>`, prefix, href, tag)
		})
}

func replaceOutsideAnchors(content string, matches [][]int, replace func(match []int) string) string {
	if len(matches) == 0 {
		return content
	}

	var b strings.Builder

	last := 0

	for _, match := range matches {
		if insideAnchor(content, match[0]) {
			continue
		}

		b.WriteString(content[last:match[0]])
		b.WriteString(replace(match))

		last = match[1]
	}

	b.WriteString(content[last:])

	return b.String()
}

// insideAnchor reports whether the given offset falls between the most
// recent '<a' and its closing '</a>'.
func insideAnchor(content string, offset int) bool {
	before := content[:offset]

	open := strings.LastIndex(before, "<a")
	if open == -1 {
		return false
	}

	return open > strings.LastIndex(before, "</a>")
}
