/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package actor manages local actors and groups: keypair provisioning,
// profile refresh and rendering of the public actor documents.
package actor

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/fedipress/fedipress/internal/pkg/log"
	"github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
	"github.com/fedipress/fedipress/pkg/config"
	fperrors "github.com/fedipress/fedipress/pkg/errors"
)

var logger = log.New("activitypub_actor")

// Service provisions local actors and groups and renders their public
// ActivityPub documents.
type Service struct {
	cfg   *config.Config
	store spi.ActorStore
}

// New returns a new actor service.
func New(cfg *config.Config, store spi.ActorStore) *Service {
	return &Service{
		cfg:   cfg,
		store: store,
	}
}

// EnsureActor returns the stored actor for the given handle, creating it
// with a fresh keypair if it does not exist. Profile fields are refreshed
// from the user-resolution callback on every call; existing keys are always
// reused.
func (s *Service) EnsureActor(handle string) (*spi.StoredActor, error) {
	actor, err := s.store.GetActor(handle)
	if err != nil && !errors.Is(err, spi.ErrNotFound) {
		return nil, fmt.Errorf("get actor [%s]: %w", handle, err)
	}

	var resolved *config.ResolvedUser
	if s.cfg.ResolveUser != nil {
		resolved = s.cfg.ResolveUser(handle)
	}

	now := time.Now()

	if actor == nil {
		if s.cfg.ResolveUser != nil && resolved == nil {
			return nil, fperrors.NewNotFoundf("user [%s] not found", handle)
		}

		privPem, pubPem, err := GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("generate keypair for [%s]: %w", handle, err)
		}

		actor = &spi.StoredActor{
			Handle:        handle,
			ActorType:     string(vocab.TypePerson),
			Discoverable:  true,
			PublicKeyID:   s.cfg.PublicKeyID(handle),
			PublicKeyPem:  pubPem,
			PrivateKeyPem: privPem,
			CreatedAt:     now,
		}

		logger.Info("Created keypair for local actor", log.WithHandle(handle), log.WithKeyID(actor.PublicKeyID))
	}

	if resolved != nil {
		actor.DisplayName = resolved.DisplayName
		actor.Bio = resolved.Bio
		actor.AvatarURL = resolved.AvatarURL
	}

	actor.UpdatedAt = now

	if err := s.store.PutActor(actor); err != nil {
		return nil, fmt.Errorf("store actor [%s]: %w", handle, err)
	}

	return actor, nil
}

// GroupProfile holds the mutable profile fields of a local group.
type GroupProfile struct {
	DisplayName             string
	Summary                 string
	IconURL                 string
	Sensitive               bool
	PostingRestrictedToMods bool
	Moderators              []string
}

// EnsureGroup returns the stored group for the given handle, creating it
// with a fresh keypair if it does not exist. A non-nil profile replaces the
// group's profile fields; existing keys are always reused.
func (s *Service) EnsureGroup(handle string, profile *GroupProfile) (*spi.StoredGroup, error) {
	group, err := s.store.GetGroup(handle)
	if err != nil && !errors.Is(err, spi.ErrNotFound) {
		return nil, fmt.Errorf("get group [%s]: %w", handle, err)
	}

	now := time.Now()

	if group == nil {
		privPem, pubPem, err := GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("generate keypair for group [%s]: %w", handle, err)
		}

		group = &spi.StoredGroup{
			Handle:        handle,
			PublicKeyID:   s.cfg.GroupPublicKeyID(handle),
			PublicKeyPem:  pubPem,
			PrivateKeyPem: privPem,
			CreatedAt:     now,
		}

		logger.Info("Created keypair for local group", log.WithHandle(handle), log.WithKeyID(group.PublicKeyID))
	}

	if profile != nil {
		group.DisplayName = profile.DisplayName
		group.Summary = profile.Summary
		group.IconURL = profile.IconURL
		group.Sensitive = profile.Sensitive
		group.PostingRestrictedToMods = profile.PostingRestrictedToMods
		group.Moderators = profile.Moderators
	}

	group.UpdatedAt = now

	if err := s.store.PutGroup(group); err != nil {
		return nil, fmt.Errorf("store group [%s]: %w", handle, err)
	}

	return group, nil
}

// ActorDocument renders the public ActivityPub document of a local actor.
// The private key never appears in the document.
func (s *Service) ActorDocument(actor *spi.StoredActor) (vocab.Document, error) {
	handle := actor.Handle
	actorIRI := vocab.MustParseURL(s.cfg.ActorURI(handle))

	opts := []vocab.Opt{
		vocab.WithPreferredUsername(handle),
		vocab.WithInbox(vocab.MustParseURL(s.cfg.InboxURI(handle))),
		vocab.WithOutbox(vocab.MustParseURL(s.cfg.OutboxURI(handle))),
		vocab.WithFollowers(vocab.MustParseURL(s.cfg.FollowersURI(handle))),
		vocab.WithFollowing(vocab.MustParseURL(s.cfg.FollowingURI(handle))),
		vocab.WithLiked(vocab.MustParseURL(s.cfg.LikedURI(handle))),
		vocab.WithFeatured(vocab.MustParseURL(s.cfg.FeaturedURI(handle))),
		vocab.WithPublicKey(vocab.NewPublicKey(actor.PublicKeyID, s.cfg.ActorURI(handle), actor.PublicKeyPem)),
		vocab.WithEndpoints(&vocab.EndpointsType{SharedInbox: s.cfg.SharedInboxURI()}),
		vocab.WithDiscoverable(actor.Discoverable),
		vocab.WithManuallyApprovesFollowers(!s.cfg.AutoApproveFollows),
		vocab.WithPublishedTime(&actor.CreatedAt),
	}

	if actor.DisplayName != "" {
		opts = append(opts, vocab.WithName(actor.DisplayName))
	}

	if actor.Bio != "" {
		opts = append(opts, vocab.WithSummary(actor.Bio))
	}

	if actor.AvatarURL != "" {
		opts = append(opts, vocab.WithIcon(vocab.NewImage(imageMediaType(actor.AvatarURL), actor.AvatarURL)))
	}

	if actor.BannerURL != "" {
		opts = append(opts, vocab.WithImage(vocab.NewImage(imageMediaType(actor.BannerURL), actor.BannerURL)))
	}

	if pvs := propertyValues(actor.SocialLinks); len(pvs) > 0 {
		opts = append(opts, vocab.WithPropertyValue(pvs...))
	}

	actorType := vocab.Type(actor.ActorType)
	if actorType == "" {
		actorType = vocab.TypePerson
	}

	doc, err := vocab.MarshalToDoc(vocab.NewActor(actorType, actorIRI, opts...))
	if err != nil {
		return nil, fmt.Errorf("marshal actor document [%s]: %w", handle, err)
	}

	doc["@context"] = actorContext()

	return doc, nil
}

// GroupDocument renders the public ActivityPub document of a local group.
func (s *Service) GroupDocument(group *spi.StoredGroup) (vocab.Document, error) {
	handle := group.Handle
	groupIRI := vocab.MustParseURL(s.cfg.GroupURI(handle))

	opts := []vocab.Opt{
		vocab.WithPreferredUsername(handle),
		vocab.WithInbox(vocab.MustParseURL(s.cfg.GroupInboxURI(handle))),
		vocab.WithOutbox(vocab.MustParseURL(s.cfg.GroupOutboxURI(handle))),
		vocab.WithFollowers(vocab.MustParseURL(s.cfg.GroupFollowersURI(handle))),
		vocab.WithPublicKey(vocab.NewPublicKey(group.PublicKeyID, s.cfg.GroupURI(handle), group.PublicKeyPem)),
		vocab.WithEndpoints(&vocab.EndpointsType{SharedInbox: s.cfg.SharedInboxURI()}),
		vocab.WithPublishedTime(&group.CreatedAt),
	}

	if group.DisplayName != "" {
		opts = append(opts, vocab.WithName(group.DisplayName))
	}

	if group.Summary != "" {
		opts = append(opts, vocab.WithSummary(group.Summary))
	}

	if group.IconURL != "" {
		opts = append(opts, vocab.WithIcon(vocab.NewImage(imageMediaType(group.IconURL), group.IconURL)))
	}

	doc, err := vocab.MarshalToDoc(vocab.NewGroup(groupIRI, opts...))
	if err != nil {
		return nil, fmt.Errorf("marshal group document [%s]: %w", handle, err)
	}

	doc["@context"] = groupContext()
	doc["postingRestrictedToMods"] = group.PostingRestrictedToMods
	doc["sensitive"] = group.Sensitive

	moderators := make([]string, len(group.Moderators))
	for i, mod := range group.Moderators {
		moderators[i] = s.cfg.ActorURI(mod)
	}

	doc["moderators"] = moderators

	return doc, nil
}

func actorContext() []interface{} {
	return []interface{}{
		string(vocab.ContextActivityStreams),
		string(vocab.ContextSecurity),
		map[string]interface{}{
			"toot":                      "http://joinmastodon.org/ns#",
			"discoverable":              "toot:discoverable",
			"indexable":                 "toot:indexable",
			"featured":                  "toot:featured",
			"manuallyApprovesFollowers": "as:manuallyApprovesFollowers",
			"PropertyValue":             "schema:PropertyValue",
			"schema":                    "http://schema.org/#",
		},
	}
}

func groupContext() []interface{} {
	return []interface{}{
		string(vocab.ContextActivityStreams),
		string(vocab.ContextSecurity),
		map[string]interface{}{
			"lemmy":                   "https://join-lemmy.org/ns#",
			"postingRestrictedToMods": "lemmy:postingRestrictedToMods",
			"moderators":              "lemmy:moderators",
			"sensitive":               "as:sensitive",
		},
	}
}

// Platforms whose social links are given as bare handles and expanded to
// profile URLs. Mastodon links are full URLs and are used verbatim.
var socialLinkHosts = map[string]string{
	"twitter":  "https://twitter.com/",
	"github":   "https://github.com/",
	"linkedin": "https://www.linkedin.com/in/",
}

var socialLinkNames = map[string]string{
	"twitter":  "Twitter",
	"github":   "GitHub",
	"linkedin": "LinkedIn",
	"mastodon": "Mastodon",
}

func propertyValues(socialLinks map[string]string) []*vocab.PropertyValueType {
	platforms := make([]string, 0, len(socialLinks))
	for platform := range socialLinks {
		platforms = append(platforms, platform)
	}

	sort.Strings(platforms)

	pvs := make([]*vocab.PropertyValueType, 0, len(platforms))

	for _, platform := range platforms {
		value := socialLinks[platform]
		if value == "" {
			continue
		}

		linkURL := value

		if host, ok := socialLinkHosts[strings.ToLower(platform)]; ok && !strings.HasPrefix(value, "http") {
			linkURL = host + strings.TrimPrefix(value, "@")
		}

		name := socialLinkNames[strings.ToLower(platform)]
		if name == "" {
			name = platform
		}

		pvs = append(pvs, vocab.NewPropertyValue(name,
			fmt.Sprintf(`<a href=%q rel="me nofollow noreferrer" target="_blank">%s</a>`, linkURL, linkURL)))
	}

	return pvs
}

func imageMediaType(imageURL string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(imageURL), ".")) {
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "svg":
		return "image/svg+xml"
	default:
		return "image/jpeg"
	}
}
