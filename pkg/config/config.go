/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package config holds the process-wide federation configuration and derives
// the canonical URIs of local actors and their collections.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	fperrors "github.com/fedipress/fedipress/pkg/errors"
)

// Defaults.
const (
	DefaultVisibility         = "public"
	DefaultMaxDeliveryRetries = 3
	DefaultFederationTimeout  = 10 * time.Second
	DefaultActorKeyCacheTTL   = time.Hour
	DefaultPageSize           = 20
	DefaultMaxPageSize        = 100
	DefaultActivityPubDir     = ".activitypub"
)

// ResolvedUser is the result of the external user-resolution callback.
type ResolvedUser struct {
	Handle      string
	DisplayName string
	Bio         string
	AvatarURL   string
}

// UserResolver is an external capability that maps a local handle to user
// profile data, or nil if the user does not exist.
type UserResolver func(handle string) *ResolvedUser

// Config is the process-wide federation configuration.
type Config struct {
	// SiteBaseURL is the scheme+host prefix for all local URIs. Required.
	// A trailing slash is stripped.
	SiteBaseURL string

	// FederationEnabled disables outbound delivery when false.
	FederationEnabled bool

	// DefaultVisibility is applied when content omits visibility.
	DefaultVisibility string

	// AutoApproveFollows accepts Follow requests synchronously when true.
	AutoApproveFollows bool

	// MaxDeliveryRetries is the terminal cap for per-task retries.
	MaxDeliveryRetries int

	// FederationTimeout is the hard timeout per outbound HTTP request.
	FederationTimeout time.Duration

	// SignatureVerificationEnabled gates inbound signature verification.
	SignatureVerificationEnabled bool

	// ActorKeyCacheTTL is the time before a cached public key expires.
	ActorKeyCacheTTL time.Duration

	// Input caps.
	MaxContentLength int
	MaxTags          int
	MaxMentions      int
	MaxAttachments   int
	MaxUploadSize    int64

	// Collection pagination.
	PageSize    int
	MaxPageSize int

	// ActivityPubDir is the root of the on-disk state.
	ActivityPubDir string

	// ResolveUser is the external user-resolution callback. Optional.
	ResolveUser UserResolver

	instanceDomain string
}

// New returns a Config with defaults applied for the given base URL.
func New(siteBaseURL string) (*Config, error) {
	cfg := &Config{
		SiteBaseURL:                  siteBaseURL,
		FederationEnabled:            true,
		DefaultVisibility:            DefaultVisibility,
		MaxDeliveryRetries:           DefaultMaxDeliveryRetries,
		FederationTimeout:            DefaultFederationTimeout,
		SignatureVerificationEnabled: true,
		ActorKeyCacheTTL:             DefaultActorKeyCacheTTL,
		PageSize:                     DefaultPageSize,
		MaxPageSize:                  DefaultMaxPageSize,
		ActivityPubDir:               DefaultActivityPubDir,
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Init validates the configuration, strips the trailing slash from the base
// URL and derives the instance domain. It must be called after any direct
// mutation of SiteBaseURL.
func (c *Config) Init() error {
	if c.SiteBaseURL == "" {
		return fperrors.NewBadRequestf("siteBaseUrl is required")
	}

	c.SiteBaseURL = strings.TrimSuffix(c.SiteBaseURL, "/")

	u, err := url.Parse(c.SiteBaseURL)
	if err != nil {
		return fperrors.NewBadRequestf("parse siteBaseUrl: %s", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return fperrors.NewBadRequestf("siteBaseUrl must include scheme and host: %s", c.SiteBaseURL)
	}

	c.instanceDomain = u.Host

	return nil
}

// InstanceDomain returns the hostname of this instance.
func (c *Config) InstanceDomain() string {
	return c.instanceDomain
}

// ActorURI returns the canonical URI of the local actor with the given handle.
func (c *Config) ActorURI(handle string) string {
	return fmt.Sprintf("%s/@%s", c.SiteBaseURL, handle)
}

// GroupURI returns the canonical URI of the local group with the given handle.
func (c *Config) GroupURI(handle string) string {
	return fmt.Sprintf("%s/c/%s", c.SiteBaseURL, handle)
}

// InboxURI returns the inbox URI of the local actor with the given handle.
func (c *Config) InboxURI(handle string) string {
	return c.ActorURI(handle) + "/inbox"
}

// OutboxURI returns the outbox URI of the local actor with the given handle.
func (c *Config) OutboxURI(handle string) string {
	return c.ActorURI(handle) + "/outbox"
}

// FollowersURI returns the followers-collection URI of the local actor.
func (c *Config) FollowersURI(handle string) string {
	return c.ActorURI(handle) + "/followers"
}

// FollowingURI returns the following-collection URI of the local actor.
func (c *Config) FollowingURI(handle string) string {
	return c.ActorURI(handle) + "/following"
}

// LikedURI returns the liked-collection URI of the local actor.
func (c *Config) LikedURI(handle string) string {
	return c.ActorURI(handle) + "/liked"
}

// FeaturedURI returns the featured-collection URI of the local actor.
func (c *Config) FeaturedURI(handle string) string {
	return c.ActorURI(handle) + "/featured"
}

// PublicKeyID returns the key ID of the local actor's main key.
func (c *Config) PublicKeyID(handle string) string {
	return c.ActorURI(handle) + "#main-key"
}

// GroupInboxURI returns the inbox URI of the local group with the given handle.
func (c *Config) GroupInboxURI(handle string) string {
	return c.GroupURI(handle) + "/inbox"
}

// GroupOutboxURI returns the outbox URI of the local group with the given handle.
func (c *Config) GroupOutboxURI(handle string) string {
	return c.GroupURI(handle) + "/outbox"
}

// GroupFollowersURI returns the followers-collection URI of the local group.
func (c *Config) GroupFollowersURI(handle string) string {
	return c.GroupURI(handle) + "/followers"
}

// GroupPublicKeyID returns the key ID of the local group's main key.
func (c *Config) GroupPublicKeyID(handle string) string {
	return c.GroupURI(handle) + "#main-key"
}

// WebFingerResource returns the acct: resource string for the given handle.
func (c *Config) WebFingerResource(handle string) string {
	return fmt.Sprintf("acct:%s@%s", handle, c.instanceDomain)
}

// SharedInboxURI returns the shared inbox URI of this instance.
func (c *Config) SharedInboxURI() string {
	return c.SiteBaseURL + "/inbox"
}

// IsLocalURI returns true if the given URI's hostname is this instance's
// domain. A URI that fails to parse is not local.
func (c *Config) IsLocalURI(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}

	return u.Host == c.instanceDomain
}

// ExtractHandleFromURI returns the local handle from a local actor URI, or ""
// if the URI is not a local actor URI.
func (c *Config) ExtractHandleFromURI(uri string) string {
	for _, prefix := range []string{c.SiteBaseURL + "/@", c.SiteBaseURL + "/ap/users/"} {
		if strings.HasPrefix(uri, prefix) {
			handle := strings.TrimPrefix(uri, prefix)
			if idx := strings.IndexAny(handle, "/#?"); idx != -1 {
				handle = handle[:idx]
			}

			return handle
		}
	}

	return ""
}
