/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package nodeinfo exposes the NodeInfo discovery documents (versions 2.0
// and 2.1) with usage statistics that are periodically refreshed from the
// ActivityPub store.
package nodeinfo

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fedipress/fedipress/internal/pkg/log"
	apstore "github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
	"github.com/fedipress/fedipress/pkg/config"
	"github.com/fedipress/fedipress/pkg/lifecycle"
)

var logger = log.New("nodeinfo")

// ServerVersion is the reported software version.
const ServerVersion = "1.0"

const (
	softwareName = "fedipress"
	repository   = "https://github.com/fedipress/fedipress"
)

type statsStore interface {
	apstore.ActorStore
	apstore.ActivityStore
}

type stats struct {
	Users    int
	Posts    int
	Comments int
}

func (s *stats) String() string {
	return fmt.Sprintf("Users: %d, Posts: %d, Comments: %d", s.Users, s.Posts, s.Comments)
}

// Service periodically computes instance statistics and renders NodeInfo
// documents.
type Service struct {
	*lifecycle.Lifecycle

	cfg      *config.Config
	store    statsStore
	interval time.Duration
	done     chan struct{}

	mutex sync.RWMutex
	stats *stats
}

// NewService returns a new NodeInfo service that refreshes its statistics at
// the given interval.
func NewService(cfg *config.Config, s statsStore, refreshInterval time.Duration) *Service {
	r := &Service{
		cfg:      cfg,
		store:    s,
		interval: refreshInterval,
		done:     make(chan struct{}),
		stats:    &stats{},
	}

	r.Lifecycle = lifecycle.New("nodeinfo",
		lifecycle.WithStart(r.start),
		lifecycle.WithStop(r.stop))

	return r
}

// GetNodeInfo returns a NodeInfo document compatible with the given version.
func (r *Service) GetNodeInfo(version Version) *NodeInfo {
	var repo string

	if version == V2_1 {
		repo = repository
	}

	r.mutex.RLock()

	s := r.stats

	r.mutex.RUnlock()

	return &NodeInfo{
		Version: version,
		Software: Software{
			Name:       softwareName,
			Version:    ServerVersion,
			Repository: repo,
		},
		Protocols: []string{activityPubProtocol},
		Services: Services{
			Inbound:  []string{},
			Outbound: []string{"atom1.0", "rss2.0"},
		},
		OpenRegistrations: false,
		Usage: Usage{
			Users:         Users{Total: s.Users},
			LocalPosts:    s.Posts,
			LocalComments: s.Comments,
		},
		Metadata: map[string]interface{}{
			"federation": map[string]interface{}{
				"enabled":   r.cfg.FederationEnabled,
				"allowList": nil,
				"blockList": []string{},
			},
			"features": []string{
				"activitypub", "webfinger", "http-signatures", "mastodon-api-compat",
			},
			"contentTypes": []string{
				"Article", "Note", "Image", "Video", "Page", "Event",
			},
		},
	}
}

// Refresh recomputes the statistics from the store.
func (r *Service) Refresh() error {
	handles, err := r.store.GetActorHandles()
	if err != nil {
		return fmt.Errorf("get actor handles: %w", err)
	}

	s := &stats{Users: len(handles)}

	it, err := r.store.QueryActivities(apstore.Outbox,
		apstore.NewCriteria(apstore.WithType(vocab.TypeCreate)))
	if err != nil {
		return fmt.Errorf("query outbox: %w", err)
	}

	defer it.Close()

	for {
		activity, err := it.Next()
		if err != nil {
			if errors.Is(err, apstore.ErrNotFound) {
				break
			}

			return fmt.Errorf("query outbox: %w", err)
		}

		if obj := activity.Object().Object(); obj != nil && obj.InReplyTo() != nil {
			s.Comments++
		} else {
			s.Posts++
		}
	}

	logger.Debug("Updated NodeInfo stats", log.WithData([]byte(s.String())))

	r.mutex.Lock()

	r.stats = s

	r.mutex.Unlock()

	return nil
}

func (r *Service) start() {
	go r.refresh()

	logger.Info("Started NodeInfo service")
}

func (r *Service) stop() {
	close(r.done)

	logger.Info("Stopped NodeInfo service")
}

func (r *Service) refresh() {
	if err := r.Refresh(); err != nil {
		logger.Warn("Error updating NodeInfo stats", log.WithError(err))
	}

	for {
		select {
		case <-time.After(r.interval):
			if err := r.Refresh(); err != nil {
				logger.Warn("Error updating NodeInfo stats", log.WithError(err))
			}
		case <-r.done:
			logger.Debug("Exiting NodeInfo stats retriever")

			return
		}
	}
}
