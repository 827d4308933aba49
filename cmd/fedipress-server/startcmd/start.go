/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fedipress/fedipress/internal/pkg/log"
	actorsvc "github.com/fedipress/fedipress/pkg/activitypub/actor"
	"github.com/fedipress/fedipress/pkg/activitypub/client"
	"github.com/fedipress/fedipress/pkg/activitypub/client/transport"
	"github.com/fedipress/fedipress/pkg/activitypub/content"
	"github.com/fedipress/fedipress/pkg/activitypub/httpsig"
	aphandler "github.com/fedipress/fedipress/pkg/activitypub/resthandler"
	"github.com/fedipress/fedipress/pkg/activitypub/service/activityhandler"
	"github.com/fedipress/fedipress/pkg/activitypub/service/inbox"
	"github.com/fedipress/fedipress/pkg/activitypub/service/outbox"
	"github.com/fedipress/fedipress/pkg/activitypub/store/fsstore"
	"github.com/fedipress/fedipress/pkg/config"
	"github.com/fedipress/fedipress/pkg/discovery/webfinger"
	"github.com/fedipress/fedipress/pkg/healthcheck"
	"github.com/fedipress/fedipress/pkg/httpserver"
	"github.com/fedipress/fedipress/pkg/metrics"
	"github.com/fedipress/fedipress/pkg/nodeinfo"
	"github.com/fedipress/fedipress/pkg/pubsub/mempubsub"
	"github.com/fedipress/fedipress/pkg/restapi/common"
	"github.com/fedipress/fedipress/pkg/taskmgr"
)

var logger = log.New("fedipress-server")

const (
	serverIdleTimeout       = 2 * time.Minute
	serverReadHeaderTimeout = 20 * time.Second

	drainInterval    = 30 * time.Second
	cleanupInterval  = time.Minute
	keySweepInterval = 10 * time.Minute
)

// GetStartCmd returns the command that starts the federation server.
func GetStartCmd() *cobra.Command {
	startCmd := createStartCmd()

	createFlags(startCmd)

	return startCmd
}

func createStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the FediPress federation server",
		Long:  "Start the ActivityPub federation server of the FediPress publishing platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := getServerParameters(cmd)
			if err != nil {
				return err
			}

			return startServer(params)
		},
	}
}

func buildConfig(params *serverParameters) (*config.Config, error) {
	cfg, err := config.New(params.siteBaseURL)
	if err != nil {
		return nil, err
	}

	cfg.FederationEnabled = params.federationEnabled
	cfg.AutoApproveFollows = params.autoApproveFollows
	cfg.SignatureVerificationEnabled = params.signatureVerification

	if params.defaultVisibility != "" {
		cfg.DefaultVisibility = params.defaultVisibility
	}

	if params.maxDeliveryRetries > 0 {
		cfg.MaxDeliveryRetries = params.maxDeliveryRetries
	}

	if params.federationTimeout > 0 {
		cfg.FederationTimeout = params.federationTimeout
	}

	if params.actorKeyCacheTTL > 0 {
		cfg.ActorKeyCacheTTL = params.actorKeyCacheTTL
	}

	if params.activityPubDir != "" {
		cfg.ActivityPubDir = params.activityPubDir
	}

	return cfg, nil
}

//nolint:funlen
func startServer(params *serverParameters) error {
	setLogLevels(logger, params.logSpec)

	cfg, err := buildConfig(params)
	if err != nil {
		return err
	}

	apStore, err := fsstore.New(cfg.ActivityPubDir)
	if err != nil {
		return err
	}

	pm := metrics.NewPrometheus()

	tsp := transport.New(
		&http.Client{Timeout: cfg.FederationTimeout},
		nil,
		httpsig.NewSigner(httpsig.DefaultGetSignerConfig()),
		httpsig.NewSigner(httpsig.DefaultPostSignerConfig()),
	)

	apClient := client.New(client.Config{
		Timeout:     cfg.FederationTimeout,
		KeyCacheTTL: cfg.ActorKeyCacheTTL,
	}, tsp, apStore)

	actorService := actorsvc.New(cfg, apStore)

	converter := content.NewConverter(cfg)

	ps := mempubsub.New(mempubsub.DefaultConfig())

	ob, err := outbox.New(&outbox.Config{
		MaxRetries:     cfg.MaxDeliveryRetries,
		RequestTimeout: cfg.FederationTimeout,
		LogDir:         filepath.Join(cfg.ActivityPubDir, "delivery-logs"),
	}, apStore, ps, tsp, apClient, pm)
	if err != nil {
		return err
	}

	activityHandler := activityhandler.New(cfg, apStore, ob, converter, apClient)

	ib := inbox.New(cfg, apStore, activityHandler, httpsig.NewVerifier(apClient), pm)

	niService := nodeinfo.NewService(cfg, apStore, params.nodeInfoRefreshInterval)

	wfResolver := webfinger.NewResolver(cfg, func(handle string) bool {
		if _, err := apStore.GetActor(handle); err == nil {
			return true
		}

		return cfg.ResolveUser != nil && cfg.ResolveUser(handle) != nil
	})

	tm := taskmgr.New(params.taskCheckInterval)
	tm.RegisterTask("delivery-queue-drain", drainInterval, ob.DrainOnce)
	tm.RegisterTask("delivery-queue-cleanup", cleanupInterval, ob.Cleanup)
	tm.RegisterTask("key-cache-sweep", keySweepInterval, apClient.SweepCachedKeys)

	srv := httpserver.New(params.hostURL, params.tlsCertificate, params.tlsKey,
		serverIdleTimeout, serverReadHeaderTimeout,
		webfinger.NewHandler(wfResolver),
		nodeinfo.NewWellKnownHandler(cfg.SiteBaseURL),
		nodeinfo.NewHandler(nodeinfo.V2_0, niService),
		nodeinfo.NewHandler(nodeinfo.V2_1, niService),
		aphandler.NewActor(cfg, actorService),
		aphandler.NewActorJSON(cfg, actorService),
		aphandler.NewGroup(cfg, actorService, apStore),
		aphandler.NewFollowers(cfg, apStore),
		aphandler.NewFollowing(cfg, apStore),
		aphandler.NewOutbox(cfg, apStore),
		aphandler.NewLiked(cfg, apStore),
		aphandler.NewFeatured(cfg, apStore),
		aphandler.NewInboxCollection(cfg, apStore),
		aphandler.NewInbox(cfg, ib),
		aphandler.NewSharedInbox(cfg, ib),
		healthcheck.NewHandler(apStore, ob),
		common.NewHTTPHandler("/metrics", http.MethodGet, pm.HTTPHandler().ServeHTTP),
	)

	ob.Start()
	niService.Start()
	tm.Start()

	if err := srv.Start(); err != nil {
		return err
	}

	logger.Info("Started FediPress federation server", log.WithAddress(params.hostURL))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-interrupt

	logger.Info("Shutting down...")

	tm.Stop()
	niService.Stop()
	ob.Stop()

	if err := ps.Close(); err != nil {
		logger.Warn("Error closing pub/sub", log.WithError(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(ctx)
}
