/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetStartCmd(t *testing.T) {
	startCmd := GetStartCmd()

	require.Equal(t, "start", startCmd.Use)
	require.NotEmpty(t, startCmd.Short)
	require.NotNil(t, startCmd.Flags().Lookup(hostURLFlagName))
	require.NotNil(t, startCmd.Flags().Lookup(siteBaseURLFlagName))
}

func TestStartCmdMissingHostURL(t *testing.T) {
	startCmd := GetStartCmd()

	startCmd.SetArgs([]string{"--" + siteBaseURLFlagName, "https://blog.example"})

	err := startCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), hostURLFlagName)
}

func TestStartCmdMissingSiteBaseURL(t *testing.T) {
	startCmd := GetStartCmd()

	startCmd.SetArgs([]string{"--" + hostURLFlagName, "localhost:8080"})

	err := startCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), siteBaseURLFlagName)
}

func TestBuildConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := buildConfig(&serverParameters{
			siteBaseURL:           "https://blog.example/",
			federationEnabled:     true,
			signatureVerification: true,
		})
		require.NoError(t, err)

		require.Equal(t, "https://blog.example", cfg.SiteBaseURL)
		require.True(t, cfg.FederationEnabled)
		require.True(t, cfg.SignatureVerificationEnabled)
		require.False(t, cfg.AutoApproveFollows)
		require.Equal(t, "public", cfg.DefaultVisibility)
	})

	t.Run("overrides", func(t *testing.T) {
		cfg, err := buildConfig(&serverParameters{
			siteBaseURL:        "https://blog.example",
			autoApproveFollows: true,
			defaultVisibility:  "unlisted",
			maxDeliveryRetries: 5,
			federationTimeout:  30 * time.Second,
			actorKeyCacheTTL:   2 * time.Hour,
			activityPubDir:     "/var/lib/fedipress",
		})
		require.NoError(t, err)

		require.True(t, cfg.AutoApproveFollows)
		require.Equal(t, "unlisted", cfg.DefaultVisibility)
		require.Equal(t, 5, cfg.MaxDeliveryRetries)
		require.Equal(t, 30*time.Second, cfg.FederationTimeout)
		require.Equal(t, 2*time.Hour, cfg.ActorKeyCacheTTL)
		require.Equal(t, "/var/lib/fedipress", cfg.ActivityPubDir)
	})

	t.Run("invalid base URL", func(t *testing.T) {
		_, err := buildConfig(&serverParameters{siteBaseURL: "not-a-url"})
		require.Error(t, err)
	})
}
