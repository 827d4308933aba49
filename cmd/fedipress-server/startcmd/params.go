/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/fedipress/fedipress/internal/pkg/cmdutil"
)

const (
	defaultNodeInfoRefreshInterval = 15 * time.Second
	defaultTaskCheckInterval       = 10 * time.Second

	commonEnvVarUsageText = "Alternatively, this can be set with the following environment variable: "

	hostURLFlagName      = "host-url"
	hostURLFlagShorthand = "u"
	hostURLFlagUsage     = "Host:Port to listen on. " + commonEnvVarUsageText + hostURLEnvKey
	hostURLEnvKey        = "FEDIPRESS_HOST_URL"

	siteBaseURLFlagName      = "site-base-url"
	siteBaseURLFlagShorthand = "s"
	siteBaseURLFlagUsage     = "External base URL of this instance, used to generate the IDs of " +
		"actors, activities and objects. Format: https://HostName[:Port]. " +
		commonEnvVarUsageText + siteBaseURLEnvKey
	siteBaseURLEnvKey = "FEDIPRESS_SITE_BASE_URL"

	tlsCertificateFlagName  = "tls-certificate"
	tlsCertificateFlagUsage = "TLS certificate for the server. " + commonEnvVarUsageText + tlsCertificateEnvKey
	tlsCertificateEnvKey    = "FEDIPRESS_TLS_CERTIFICATE"

	tlsKeyFlagName  = "tls-key"
	tlsKeyFlagUsage = "TLS key for the server. " + commonEnvVarUsageText + tlsKeyEnvKey
	tlsKeyEnvKey    = "FEDIPRESS_TLS_KEY"

	activityPubDirFlagName  = "activitypub-dir"
	activityPubDirFlagUsage = "Directory holding the on-disk federation state. " +
		commonEnvVarUsageText + activityPubDirEnvKey
	activityPubDirEnvKey = "FEDIPRESS_ACTIVITYPUB_DIR"

	logLevelFlagName  = "log-level"
	logLevelFlagUsage = "Sets log levels for individual modules as well as the default level, e.g. " +
		"activitypub_outbox=debug:info. " + commonEnvVarUsageText + logLevelEnvKey
	logLevelEnvKey = "FEDIPRESS_LOG_LEVEL"

	federationEnabledFlagName  = "federation-enabled"
	federationEnabledFlagUsage = "Enables outbound federation (default true). " +
		commonEnvVarUsageText + federationEnabledEnvKey
	federationEnabledEnvKey = "FEDIPRESS_FEDERATION_ENABLED"

	autoApproveFollowsFlagName  = "auto-approve-follows"
	autoApproveFollowsFlagUsage = "Accepts incoming follow requests without manual approval (default false). " +
		commonEnvVarUsageText + autoApproveFollowsEnvKey
	autoApproveFollowsEnvKey = "FEDIPRESS_AUTO_APPROVE_FOLLOWS"

	signatureVerificationFlagName  = "signature-verification"
	signatureVerificationFlagUsage = "Enables verification of HTTP signatures on inbound activities " +
		"(default true; disable only for testing). " + commonEnvVarUsageText + signatureVerificationEnvKey
	signatureVerificationEnvKey = "FEDIPRESS_SIGNATURE_VERIFICATION"

	defaultVisibilityFlagName  = "default-visibility"
	defaultVisibilityFlagUsage = "Visibility applied to content that does not specify one " +
		"(public, unlisted, followers, private, direct). " + commonEnvVarUsageText + defaultVisibilityEnvKey
	defaultVisibilityEnvKey = "FEDIPRESS_DEFAULT_VISIBILITY"

	maxDeliveryRetriesFlagName  = "max-delivery-retries"
	maxDeliveryRetriesFlagUsage = "Maximum number of retries for a failed delivery. " +
		commonEnvVarUsageText + maxDeliveryRetriesEnvKey
	maxDeliveryRetriesEnvKey = "FEDIPRESS_MAX_DELIVERY_RETRIES"

	federationTimeoutFlagName  = "federation-timeout"
	federationTimeoutFlagUsage = "Timeout for outbound federation requests, e.g. 10s. " +
		commonEnvVarUsageText + federationTimeoutEnvKey
	federationTimeoutEnvKey = "FEDIPRESS_FEDERATION_TIMEOUT"

	actorKeyCacheTTLFlagName  = "actor-key-cache-ttl"
	actorKeyCacheTTLFlagUsage = "Expiry of cached remote actor public keys, e.g. 1h. " +
		commonEnvVarUsageText + actorKeyCacheTTLEnvKey
	actorKeyCacheTTLEnvKey = "FEDIPRESS_ACTOR_KEY_CACHE_TTL"

	nodeInfoRefreshIntervalFlagName  = "nodeinfo-refresh-interval"
	nodeInfoRefreshIntervalFlagUsage = "Interval at which NodeInfo usage statistics are recomputed, e.g. 15s. " +
		commonEnvVarUsageText + nodeInfoRefreshIntervalEnvKey
	nodeInfoRefreshIntervalEnvKey = "FEDIPRESS_NODEINFO_REFRESH_INTERVAL"

	taskCheckIntervalFlagName  = "task-check-interval"
	taskCheckIntervalFlagUsage = "Interval at which periodic maintenance tasks are checked, e.g. 10s. " +
		commonEnvVarUsageText + taskCheckIntervalEnvKey
	taskCheckIntervalEnvKey = "FEDIPRESS_TASK_CHECK_INTERVAL"
)

type serverParameters struct {
	hostURL                 string
	siteBaseURL             string
	tlsCertificate          string
	tlsKey                  string
	activityPubDir          string
	logSpec                 string
	federationEnabled       bool
	autoApproveFollows      bool
	signatureVerification   bool
	defaultVisibility       string
	maxDeliveryRetries      int
	federationTimeout       time.Duration
	actorKeyCacheTTL        time.Duration
	nodeInfoRefreshInterval time.Duration
	taskCheckInterval       time.Duration
}

func getServerParameters(cmd *cobra.Command) (*serverParameters, error) {
	hostURL, err := cmdutil.GetString(cmd, hostURLFlagName, hostURLEnvKey, false)
	if err != nil {
		return nil, err
	}

	siteBaseURL, err := cmdutil.GetString(cmd, siteBaseURLFlagName, siteBaseURLEnvKey, false)
	if err != nil {
		return nil, err
	}

	federationEnabled, err := getBool(cmd, federationEnabledFlagName, federationEnabledEnvKey, true)
	if err != nil {
		return nil, err
	}

	autoApproveFollows, err := getBool(cmd, autoApproveFollowsFlagName, autoApproveFollowsEnvKey, false)
	if err != nil {
		return nil, err
	}

	signatureVerification, err := getBool(cmd, signatureVerificationFlagName, signatureVerificationEnvKey, true)
	if err != nil {
		return nil, err
	}

	maxDeliveryRetries, err := getInt(cmd, maxDeliveryRetriesFlagName, maxDeliveryRetriesEnvKey, 0)
	if err != nil {
		return nil, err
	}

	federationTimeout, err := getDuration(cmd, federationTimeoutFlagName, federationTimeoutEnvKey, 0)
	if err != nil {
		return nil, err
	}

	actorKeyCacheTTL, err := getDuration(cmd, actorKeyCacheTTLFlagName, actorKeyCacheTTLEnvKey, 0)
	if err != nil {
		return nil, err
	}

	nodeInfoRefreshInterval, err := getDuration(cmd, nodeInfoRefreshIntervalFlagName,
		nodeInfoRefreshIntervalEnvKey, defaultNodeInfoRefreshInterval)
	if err != nil {
		return nil, err
	}

	taskCheckInterval, err := getDuration(cmd, taskCheckIntervalFlagName, taskCheckIntervalEnvKey,
		defaultTaskCheckInterval)
	if err != nil {
		return nil, err
	}

	return &serverParameters{
		hostURL:                 hostURL,
		siteBaseURL:             siteBaseURL,
		tlsCertificate:          cmdutil.GetOptionalString(cmd, tlsCertificateFlagName, tlsCertificateEnvKey),
		tlsKey:                  cmdutil.GetOptionalString(cmd, tlsKeyFlagName, tlsKeyEnvKey),
		activityPubDir:          cmdutil.GetOptionalString(cmd, activityPubDirFlagName, activityPubDirEnvKey),
		logSpec:                 cmdutil.GetOptionalString(cmd, logLevelFlagName, logLevelEnvKey),
		federationEnabled:       federationEnabled,
		autoApproveFollows:      autoApproveFollows,
		signatureVerification:   signatureVerification,
		defaultVisibility:       cmdutil.GetOptionalString(cmd, defaultVisibilityFlagName, defaultVisibilityEnvKey),
		maxDeliveryRetries:      maxDeliveryRetries,
		federationTimeout:       federationTimeout,
		actorKeyCacheTTL:        actorKeyCacheTTL,
		nodeInfoRefreshInterval: nodeInfoRefreshInterval,
		taskCheckInterval:       taskCheckInterval,
	}, nil
}

func getBool(cmd *cobra.Command, flagName, envKey string, defaultValue bool) (bool, error) {
	str := cmdutil.GetOptionalString(cmd, flagName, envKey)
	if str == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseBool(str)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s [%s]: %w", flagName, str, err)
	}

	return value, nil
}

func getInt(cmd *cobra.Command, flagName, envKey string, defaultValue int) (int, error) {
	str := cmdutil.GetOptionalString(cmd, flagName, envKey)
	if str == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s [%s]: %w", flagName, str, err)
	}

	return value, nil
}

func getDuration(cmd *cobra.Command, flagName, envKey string, defaultValue time.Duration) (time.Duration, error) {
	str := cmdutil.GetOptionalString(cmd, flagName, envKey)
	if str == "" {
		return defaultValue, nil
	}

	value, err := time.ParseDuration(str)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s [%s]: %w", flagName, str, err)
	}

	return value, nil
}

func createFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(hostURLFlagName, hostURLFlagShorthand, "", hostURLFlagUsage)
	cmd.Flags().StringP(siteBaseURLFlagName, siteBaseURLFlagShorthand, "", siteBaseURLFlagUsage)
	cmd.Flags().StringP(tlsCertificateFlagName, "", "", tlsCertificateFlagUsage)
	cmd.Flags().StringP(tlsKeyFlagName, "", "", tlsKeyFlagUsage)
	cmd.Flags().StringP(activityPubDirFlagName, "", "", activityPubDirFlagUsage)
	cmd.Flags().StringP(logLevelFlagName, "", "", logLevelFlagUsage)
	cmd.Flags().StringP(federationEnabledFlagName, "", "", federationEnabledFlagUsage)
	cmd.Flags().StringP(autoApproveFollowsFlagName, "", "", autoApproveFollowsFlagUsage)
	cmd.Flags().StringP(signatureVerificationFlagName, "", "", signatureVerificationFlagUsage)
	cmd.Flags().StringP(defaultVisibilityFlagName, "", "", defaultVisibilityFlagUsage)
	cmd.Flags().StringP(maxDeliveryRetriesFlagName, "", "", maxDeliveryRetriesFlagUsage)
	cmd.Flags().StringP(federationTimeoutFlagName, "", "", federationTimeoutFlagUsage)
	cmd.Flags().StringP(actorKeyCacheTTLFlagName, "", "", actorKeyCacheTTLFlagUsage)
	cmd.Flags().StringP(nodeInfoRefreshIntervalFlagName, "", "", nodeInfoRefreshIntervalFlagUsage)
	cmd.Flags().StringP(taskCheckIntervalFlagName, "", "", taskCheckIntervalFlagUsage)
}
