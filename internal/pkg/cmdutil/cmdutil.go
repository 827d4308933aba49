/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package cmdutil resolves command parameters from either a command-line
// flag or its corresponding environment variable, with the flag taking
// precedence.
package cmdutil

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// GetString returns the value of the given parameter from either the command
// line flag or the environment variable. An error is returned if a required
// parameter is not set.
func GetString(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf("%s flag not found: %w", flagName, err)
		}

		if value == "" {
			return "", fmt.Errorf("%s value is empty", flagName)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		if !isOptional && value == "" {
			return "", fmt.Errorf("%s value is empty", envKey)
		}

		return value, nil
	}

	return "", errors.New("neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set")
}

// GetOptionalString returns the value of the given optional parameter, or an
// empty string if it is not set.
func GetOptionalString(cmd *cobra.Command, flagName, envKey string) string {
	v, _ := GetString(cmd, flagName, envKey, true)

	return v
}

// GetStringArray returns the values of the given parameter from either the
// command line flag (repeatable) or a comma-separated environment variable.
func GetStringArray(cmd *cobra.Command, flagName, envKey string, isOptional bool) ([]string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetStringArray(flagName)
		if err != nil {
			return nil, fmt.Errorf("%s flag not found: %w", flagName, err)
		}

		if len(value) == 0 {
			return nil, fmt.Errorf("%s value is empty", flagName)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		if !isOptional && value == "" {
			return nil, fmt.Errorf("%s value is empty", envKey)
		}

		if value == "" {
			return nil, nil
		}

		return strings.Split(value, ","), nil
	}

	return nil, errors.New("neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set")
}
