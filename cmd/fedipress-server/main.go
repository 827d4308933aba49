/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"github.com/spf13/cobra"

	"github.com/fedipress/fedipress/cmd/fedipress-server/startcmd"
	"github.com/fedipress/fedipress/internal/pkg/log"
)

var logger = log.New("fedipress-server")

func main() {
	rootCmd := &cobra.Command{
		Use: "fedipress-server",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	rootCmd.AddCommand(startcmd.GetStartCmd())

	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("Failed to run FediPress server.", log.WithError(err))
	}
}
