/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"github.com/fedipress/fedipress/internal/pkg/log"
)

const logSpecErrorMsg = `Invalid log spec. It needs to be in the following format: ` +
	`"module1=level1:module2=level2:defaultLevel". Valid levels: panic, fatal, error, warn, info, debug.`

// setLogLevels sets the log levels of individual modules as well as the
// default level from the given spec. An invalid spec falls back to INFO.
func setLogLevels(logger *log.Log, logSpec string) {
	if logSpec == "" {
		return
	}

	if err := log.SetSpec(logSpec); err != nil {
		logger.Warn(logSpecErrorMsg, log.WithError(err))

		log.SetDefaultLevel(log.INFO)
	}
}
