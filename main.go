/*
main.go

Copyright © 2025 Code Monkey Cybersecurity
Contact: git@cybermonkey.net.au

This file is part of agentkey.

This software is dual-licensed under the Do No Harm License
and the GNU Affero General Public License v3 (AGPL-3.0-or-later).
You may use, modify, and distribute it under the terms of either license.
*/
package main

import (
	"github.com/CodeMonkeyCybersecurity/agentkey/cmd"
	"github.com/CodeMonkeyCybersecurity/agentkey/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/agentkey/pkg/telemetry"
)

func main() {
	logger.InitFallback()

	if err := telemetry.Init("agentkey"); err != nil {
		logger.L().Warn("Telemetry disabled: " + err.Error())
	}

	cmd.Execute()
}
