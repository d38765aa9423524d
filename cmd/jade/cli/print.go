/*
Copyright 2018 Gravitational, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/gravitational/trace"
	log "github.com/sirupsen/logrus"
)

// initLogging configures logrus the way every jade subcommand expects:
// text output with timestamps, level gated by --debug.
func initLogging(level string) {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

// PrintError prints err to stderr in red, matching
// tool/common.PrintError's convention, adapted to report the
// user-facing message rather than a full trace.
func PrintError(err error) {
	fmt.Fprintln(os.Stderr, color.RedString("[ERROR] %v", trace.UserMessage(err)))
}

// PrintWarn prints a yellow warning to stdout.
func PrintWarn(message string, args ...interface{}) {
	fmt.Println(color.YellowString("[WARN] "+message, args...))
}

// ExitCode maps err to the process exit code the CLI contract in spec §6
// requires: 0 for success (Status.GOOD), non-zero otherwise (Status.ERROR).
// The core does not distinguish further numeric codes by error taxonomy.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
