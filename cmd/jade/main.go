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

// Command jade is the CLI front end for the scheduling engine: it loads
// flags with kingpin, wires the concrete collaborators (hpc.Manager,
// events.Sink, jobs.Aggregator) and drives scheduler.Scheduler.Run. It is
// the external collaborator described in spec §1/§6 — the core scheduler
// itself has no CLI dependency.
package main

import (
	"os"

	"github.com/daniel-thom/jade/cmd/jade/cli"
	"github.com/gravitational/trace"
	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if err := cli.Run(os.Args[1:]); err != nil {
		log.Error(trace.DebugReport(err))
		cli.PrintError(err)
		os.Exit(cli.ExitCode(err))
	}
}
