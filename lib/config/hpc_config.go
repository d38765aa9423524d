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

package config

import (
	"encoding/json"
	"io/ioutil"

	"github.com/gravitational/trace"
)

// HPCConfig models the `--hpc-config FILE` CLI option (spec §6): backend
// tunables that are opaque to the scheduling core and passed straight
// through to whichever hpc.Manager implementation is wired in, restoring
// the hpc_config.json sidecar referenced by daniel-thom/jade's
// HpcManager/SlurmManager constructors (SPEC_FULL.md §10.3).
type HPCConfig struct {
	// Partition is passed to the Slurm backend as --partition.
	Partition string `json:"partition,omitempty"`
	// Account is passed to the Slurm backend as --account.
	Account string `json:"account,omitempty"`
	// Walltime is passed to the Slurm backend as --time.
	Walltime string `json:"walltime,omitempty"`
}

// LoadHPCConfig reads an HPCConfig document from path. An empty path
// returns the zero-value HPCConfig, matching the CLI's optional
// --hpc-config flag.
func LoadHPCConfig(path string) (HPCConfig, error) {
	if path == "" {
		return HPCConfig{}, nil
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return HPCConfig{}, trace.Wrap(err)
	}
	var cfg HPCConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return HPCConfig{}, trace.Wrap(err, "parsing hpc config %v", path)
	}
	return cfg, nil
}
