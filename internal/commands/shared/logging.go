// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shared

import (
	"github.com/anomshot/anomshot/internal/log"
)

// DefaultConfigFile is used when --config is not given.
const DefaultConfigFile = "config.json"

// LoggerConfig builds the logging configuration from the environment with
// the global flags layered on top.
func LoggerConfig() *log.Config {
	cfg := log.FromEnv()
	if GetVerbose() {
		cfg.Level = "debug"
	}
	if GetQuiet() {
		cfg.Level = "error"
	}
	if GetJSON() {
		cfg.Format = log.FormatJSON
	}
	return cfg
}

// ConfigPath returns the configuration file path from the --config flag,
// falling back to the default.
func ConfigPath() string {
	if path := GetConfigPath(); path != "" {
		return path
	}
	return DefaultConfigFile
}
