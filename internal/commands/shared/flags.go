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

// globals holds the persistent flag values bound by the root command and
// the build-time version information injected from main.
type globals struct {
	verbose    bool
	quiet      bool
	json       bool
	configPath string

	version   string
	commit    string
	buildDate string
}

var g = globals{
	version:   "dev",
	commit:    "unknown",
	buildDate: "unknown",
}

// RegisterFlagPointers returns the variables the root command binds its
// persistent flags to, in order: verbose, quiet, json, config path.
func RegisterFlagPointers() (*bool, *bool, *bool, *string) {
	return &g.verbose, &g.quiet, &g.json, &g.configPath
}

// SetVersion records the ldflags-injected build information.
func SetVersion(version, commit, buildDate string) {
	g.version = version
	g.commit = commit
	g.buildDate = buildDate
}

// GetVerbose reports whether --verbose was given.
func GetVerbose() bool { return g.verbose }

// GetQuiet reports whether --quiet was given.
func GetQuiet() bool { return g.quiet }

// GetJSON reports whether --json output was requested.
func GetJSON() bool { return g.json }

// GetConfigPath returns the --config value, empty when unset.
func GetConfigPath() string { return g.configPath }

// GetVersion returns the version, commit, and build date.
func GetVersion() (string, string, string) {
	return g.version, g.commit, g.buildDate
}
