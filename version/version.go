// Copyright 2017 Fortio Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package version holds the engine's version and build information, shown
// by the version subcommand and the serve startup log line. Grounded on
// fortio/version/version.go, which wraps
// fortio.org/version the same way.
package version // import "splitcore.dev/splitcore/version"

import (
	"fortio.org/version"
)

var (
	shortVersion = "dev"
	longVersion = "unknown long"
	fullVersion = "unknown full"
)

// Short returns the short Major.Minor.Patch version string, matching the
// module's git tag (without the leading v), or "dev" outside a tagged
// build.
func Short() string {
	return shortVersion
}

// Long returns the long version and build information: "X.Y.Z hash
// go-version processor os".
func Long() string {
	return longVersion
}

// Full returns Long plus the full runtime BuildInfo (every dependent
// module, version and hash).
func Full() string {
	return fullVersion
}

func init() { //nolint:gochecknoinits // burns in the build-time version once at process start
	shortVersion, longVersion, fullVersion = version.FromBuildInfoPath("splitcore.dev/splitcore")
}
