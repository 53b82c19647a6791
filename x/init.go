/*
 * SPDX-FileCopyrightText: © Graphtrace Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package x

import "fmt"

var (
	// These variables are set using -ldflags.
	graphtraceVersion string
	gitBranch         string
	lastCommitSHA     string
	lastCommitTime    string
)

// Version returns the version string set at build time, or "dev" for builds
// that didn't go through the release Makefile.
func Version() string {
	if graphtraceVersion == "" {
		return "dev"
	}
	return graphtraceVersion
}

// BuildDetails returns a string containing the build and version information.
func BuildDetails() string {
	return fmt.Sprintf(`
Graphtrace version   : %v
Commit SHA-1         : %v
Commit timestamp     : %v
Branch               : %v
`, Version(), lastCommitSHA, lastCommitTime, gitBranch)
}
