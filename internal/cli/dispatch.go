// Package cli resolves the multi-call binary's argv[0] basename to the
// right behavior, mirroring hfsutils' fsck_main.c program-name dispatch.
package cli

import (
	"path/filepath"
	"strings"

	"github.com/dsoprea/go-hfs"
)

// ProgramName strips any path and a trailing ".exe" from argv0, the same
// normalization fsck_main.c applies before switching on the binary's name.
func ProgramName(argv0 string) string {
	name := filepath.Base(argv0)
	return strings.TrimSuffix(name, ".exe")
}

// ResolveFsckTarget implements the `fsck.hfs` → `fsck.hfsplus` auto-
// delegation: when invoked as `fsck.hfs` against a volume that probes as
// HFS+ (or HFSX), the original reruns itself as fsck.hfsplus rather than
// failing. Callers pass the probed type and their own program name; the
// return value is the program name that should actually drive the check.
func ResolveFsckTarget(programName string, probed hfs.FSType) string {
	if programName != "fsck.hfs" {
		return programName
	}
	if probed == hfs.FSHFSPlus || probed == hfs.FSHFSX {
		return "fsck.hfsplus"
	}
	return programName
}
