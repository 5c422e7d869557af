package paths

import "strings"

const windowsPlatformConstant = "windows"

// RequiresCompatibilityShell reports whether tools on the platform must run through a POSIX compatibility shell.
func RequiresCompatibilityShell(platform string) bool {
	return strings.EqualFold(strings.TrimSpace(platform), windowsPlatformConstant)
}
