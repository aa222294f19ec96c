//go:build !unix

package sandbox

// Directory handles cannot be fsynced outside unix.
func isSyncUnsupported(error) bool { return true }
