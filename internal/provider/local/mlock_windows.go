//go:build windows

package local

// Memory locking is not attempted on Windows.
func mlock([]byte) bool { return false }

func munlock([]byte) {}
