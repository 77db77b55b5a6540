//go:build !linux

package autostart

// Autostart is only implemented on Linux. On other platforms these are
// no-ops so the settings surface stays uniform; Enabled always reports false.

func Enable() error  { return nil }
func Disable() error { return nil }
func Enabled() bool  { return false }

func Sync(want bool) error { return nil }
