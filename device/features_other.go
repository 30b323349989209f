//go:build !amd64 && !arm64

package device

func cpuFeatures() []string {
	// No feature probing outside amd64 and arm64; the scalar work item
	// does not depend on any of them.
	return nil
}
