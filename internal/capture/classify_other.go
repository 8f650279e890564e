//go:build !unix

package capture

func isDeviceGone(err error) bool {
	return false
}
