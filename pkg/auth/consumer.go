package auth

import "runtime"

// Platform identifies the host platform a Pocket consumer key is
// registered for. Pocket issues one application key per platform.
type Platform string

const (
	PlatformLinux   Platform = "linux"
	PlatformMac     Platform = "mac"
	PlatformWindows Platform = "windows"
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// consumerKeys maps each platform to its pre-registered Pocket application
// key. Static configuration, selected once per process.
var consumerKeys = map[Platform]string{
	PlatformLinux:   "97653-12e003276f01f4ee05875c81",
	PlatformMac:     "97653-fe3e0b0a2c0c5e794c2ff097",
	PlatformWindows: "97653-541365a3736338ca19dae55a",
	PlatformAndroid: "97653-8c16f04731ef3be96a96a8ad",
	PlatformIOS:     "97653-d87e05b57b1e2eb334401f04",
}

// ConsumerKey returns the Pocket consumer key registered for the given
// platform. Unknown platforms fall back to the Linux desktop key.
func ConsumerKey(p Platform) string {
	if key, ok := consumerKeys[p]; ok {
		return key
	}
	return consumerKeys[PlatformLinux]
}

// DetectPlatform maps runtime.GOOS onto a Platform. Hosts embedding the
// client on mobile supply their platform explicitly instead.
func DetectPlatform() Platform {
	switch runtime.GOOS {
	case "darwin":
		return PlatformMac
	case "windows":
		return PlatformWindows
	case "android":
		return PlatformAndroid
	case "ios":
		return PlatformIOS
	default:
		return PlatformLinux
	}
}
