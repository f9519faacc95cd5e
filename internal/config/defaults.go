package config

const (
	defaultLogDir     = "~/.local/share/serialscan/logs"
	defaultDataDir    = "~/.local/share/serialscan"
	defaultSocketPath = "~/.local/share/serialscan/serialscand.sock"

	defaultMinimumLength = 10
	defaultMaximumLength = 12
	defaultCacheSize     = 128

	defaultBufferCapacity         = 10
	defaultRequiredStableFrames   = 3
	defaultClusterWindow          = 5
	defaultStabilityWindowSeconds = 1.0
	defaultLockSeconds            = 2.0
	defaultConfidenceThreshold    = 0.8
	defaultMaxEditDistance        = 1

	defaultCameraDevice = "/dev/video0"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:     defaultLogDir,
			DataDir:    defaultDataDir,
			SocketPath: defaultSocketPath,
		},
		Validation: Validation{
			MinimumLength: defaultMinimumLength,
			MaximumLength: defaultMaximumLength,
			CacheSize:     defaultCacheSize,
		},
		Consensus: Consensus{
			BufferCapacity:         defaultBufferCapacity,
			RequiredStableFrames:   defaultRequiredStableFrames,
			ClusterWindow:          defaultClusterWindow,
			StabilityWindowSeconds: defaultStabilityWindowSeconds,
			LockSeconds:            defaultLockSeconds,
			ConfidenceThreshold:    defaultConfidenceThreshold,
			MaxEditDistance:        defaultMaxEditDistance,
		},
		Camera: Camera{
			Device:         defaultCameraDevice,
			HotplugMonitor: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
