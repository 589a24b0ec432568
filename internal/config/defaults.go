package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:       "~/.local/share/meander",
			SQLiteFile: "meander.db",
		},
		Daemon: DaemonConfig{
			BaseURL: "http://127.0.0.1:7168",
			PushURL: "ws://127.0.0.1:7168/api/v1/push",
		},
		Sync: SyncConfig{
			Batching:            true,
			BatchWindowMs:       300,
			ReconcileDelayMs:    1000,
			PollIntervalSeconds: 5,
		},
		Offload: OffloadConfig{
			TimeoutMs:  4000,
			MaxPending: 80,
		},
		Analytics: AnalyticsConfig{
			BingeCap:              1.6,
			LateNightBonus:        0.6,
			LateNightStartHour:    23,
			LateNightEndHour:      6,
			TrapDoorMinDepth:      5,
			TrapDoorMinMinutes:    10,
			DominantCategoryShare: 0.55,
			WanderNavsPerMinute:   1.2,
			Timezone:              "",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}
