package config

import "time"

// getDefaultConfig retorna uma configuração padrão
func getDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			StaticDir:       "./static",
		},
		Redis: RedisConfig{
			Host:    "localhost",
			Port:    6379,
			DB:      0,
			Prefix:  "regata",
			Enabled: true,
		},
		Feed: FeedConfig{
			Disabled:   false,
			StaleAfter: 15 * time.Second,
		},
		Replay: ReplayConfig{
			MaxFrames:    100000,
			TickInterval: 16 * time.Millisecond,
		},
		Course: CourseConfig{
			Laps: 2,
		},
		Units: UnitsConfig{
			OfflineAfter: 10 * time.Second,
		},
		Simulation: SimulationConfig{
			Enabled:    false,
			Boats:      4,
			SampleRate: 100 * time.Millisecond,
			WindDir:    45,
			LegLength:  1500,
			Target:     "local",
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
		},
		LogLevel: "info",
	}
}
