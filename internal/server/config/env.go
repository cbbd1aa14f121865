package config

import "github.com/ilyakaznacheev/cleanenv"

// parseEnv overlays fields whose env variable is set. Unset variables keep
// the current value. A malformed value panics, like the other sources.
func parseEnv(config *Config) {
	if err := cleanenv.ReadEnv(config); err != nil {
		panic(err)
	}
}
