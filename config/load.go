package config

import (
	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
)

// Load reads the environment into a Config. A .env file is applied first
// when present; real environment variables win over it.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// MatchDefaults builds the default per-run match config from the environment
func (c Config) MatchDefaults() (semantic, token, attribute float64, candidateLimit, workers int) {
	return c.MatchSemanticWeight, c.MatchTokenWeight, c.MatchAttributeWeight, c.MatchCandidateLimit, c.MatchWorkerCount
}
