package web

import (
	"time"

	"github.com/brandsync/reconciler/internal/artifact"
)

// Config represents the review server configuration
type Config struct {
	Addr         string
	APIKey       string
	ArtifactDir  string
	Format       artifact.Format
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns a default configuration
func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		ArtifactDir:  ".",
		Format:       artifact.FormatJSON,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
