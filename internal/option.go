package internal

import (
	"io"

	"github.com/starford/gistpub/internal/publisher"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logOutput io.Writer
	newClient publisher.ClientFactory
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput sends logs to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithGistClientFactory replaces the GitHub client used for publishing.
func WithGistClientFactory(f publisher.ClientFactory) Option {
	return func(a *application) {
		a.newClient = f
	}
}
