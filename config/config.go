package config

import (
	"github.com/plenumlabs/scribe/logger"
	"github.com/plenumlabs/scribe/media"
	"github.com/plenumlabs/scribe/observability"
	"github.com/plenumlabs/scribe/queue"
	"github.com/plenumlabs/scribe/reconcile"
	"github.com/plenumlabs/scribe/server"
	"github.com/plenumlabs/scribe/store"
	"github.com/plenumlabs/scribe/transcription/whisper"
	"github.com/plenumlabs/scribe/validation"
	"github.com/plenumlabs/scribe/version"
	"github.com/plenumlabs/scribe/worker"
)

// Config is the full service configuration.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"omitempty,oneof=development staging production"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging       logger.Config        `yaml:"logging" mapstructure:"logging"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Store         store.Config         `yaml:"store" mapstructure:"store"`
	Segmenter     media.Config         `yaml:"segmenter" mapstructure:"segmenter"`
	Whisper       whisper.Config       `yaml:"whisper" mapstructure:"whisper"`
	Worker        worker.Config        `yaml:"worker" mapstructure:"worker"`
	Reconciler    reconcile.Config     `yaml:"reconciler" mapstructure:"reconciler"`
	Queue         queue.Config         `yaml:"queue" mapstructure:"queue"`
}

// ApplyDefaults fills in zero-valued fields across all sections.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "scribe"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Version == "" {
		c.Version = version.Get().String()
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = c.Name
	}
	if c.Observability.ServiceVersion == "" {
		c.Observability.ServiceVersion = c.Version
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}

	c.Logging.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Observability.ApplyDefaults()
	c.Store.ApplyDefaults()
	c.Segmenter.ApplyDefaults()
	c.Whisper.ApplyDefaults()
	c.Worker.ApplyDefaults()
	c.Reconciler.ApplyDefaults()
	c.Queue.ApplyDefaults()
}

// Validate checks struct tags across all sections plus per-section rules.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Segmenter.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}
