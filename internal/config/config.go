// Package config defines the engine's configuration surface: the struct
// shapes and validation tags a project's .toml/.env loader decodes into,
// grounded on nabbar-golib/httpserver.ServerConfig's mapstructure+validate
// tag style. Reading the file itself is an external collaborator's job;
// this package only owns the shape and the validation rules.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Network holds the per-listener network configuration.
type Network struct {
	Listen  string `mapstructure:"listen" toml:"listen" validate:"required,hostname_port"`
	Backlog int    `mapstructure:"backlog" toml:"backlog" validate:"gte=0"`

	HeaderTimeout time.Duration `mapstructure:"header_timeout" toml:"header_timeout" validate:"required,gt=0"`
	BodyTimeout   time.Duration `mapstructure:"body_timeout" toml:"body_timeout" validate:"required,gt=0"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout" toml:"idle_timeout" validate:"required,gt=0"`

	MaxHeaderTotalSize  int   `mapstructure:"max_header_total_size" toml:"max_header_total_size" validate:"required,gt=0"`
	MaxHeaderTotalCount int   `mapstructure:"max_header_total_count" toml:"max_header_total_count" validate:"required,gt=0"`
	MaxBodyTotalSize    int64 `mapstructure:"max_body_total_size" toml:"max_body_total_size" validate:"required,gt=0"`
	RecvBufferIncrSize  int   `mapstructure:"recv_buffer_incr_size" toml:"recv_buffer_incr_size" validate:"required,gt=0"`
	MaxRecvBufferSize   int   `mapstructure:"max_recv_buffer_size" toml:"max_recv_buffer_size" validate:"required,gt=0"`
	SendBufferSize      int   `mapstructure:"send_buffer_size" toml:"send_buffer_size" validate:"required,gt=0"`

	TLSEnabled  bool   `mapstructure:"tls_enabled" toml:"tls_enabled"`
	TLSCertFile string `mapstructure:"tls_cert_file" toml:"tls_cert_file" validate:"required_if=TLSEnabled true"`
	TLSKeyFile  string `mapstructure:"tls_key_file" toml:"tls_key_file" validate:"required_if=TLSEnabled true"`

	MaxConnectionsPerIP  uint32 `mapstructure:"max_connections_per_ip" toml:"max_connections_per_ip" validate:"required,gt=0"`
	MaxRequestBurstPerIP uint32 `mapstructure:"max_request_burst_per_ip" toml:"max_request_burst_per_ip" validate:"required,gt=0"`
	MaxRequestsPerIPSec  uint32 `mapstructure:"max_requests_per_ip_per_sec" toml:"max_requests_per_ip_per_sec" validate:"required,gt=0"`
}

// Linux holds POSIX-only worker/process configuration (the fields spec §6
// names "Linux-only") — SO_REUSEPORT fan-out, fd-limit derived sizing.
type Linux struct {
	WorkerCount    int  `mapstructure:"worker_count" toml:"worker_count" validate:"gte=0"`
	ReusePort      bool `mapstructure:"reuse_port" toml:"reuse_port"`
	FileCacheLimit int  `mapstructure:"file_cache_limit" toml:"file_cache_limit" validate:"gte=0"`
}

// Project is the top-level configuration root a loader decodes a
// .toml/.env source into.
type Project struct {
	Network Network `mapstructure:"network" toml:"network" validate:"required"`
	Linux   Linux   `mapstructure:"linux" toml:"linux"`

	TemplateRoot string `mapstructure:"template_root" toml:"template_root"`
	BuildDir     string `mapstructure:"build_dir" toml:"build_dir"`
	PublicPrefix string `mapstructure:"public_prefix" toml:"public_prefix"`

	// MetricsListen is the address a Prometheus exposition endpoint binds
	// to, e.g. "127.0.0.1:9090". Empty disables the endpoint entirely.
	MetricsListen string `mapstructure:"metrics_listen" toml:"metrics_listen"`

	MiddlewareOrder []string `mapstructure:"middleware_order" toml:"middleware_order"`
}

// Validate runs struct-tag validation, collecting every failing field
// rather than stopping at the first, matching the ServerConfig.Validate
// shape this is grounded on.
func (p *Project) Validate() error {
	return validator.New().Struct(p)
}

// Decode reads a Project out of an already-populated viper.Viper, applying
// tag-driven validation afterward. The Viper instance's source (file,
// env, flags) is the caller's concern.
func Decode(v *viper.Viper) (*Project, error) {
	var p Project
	if err := v.Unmarshal(&p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
