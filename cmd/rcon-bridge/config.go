package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/rconduit/rconduit/internal/bridge"
	"github.com/rconduit/rconduit/internal/transport"
)

type tlsFileConfig struct {
	Enabled            bool   `toml:"enabled"`
	Mutual             bool   `toml:"mutual"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
	ServerName         string `toml:"server_name"`
	CAFile             string `toml:"ca_file"`
	CertFile           string `toml:"cert_file"`
	KeyFile            string `toml:"key_file"`
}

type bridgeFileConfig struct {
	ListenAddr         string        `toml:"listen_addr"`
	ConsoleAddr        string        `toml:"console_addr"`
	Password           string        `toml:"password"`
	CORSOrigins        []string      `toml:"cors_origins"`
	MaxConnectAttempts int           `toml:"max_connect_attempts"`
	HandshakeTimeout   string        `toml:"handshake_timeout"`
	ResponseTimeout    string        `toml:"response_timeout"`
	ConnectTimeout     string        `toml:"connect_timeout"`
	LenientAuth        bool          `toml:"lenient_auth"`
	SecurityMode       string        `toml:"security_mode"`
	TLS                tlsFileConfig `toml:"tls"`
}

// loadBridgeConfig reads a toml file and layers it over the defaults.
// Only keys present in the file override; absent keys keep their defaults.
func loadBridgeConfig(path string) (bridge.Config, error) {
	cfg := bridge.DefaultConfig()

	var raw bridgeFileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return bridge.Config{}, fmt.Errorf("load bridge config: %w", err)
	}

	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = raw.ListenAddr
	}
	if meta.IsDefined("console_addr") {
		cfg.ConsoleAddr = raw.ConsoleAddr
	}
	if meta.IsDefined("password") {
		cfg.Password = raw.Password
	}
	if meta.IsDefined("cors_origins") {
		cfg.AllowedOrigins = raw.CORSOrigins
	}
	if meta.IsDefined("max_connect_attempts") {
		cfg.MaxConnectAttempts = raw.MaxConnectAttempts
	}
	if meta.IsDefined("lenient_auth") {
		cfg.Engine.AllowMissingAuthEcho = raw.LenientAuth
	}
	if meta.IsDefined("security_mode") {
		cfg.Transport.SecurityMode = transport.SecurityMode(raw.SecurityMode)
	}
	if meta.IsDefined("handshake_timeout") {
		d, err := parseTimeout("handshake_timeout", raw.HandshakeTimeout)
		if err != nil {
			return bridge.Config{}, err
		}
		cfg.Engine.HandshakeTimeout = d
		cfg.Transport.HandshakeTimeout = d
	}
	if meta.IsDefined("response_timeout") {
		d, err := parseTimeout("response_timeout", raw.ResponseTimeout)
		if err != nil {
			return bridge.Config{}, err
		}
		cfg.Engine.ResponseTimeout = d
	}
	if meta.IsDefined("connect_timeout") {
		d, err := parseTimeout("connect_timeout", raw.ConnectTimeout)
		if err != nil {
			return bridge.Config{}, err
		}
		cfg.Transport.ConnectTimeout = d
	}
	if meta.IsDefined("tls") {
		cfg.Transport.TLS = transport.TLSConfig{
			Enabled:            raw.TLS.Enabled,
			Mutual:             raw.TLS.Mutual,
			InsecureSkipVerify: raw.TLS.InsecureSkipVerify,
			ServerName:         raw.TLS.ServerName,
			CAFile:             raw.TLS.CAFile,
			CertFile:           raw.TLS.CertFile,
			KeyFile:            raw.TLS.KeyFile,
		}
	}
	return cfg, nil
}

func parseTimeout(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("load bridge config: %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("load bridge config: %s must be positive", key)
	}
	return d, nil
}
