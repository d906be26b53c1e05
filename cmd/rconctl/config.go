package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/rconduit/rconduit/internal/rcon"
	"github.com/rconduit/rconduit/internal/transport"
)

// clientConfig is everything rconctl needs to reach and drive one console.
type clientConfig struct {
	Addr      string
	Password  string
	Engine    rcon.Config
	Transport transport.Config
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		Engine:    rcon.DefaultConfig(),
		Transport: transport.DefaultConfig(),
	}
}

type clientFileConfig struct {
	Addr             string        `toml:"addr"`
	Password         string        `toml:"password"`
	HandshakeTimeout string        `toml:"handshake_timeout"`
	ResponseTimeout  string        `toml:"response_timeout"`
	LenientAuth      bool          `toml:"lenient_auth"`
	SecurityMode     string        `toml:"security_mode"`
	TLS              tlsFileConfig `toml:"tls"`
}

type tlsFileConfig struct {
	Enabled            bool   `toml:"enabled"`
	Mutual             bool   `toml:"mutual"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
	ServerName         string `toml:"server_name"`
	CAFile             string `toml:"ca_file"`
	CertFile           string `toml:"cert_file"`
	KeyFile            string `toml:"key_file"`
}

func loadClientConfig(path string) (clientConfig, error) {
	cfg := defaultClientConfig()

	var raw clientFileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return clientConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("addr") {
		cfg.Addr = raw.Addr
	}
	if meta.IsDefined("password") {
		cfg.Password = raw.Password
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
			return clientConfig{}, err
		}
		cfg.Engine.HandshakeTimeout = d
		cfg.Transport.HandshakeTimeout = d
	}
	if meta.IsDefined("response_timeout") {
		d, err := parseTimeout("response_timeout", raw.ResponseTimeout)
		if err != nil {
			return clientConfig{}, err
		}
		cfg.Engine.ResponseTimeout = d
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
		return 0, fmt.Errorf("load config: %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("load config: %s must be positive", key)
	}
	return d, nil
}

// resolveClientConfig layers the three sources: file, then flags, then
// environment for the password alone.
func resolveClientConfig(cmd *cobra.Command) (clientConfig, error) {
	cfg := defaultClientConfig()
	if flagConfig != "" {
		loaded, err := loadClientConfig(flagConfig)
		if err != nil {
			return clientConfig{}, err
		}
		cfg = loaded
	}

	if flagAddr != "" {
		cfg.Addr = flagAddr
	}
	if flagPassword != "" {
		cfg.Password = flagPassword
	}
	if flagTimeout > 0 {
		cfg.Engine.ResponseTimeout = flagTimeout
	}
	if cmd.Flags().Changed("lenient-auth") {
		cfg.Engine.AllowMissingAuthEcho = flagLenientAuth
	}
	if cmd.Flags().Changed("tls") {
		cfg.Transport.TLS.Enabled = flagTLS
	}
	if flagTLSCA != "" {
		cfg.Transport.TLS.CAFile = flagTLSCA
	}
	if flagTLSCert != "" {
		cfg.Transport.TLS.CertFile = flagTLSCert
		cfg.Transport.TLS.Mutual = true
	}
	if flagTLSKey != "" {
		cfg.Transport.TLS.KeyFile = flagTLSKey
	}
	if flagTLSName != "" {
		cfg.Transport.TLS.ServerName = flagTLSName
	}
	if cmd.Flags().Changed("tls-insecure") {
		cfg.Transport.TLS.InsecureSkipVerify = flagTLSInsecure
	}

	if cfg.Password == "" {
		cfg.Password = os.Getenv("RCONDUIT_CONSOLE_PASSWORD")
	}
	return cfg, nil
}
