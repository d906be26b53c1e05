package bridge

import (
	"errors"
	"strings"
	"time"

	"github.com/rconduit/rconduit/internal/rcon"
	"github.com/rconduit/rconduit/internal/transport"
)

var (
	ErrConsoleAddrRequired = errors.New("bridge: console address required")
	ErrPasswordRequired    = errors.New("bridge: console password required")
)

// Config defines the bridge daemon: one HTTP listener in front of one
// managed console connection.
type Config struct {
	ListenAddr     string
	ConsoleAddr    string
	Password       string
	AllowedOrigins []string

	// MaxConnectAttempts bounds redials per session establishment.
	// Zero or negative means retry forever.
	MaxConnectAttempts int

	Engine    rcon.Config
	Transport transport.Config
	Backoff   BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		ListenAddr: ":8070",
		Engine:     rcon.DefaultConfig(),
		Transport:  transport.DefaultConfig(),
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if strings.TrimSpace(c.ListenAddr) == "" {
		c.ListenAddr = def.ListenAddr
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = def.Backoff
	}
	c.Engine = c.Engine.WithDefaults()
	c.Transport = c.Transport.WithDefaults()
	return c
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ConsoleAddr) == "" {
		return ErrConsoleAddrRequired
	}
	if c.Password == "" {
		return ErrPasswordRequired
	}
	return c.Transport.Validate()
}
