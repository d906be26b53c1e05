package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rconduit/rconduit/internal/logging"
	"github.com/rconduit/rconduit/internal/rcon"
	"github.com/rconduit/rconduit/internal/transport"
)

var (
	flagConfig      string
	flagAddr        string
	flagPassword    string
	flagTimeout     time.Duration
	flagLenientAuth bool
	flagTLS         bool
	flagTLSCA       string
	flagTLSCert     string
	flagTLSKey      string
	flagTLSName     string
	flagTLSInsecure bool
)

// rootCmd is the whole CLI: with arguments it runs one console command and
// exits, without arguments it drops into an interactive prompt.
var rootCmd = &cobra.Command{
	Use:   "rconctl [command...]",
	Short: "Remote console client",
	Long: `rconctl connects to a game server's remote console, authenticates, and
executes commands. Pass a command as arguments to run it once and exit,
or pass nothing to get an interactive prompt.

The console password is read from --password, the config file, or the
RCONDUIT_CONSOLE_PASSWORD environment variable, in that order.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runConsole,
}

func init() {
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Path to a toml config file")
	rootCmd.Flags().StringVarP(&flagAddr, "addr", "a", "", "Console address (host:port)")
	rootCmd.Flags().StringVarP(&flagPassword, "password", "p", "", "Console password")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Per-command response timeout")
	rootCmd.Flags().BoolVar(&flagLenientAuth, "lenient-auth", false, "Accept servers that skip the empty auth echo")
	rootCmd.Flags().BoolVar(&flagTLS, "tls", false, "Wrap the console stream in TLS")
	rootCmd.Flags().StringVar(&flagTLSCA, "tls-ca", "", "CA bundle for verifying the console server")
	rootCmd.Flags().StringVar(&flagTLSCert, "tls-cert", "", "Client certificate for mutual TLS")
	rootCmd.Flags().StringVar(&flagTLSKey, "tls-key", "", "Client key for mutual TLS")
	rootCmd.Flags().StringVar(&flagTLSName, "tls-server-name", "", "Expected TLS server name")
	rootCmd.Flags().BoolVar(&flagTLSInsecure, "tls-insecure", false, "Skip TLS certificate verification")
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, err := resolveClientConfig(cmd)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return errors.New("console address required (--addr or config file)")
	}
	if cfg.Password == "" {
		return errors.New("console password required (--password, config file, or RCONDUIT_CONSOLE_PASSWORD)")
	}
	if err := cfg.Transport.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	raw, err := transport.Dial(ctx, cfg.Addr, cfg.Transport)
	if err != nil {
		return err
	}
	conn := rcon.NewConn(raw, cfg.Engine)
	defer conn.Close()

	if err := conn.Authenticate(ctx, cfg.Password); err != nil {
		return err
	}

	if len(args) > 0 {
		out, err := conn.Execute(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	}
	return interact(ctx, cmd, conn)
}

func interact(ctx context.Context, cmd *cobra.Command, conn *rcon.Conn) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "connected; type a command, or exit to quit")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		resp, err := conn.Execute(ctx, line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, resp)
	}
}

func main() {
	logging.ConfigureRuntime()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "rconctl: %v\n", err)
		os.Exit(1)
	}
}
