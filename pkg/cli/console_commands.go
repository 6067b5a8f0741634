package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/hdsview/pkg/config"
	"github.com/DeBrosOfficial/hdsview/pkg/console"
	"github.com/DeBrosOfficial/hdsview/pkg/logging"
	"github.com/DeBrosOfficial/hdsview/pkg/session"
)

// ConsoleLogFile receives logs while the console owns the terminal.
const ConsoleLogFile = "console.log"

// HandleConsoleCommand starts the interactive console. launchURL, when set,
// is an ext+hds link whose host is connected to at startup; otherwise host
// or the saved default is used.
func HandleConsoleCommand(host, launchURL string, opts Options) {
	if opts.LogFile == "" {
		dir, err := config.EnsureConfigDir()
		if err != nil {
			fail(opts, "Failed to prepare config directory", err)
		}
		opts.LogFile = filepath.Join(dir, ConsoleLogFile)
	}

	rt, err := newRuntime(opts)
	if err != nil {
		fail(opts, "Failed to load configuration", err)
	}
	defer rt.logger.Sync()

	initial, err := consoleHost(rt, host, launchURL)
	if err != nil {
		fail(opts, "Invalid launch link", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.logger.ComponentInfo(logging.ComponentConsole, "console starting", zap.String("host", initial))
	sess := rt.newSession()
	if err := console.Run(ctx, sess, initial); err != nil {
		fail(opts, "Console exited with an error", err)
	}
}

// consoleHost picks the startup host. A console without one opens on the
// connect screen, so a missing default is not an error.
func consoleHost(rt *runtime, host, launchURL string) (string, error) {
	if launchURL != "" {
		return session.ParseLaunchFragment(launchURL)
	}
	h, err := rt.resolveHost(host)
	if err != nil {
		return "", nil
	}
	return h, nil
}
