package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/DeBrosOfficial/hdsview/pkg/errors"
)

// HandleDefaultCommand handles `default show` and `default set <host>`.
func HandleDefaultCommand(args []string, opts Options) {
	if len(args) == 0 {
		args = []string{"show"}
	}

	rt, err := newRuntime(opts)
	if err != nil {
		fail(opts, "Failed to load configuration", err)
	}
	defer rt.logger.Sync()

	switch args[0] {
	case "show":
		if err := runDefaultShow(rt, opts.Format, opts.out()); err != nil {
			fail(opts, "Failed to read default directory", err)
		}
	case "set":
		host := ""
		if len(args) > 1 {
			host = args[1]
		}
		ctx, cancel := context.WithTimeout(context.Background(), rt.timeout())
		defer cancel()
		if err := runDefaultSet(ctx, rt, host, opts.Format, opts.out()); err != nil {
			fail(opts, "Failed to save default directory", err)
		}
	default:
		fail(opts, "Unknown default subcommand", fmt.Errorf("%q (use show or set)", args[0]))
	}
}

func runDefaultShow(rt *runtime, format string, w io.Writer) error {
	d, err := rt.prefs.Load()
	if err != nil {
		if errors.IsNotFound(err) {
			if format == FormatJSON {
				return printJSON(w, map[string]interface{}{"default": nil})
			}
			fmt.Fprintln(w, warnStyle.Render("No default directory saved"))
			return nil
		}
		return err
	}
	if format == FormatJSON {
		return printJSON(w, map[string]interface{}{"default": d})
	}
	printField(w, "Host", d.Host)
	printField(w, "Server name", d.ServerName)
	printField(w, "Saved", d.SavedAt.Format("2006-01-02 15:04:05"))
	printField(w, "File", rt.prefs.Path())
	return nil
}

// runDefaultSet connects first so that only a reachable directory is saved,
// along with the server name it reported.
func runDefaultSet(ctx context.Context, rt *runtime, host, format string, w io.Writer) error {
	if host == "" {
		return errors.NewValidationError("host", "usage: hdsview default set <host>", host)
	}
	sess, err := rt.connect(ctx, host)
	if err != nil {
		return err
	}
	snap := sess.Snapshot()
	if err := rt.prefs.SaveDefault(snap.Address, snap.ServerName); err != nil {
		return err
	}
	if format == FormatJSON {
		return printJSON(w, map[string]string{"host": snap.Address, "servername": snap.ServerName, "file": rt.prefs.Path()})
	}
	fmt.Fprintf(w, "%s Saved %s (%s) as default directory\n", okStyle.Render("✓"), safe(snap.Address), safe(snap.ServerName))
	return nil
}
