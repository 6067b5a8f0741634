package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/DeBrosOfficial/hdsview/pkg/cli"
)

// version metadata populated via -ldflags at build time
var (
	version = "dev"
	commit  = ""
	date    = ""
)

// globals holds the flags accepted by every command.
type globals struct {
	opts      cli.Options
	host      string
	search    string
	output    string
	launchURL string
}

func main() {
	if len(os.Args) < 2 {
		showHelp()
		return
	}

	command := os.Args[1]
	g, args := parseGlobalFlags(os.Args[2:])

	switch command {
	case "version":
		fmt.Printf("hdsview %s", version)
		if commit != "" {
			fmt.Printf(" (commit %s)", commit)
		}
		if date != "" {
			fmt.Printf(" built %s", date)
		}
		fmt.Println()
		return

	// Directory commands
	case "identify":
		cli.HandleIdentifyCommand(hostArg(g, args, 0), g.opts)
	case "connect":
		cli.HandleConnectCommand(hostArg(g, args, 0), g.opts)
	case "topics":
		cli.HandleTopicsCommand(g.host, g.search, g.opts)
	case "topic":
		if len(args) == 0 {
			fmt.Fprintf(os.Stderr, "Usage: hdsview topic <topic> [subtopic...] [--host <host>]\n")
			os.Exit(1)
		}
		cli.HandleTopicCommand(g.host, args[0], args[1:], g.opts)
	case "host":
		if len(args) == 0 {
			fmt.Fprintf(os.Stderr, "Usage: hdsview host <identity> [--host <host>]\n")
			os.Exit(1)
		}
		cli.HandleHostCommand(g.host, args[0], g.opts)
	case "graph":
		cli.HandleGraphCommand(hostArg(g, args, 0), g.output, g.opts)

	// Interactive console
	case "console":
		cli.HandleConsoleCommand(hostArg(g, args, 0), g.launchURL, g.opts)

	// Preferences and configuration
	case "default":
		cli.HandleDefaultCommand(args, g.opts)
	case "config":
		cli.HandleConfigCommand(args, g.opts)

	case "help", "--help", "-h":
		showHelp()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		showHelp()
		os.Exit(1)
	}
}

// hostArg prefers --host, then the positional argument at i.
func hostArg(g globals, args []string, i int) string {
	if g.host != "" {
		return g.host
	}
	if i < len(args) {
		return args[i]
	}
	return ""
}

// parseGlobalFlags pulls the shared flags out of args and returns the
// remaining positional arguments.
func parseGlobalFlags(args []string) (globals, []string) {
	g := globals{opts: cli.Options{Format: cli.FormatText, Timeout: 30 * time.Second}}
	var rest []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		value := func() string {
			if i+1 < len(args) {
				i++
				return args[i]
			}
			fmt.Fprintf(os.Stderr, "Missing value for %s\n", arg)
			os.Exit(1)
			return ""
		}

		switch arg {
		case "-f", "--format":
			g.opts.Format = strings.ToLower(value())
		case "-t", "--timeout":
			v := value()
			d, err := time.ParseDuration(v)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid timeout %q: %v\n", v, err)
				os.Exit(1)
			}
			g.opts.Timeout = d
		case "-c", "--config":
			g.opts.ConfigPath = value()
		case "--log-file":
			g.opts.LogFile = value()
		case "-H", "--host":
			g.host = value()
		case "-s", "--search":
			g.search = value()
		case "-o", "--output":
			g.output = value()
		case "--url":
			g.launchURL = value()
		default:
			rest = append(rest, arg)
		}
	}
	return g, rest
}

func showHelp() {
	fmt.Printf("hdsview - HDS directory client\n\n")
	fmt.Printf("Usage: hdsview <command> [args...]\n\n")

	fmt.Printf("🔎 Directory:\n")
	fmt.Printf("  identify [host]               - Show the directory's server name and type\n")
	fmt.Printf("  connect [host]                - Connect and show name and contact\n")
	fmt.Printf("  topics [-s <search>]          - List topics, optionally filtered by substring\n")
	fmt.Printf("  topic <topic> [subtopic...]   - List hosts registered under a topic\n")
	fmt.Printf("  host <identity>               - Show a host's attributes\n")
	fmt.Printf("  graph [host] [-o <file>]      - Discover the topic graph (text, json or dot)\n\n")

	fmt.Printf("🖥  Console:\n")
	fmt.Printf("  console [host] [--url <link>] - Interactive browser; --url takes an ext+hds link\n\n")

	fmt.Printf("⚙️  Settings:\n")
	fmt.Printf("  default show                  - Show the saved default directory\n")
	fmt.Printf("  default set <host>            - Connect and save host as the default\n")
	fmt.Printf("  config init [--force]         - Write a default config file\n")
	fmt.Printf("  config validate               - Validate the config file\n")
	fmt.Printf("  config path                   - Print the config file location\n\n")

	fmt.Printf("Global Flags:\n")
	fmt.Printf("  -H, --host <host>             - Directory host (default: config, then saved default)\n")
	fmt.Printf("  -f, --format <format>         - Output format: text, json, dot (graph only)\n")
	fmt.Printf("  -t, --timeout <duration>      - Per-request timeout (default: 30s)\n")
	fmt.Printf("  -c, --config <path>           - Config file (default: ~/.hds/hdsview.yaml)\n")
	fmt.Printf("  --log-file <path>             - Write logs to a file\n\n")

	fmt.Printf("Examples:\n")
	fmt.Printf("  hdsview identify hds.example.org\n")
	fmt.Printf("  hdsview topics -s chat --host hds.example.org:27012\n")
	fmt.Printf("  hdsview graph -f dot -o topology.dot\n")
	fmt.Printf("  hdsview console --url '#!/ext%%2Bhds%%3Ahds.example.org'\n")
}
