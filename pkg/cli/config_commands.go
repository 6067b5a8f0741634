package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/DeBrosOfficial/hdsview/pkg/config"
)

// HandleConfigCommand handles `config init [--force]`, `config validate` and
// `config path`.
func HandleConfigCommand(args []string, opts Options) {
	if len(args) == 0 {
		showConfigHelp(opts.out())
		return
	}

	path := opts.ConfigPath
	if path == "" {
		p, err := config.DefaultPath(ConfigFileName)
		if err != nil {
			fail(opts, "Failed to resolve config path", err)
		}
		path = p
	}

	switch args[0] {
	case "init":
		force := len(args) > 1 && args[1] == "--force"
		if err := runConfigInit(path, force, opts.out()); err != nil {
			fail(opts, "Failed to write config", err)
		}
	case "validate":
		if err := runConfigValidate(path, opts.out()); err != nil {
			fail(opts, "Invalid configuration", err)
		}
	case "path":
		fmt.Fprintln(opts.out(), path)
	case "help", "--help", "-h":
		showConfigHelp(opts.out())
	default:
		fail(opts, "Unknown config subcommand", fmt.Errorf("%q", args[0]))
	}
}

func runConfigInit(path string, force bool, w io.Writer) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s Wrote %s\n", okStyle.Render("✓"), path)
	return nil
}

func runConfigValidate(path string, w io.Writer) error {
	if _, err := LoadConfig(path); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s is valid\n", okStyle.Render("✓"), path)
	return nil
}

func showConfigHelp(w io.Writer) {
	fmt.Fprintln(w, "Config commands:")
	fmt.Fprintln(w, "  config init [--force]  - Write a default config file")
	fmt.Fprintln(w, "  config validate        - Check the config file and HDS_* overrides")
	fmt.Fprintln(w, "  config path            - Print the config file location")
}
