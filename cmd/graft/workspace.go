package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"graft/internal/config"
	"graft/internal/logging"
)

// loadConfig loads --config, or the nearest config file above the working
// directory.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		found, ok, err := config.Find(wd)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("no %s found in %s or any parent directory", config.FileNames[0], wd)
		}
		path = found
	}
	return config.Load(path)
}

// newLogger builds the process logger from the log flags. A log file that
// cannot be opened is reported on stderr and logging falls back to it.
func newLogger(cmd *cobra.Command) (*logging.Logger, error) {
	flags := cmd.Root().PersistentFlags()
	levelStr, err := flags.GetString("log-level")
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}
	file, err := flags.GetString("log-file")
	if err != nil {
		return nil, err
	}
	asJSON, err := flags.GetBool("log-json")
	if err != nil {
		return nil, err
	}
	log, err := logging.New(logging.Config{Level: level, JSON: asJSON, Output: cmd.ErrOrStderr(), File: file})
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "graft: %v; logging to stderr\n", err)
	}
	return log, nil
}
