package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"graft/internal/trace"
)

// traceConfig builds the recorder config from the trace flags. Naming an
// output without a level traces at cycle level.
func traceConfig(flags *pflag.FlagSet) (trace.Config, error) {
	var cfg trace.Config
	output, err := flags.GetString("trace")
	if err != nil {
		return cfg, err
	}
	levelValue, err := flags.GetString("trace-level")
	if err != nil {
		return cfg, err
	}
	modeValue, err := flags.GetString("trace-mode")
	if err != nil {
		return cfg, err
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return cfg, err
	}
	if cfg.Level, err = trace.ParseLevel(levelValue); err != nil {
		return cfg, err
	}
	if cfg.Level == trace.LevelOff && output != "" {
		cfg.Level = trace.LevelCycle
	}
	if cfg.Mode, err = trace.ParseMode(modeValue); err != nil {
		return cfg, err
	}
	cfg.OutputPath = output
	cfg.RingSize = ringSize
	return cfg, nil
}

// setupTracing attaches a tracer to the command context and returns the
// function that closes it.
func setupTracing(cmd *cobra.Command) (func(), error) {
	cfg, err := traceConfig(cmd.Root().PersistentFlags())
	if err != nil {
		return nil, err
	}
	tracer, err := trace.New(cfg)
	if err != nil {
		return nil, err
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))
	return func() {
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "graft: trace: %v\n", err)
		}
	}, nil
}
