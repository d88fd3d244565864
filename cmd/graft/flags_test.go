package main

import (
	"testing"

	"github.com/spf13/pflag"

	"graft/internal/trace"
)

func globalFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("graft", pflag.ContinueOnError)
	registerGlobalFlags(flags)
	if err := flags.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return flags
}

func TestTraceConfigDefaultsOff(t *testing.T) {
	cfg, err := traceConfig(globalFlags(t))
	if err != nil {
		t.Fatalf("traceConfig: %v", err)
	}
	if cfg.Level != trace.LevelOff || cfg.Mode != trace.ModeStream || cfg.RingSize != 4096 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestTraceOutputImpliesCycleLevel(t *testing.T) {
	cfg, err := traceConfig(globalFlags(t, "--trace", "out.ndjson", "--trace-mode", "both"))
	if err != nil {
		t.Fatalf("traceConfig: %v", err)
	}
	if cfg.Level != trace.LevelCycle || cfg.Mode != trace.ModeBoth || cfg.OutputPath != "out.ndjson" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestTraceConfigRejectsBadValues(t *testing.T) {
	if _, err := traceConfig(globalFlags(t, "--trace-level", "loud")); err == nil {
		t.Fatalf("expected level error")
	}
	if _, err := traceConfig(globalFlags(t, "--trace-mode", "disk")); err == nil {
		t.Fatalf("expected mode error")
	}
}
