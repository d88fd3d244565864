package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"graft/internal/version"
)

var versionCmd = &cobra.Command{
	Use:          "version",
	Short:        "Show graft build information",
	SilenceUsage: true,
	RunE:         runVersion,
}

func init() {
	flags := versionCmd.Flags()
	flags.Bool("hash", false, "include the git commit hash")
	flags.Bool("message", false, "include the git commit message")
	flags.Bool("date", false, "include the build timestamp")
	flags.Bool("go", false, "include the Go toolchain version")
	flags.Bool("full", false, "show all build metadata")
	flags.String("format", "pretty", "output format (pretty|json)")
}

// versionField is one optional line of version output.
type versionField struct {
	flag  string
	label string
	key   string
	value func(version.Info) string
}

var versionFields = []versionField{
	{"hash", "commit", "git_commit", func(i version.Info) string { return i.GitCommit }},
	{"message", "message", "git_message", func(i version.Info) string { return i.GitMessage }},
	{"date", "built", "build_date", func(i version.Info) string { return i.BuildDate }},
	{"go", "go", "go_version", func(i version.Info) string { return i.GoVersion }},
}

func runVersion(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	format, err := flags.GetString("format")
	if err != nil {
		return err
	}
	full, err := flags.GetBool("full")
	if err != nil {
		return err
	}
	var fields []versionField
	for _, f := range versionFields {
		on, err := flags.GetBool(f.flag)
		if err != nil {
			return err
		}
		if on || full {
			fields = append(fields, f)
		}
	}

	info := version.Current()
	switch strings.ToLower(format) {
	case "json":
		return renderVersionJSON(cmd.OutOrStdout(), info, fields)
	case "pretty":
		useColor, err := colorEnabled(cmd, stdoutFile(cmd))
		if err != nil {
			return err
		}
		renderVersionPretty(cmd.OutOrStdout(), info, fields, useColor)
		return nil
	}
	return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
}

func renderVersionPretty(out io.Writer, info version.Info, fields []versionField, useColor bool) {
	fmt.Fprintf(out, "graft %s\n", version.Colorize(info.Version, useColor))
	label := color.New(color.Faint)
	if useColor {
		label.EnableColor()
	} else {
		label.DisableColor()
	}
	for _, f := range fields {
		fmt.Fprintf(out, "%s %s\n", label.Sprintf("%-8s", f.label+":"), valueOrUnknown(f.value(info)))
	}
}

func renderVersionJSON(out io.Writer, info version.Info, fields []versionField) error {
	payload := map[string]string{"tool": "graft", "version": info.Version}
	for _, f := range fields {
		payload[f.key] = valueOrUnknown(f.value(info))
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
