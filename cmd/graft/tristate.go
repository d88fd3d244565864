package main

import (
	"fmt"
	"os"
	"strings"
)

// tristate is an auto|on|off flag; auto follows whether the output is a
// terminal.
type tristate uint8

const (
	modeAuto tristate = iota
	modeOn
	modeOff
)

func parseTristate(flag, value string) (tristate, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return modeAuto, nil
	case "on", "always":
		return modeOn, nil
	case "off", "never":
		return modeOff, nil
	}
	return modeAuto, fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
}

// enabled resolves the mode against f. A nil f counts as not a terminal.
func (m tristate) enabled(f *os.File) bool {
	switch m {
	case modeOn:
		return true
	case modeOff:
		return false
	}
	return f != nil && isTerminal(f)
}
