package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff     Level = iota // no tracing
	LevelSession              // startup and shutdown only
	LevelCycle                // check cycles and requests
	LevelProject              // per-project checks
	LevelDebug                // everything including per-file parses
)

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelSession:
		return "session"
	case LevelCycle:
		return "cycle"
	case LevelProject:
		return "project"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return LevelOff, nil
	case "session":
		return LevelSession, nil
	case "cycle":
		return LevelCycle, nil
	case "project":
		return LevelProject, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|session|cycle|project|debug)", s)
	}
}

// ShouldEmit reports whether events of scope pass this level.
func (l Level) ShouldEmit(scope Scope) bool {
	if l == LevelOff {
		return false
	}
	if l == LevelDebug {
		return true
	}
	return uint8(scope) <= uint8(l)
}
