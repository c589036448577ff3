package pathutil

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// Expand resolves environment variables and "~/" home shortcuts.
func Expand(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}

	expanded := os.ExpandEnv(trimmed)
	if !isHomeRelative(expanded) {
		return filepath.Clean(expanded), nil
	}

	home, err := homeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	if expanded == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(expanded, "~/")), nil
}

// ExpandArgs expands home-relative entries of a command line.
// Other arguments are returned untouched, flags included.
func ExpandArgs(args []string) ([]string, error) {
	out := make([]string, len(args))
	for i, arg := range args {
		if !isHomeRelative(arg) {
			out[i] = arg
			continue
		}
		expanded, err := Expand(arg)
		if err != nil {
			return nil, fmt.Errorf("expand argument %d: %w", i, err)
		}
		out[i] = expanded
	}
	return out, nil
}

func isHomeRelative(p string) bool {
	return p == "~" || strings.HasPrefix(p, "~/")
}

func homeDir() (string, error) {
	candidates := []func() string{
		func() string {
			home, _ := os.UserHomeDir()
			return home
		},
		func() string {
			if current, err := user.Current(); err == nil {
				return current.HomeDir
			}
			return ""
		},
	}
	for _, candidate := range candidates {
		home := strings.TrimSpace(candidate())
		if home != "" && !isHomeRelative(home) {
			return home, nil
		}
	}
	return "", fmt.Errorf("home directory is not resolvable")
}
