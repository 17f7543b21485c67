package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// LookupFunc resolves a variable from the process environment.
type LookupFunc func(key string) (string, bool)

var truthyValues = map[string]struct{}{
	"true": {},
	"on":   {},
	"ok":   {},
	"y":    {},
	"yes":  {},
	"1":    {},
}

// environment reads settings from the process first and the .env file second.
// Values from the file never shadow variables set on the process.
type environment struct {
	lookup LookupFunc
	dotenv map[string]string
	file   string
}

// locateEnvFile searches dir and its parents for name, stopping at the project
// root (the first directory holding go.mod). It returns "" when no file exists.
func locateEnvFile(dir, name string) string {
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return ""
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func newEnvironment(path string, lookup LookupFunc) (*environment, error) {
	env := &environment{
		lookup: lookup,
		dotenv: map[string]string{},
	}
	if path == "" {
		return env, nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return env, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	env.dotenv = values
	env.file = path
	return env, nil
}

func (e *environment) get(key string) (string, bool) {
	if e.lookup != nil {
		if value, ok := e.lookup(key); ok {
			return value, true
		}
	}
	value, ok := e.dotenv[key]
	return value, ok
}

// str returns the trimmed value of key, or "" when it is absent.
func (e *environment) str(key string) string {
	value, _ := e.get(key)
	return strings.TrimSpace(value)
}

// require returns the raw value of key and records a MissingSettingError when absent.
func (e *environment) require(key string, errs *[]error) string {
	value, ok := e.get(key)
	if !ok {
		*errs = append(*errs, &MissingSettingError{Name: key})
		return ""
	}
	return value
}

func (e *environment) boolean(key string, fallback bool) bool {
	value, ok := e.get(key)
	if !ok {
		return fallback
	}
	return parseBool(value)
}

func (e *environment) list(key string) ([]string, bool) {
	value, ok := e.get(key)
	if !ok {
		return nil, false
	}
	return parseList(value), true
}

// parseBool treats true, on, ok, y, yes and 1 as true in any case; anything else is false.
func parseBool(raw string) bool {
	_, ok := truthyValues[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
