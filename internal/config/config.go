// Package config provides configuration helpers for go-aria commands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Default daemon configuration.
const (
	DefaultPort            = "8090"
	DefaultSampleRate      = 16000
	DefaultFrameDuration   = 20 * time.Millisecond
	DefaultSilenceDuration = 700 * time.Millisecond
)

// Env returns the value of the named env var, or the default if unset.
func Env(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// EnvRequired returns the value of the named env var.
// Exits with a usage message if not set.
func EnvRequired(name string) string {
	v := os.Getenv(name)
	if v == "" {
		fmt.Fprintf(os.Stderr, "Error: %s environment variable is required\n", name)
		fmt.Fprintln(os.Stderr, "Usage: set it in the environment or in a .env file")
		os.Exit(1)
	}
	return v
}

// EnvInt returns the named env var parsed as an int, or the default.
func EnvInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// EnvDuration returns the named env var parsed as a duration, or the default.
func EnvDuration(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// EnvBool returns true if the named env var is a truthy value.
func EnvBool(name string) bool {
	switch os.Getenv(name) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Port returns the gateway listen port from ARIA_PORT or the default.
func Port() string {
	return Env("ARIA_PORT", DefaultPort)
}
