package utils

import (
	"os"
	"strconv"
)

// -----------------------------------------------------------------------------

// GetEnv returns the value of the environment variable key, or defaultValue
// when it is unset or empty.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// -----------------------------------------------------------------------------

// GetEnvInt returns the integer value of the environment variable key, or
// defaultValue when it is unset, empty, or not a valid integer.
func GetEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
