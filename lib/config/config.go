// Package config reads the bridge settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
)

type Config struct {
	// Surface
	MIDIPort    string // case-insensitive regexp matched against port names
	MappingFile string
	ActionsFile string
	Banner      string

	// Console
	EOSHost       string
	EOSPort       int
	ListenHost    string
	ListenPort    int
	ListenRetries int
	User          int
	FaderBank     int
	BankWidth     int

	LogLevel  string
	QueueSize int
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		MIDIPort:    getEnv("XEOS_MIDI_PORT", "X-Touch"),
		MappingFile: getEnv("XEOS_MAPPING_FILE", "config/xtouch_mapping.json"),
		ActionsFile: getEnv("XEOS_ACTIONS_FILE", "config/eos_actions.json"),
		Banner:      getEnv("XEOS_BANNER", "X-EOS"),

		EOSHost:       getEnv("XEOS_EOS_HOST", "127.0.0.1"),
		EOSPort:       getEnvInt("XEOS_EOS_PORT", 8000),
		ListenHost:    getEnv("XEOS_LISTEN_HOST", "0.0.0.0"),
		ListenPort:    getEnvInt("XEOS_LISTEN_PORT", 8001),
		ListenRetries: getEnvInt("XEOS_LISTEN_RETRIES", 5),
		User:          getEnvInt("XEOS_USER", 1),
		FaderBank:     getEnvInt("XEOS_FADER_BANK", 1),
		BankWidth:     getEnvInt("XEOS_BANK_WIDTH", 10),

		LogLevel:  getEnv("XEOS_LOG_LEVEL", "info"),
		QueueSize: getEnvInt("XEOS_QUEUE_SIZE", 256),
	}
}

func (c *Config) Validate() error {
	if c.BankWidth < 1 {
		return fmt.Errorf("bank width %d: must be at least 1", c.BankWidth)
	}
	if c.FaderBank < 1 {
		return fmt.Errorf("fader bank %d: must be at least 1", c.FaderBank)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue size %d: must be at least 1", c.QueueSize)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Level() (log.Level, error) {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
