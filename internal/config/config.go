package config

import (
	"os"
	"path/filepath"
	"sync"

	"fjacquet/statement-csv/internal/logging"

	"github.com/joho/godotenv"
)

var once sync.Once

// LoadEnv loads environment variables from the first .env file found in the
// current or parent directory. Variables already set are not overridden. Only
// the first call has an effect.
func LoadEnv(logger logging.Logger) {
	once.Do(func() {
		logger = logging.OrDefault(logger)
		envFile := findEnvFile()
		if envFile == "" {
			logger.Debug("No .env file found, using environment variables")
			return
		}
		if err := godotenv.Load(envFile); err != nil {
			logger.WithError(err).Warn("Error loading .env file")
			return
		}
		logger.Debug("Loaded environment variables", logging.F(logging.FieldFile, envFile))
	})
}

func findEnvFile() string {
	for _, candidate := range []string{".env", filepath.Join("..", ".env")} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// GetEnv retrieves an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return value
}

// DataDir returns the store root: data.directory when set, otherwise
// .statement-csv/data under the home directory, or under the working
// directory when no home is available.
func (c *Config) DataDir() string {
	if c.Data.Directory != "" {
		return c.Data.Directory
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".statement-csv", "data")
	}
	return filepath.Join(home, ".statement-csv", "data")
}
