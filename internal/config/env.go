package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables read by the application.
const (
	EnvACIUsername  = "ACI_USERNAME"
	EnvACIPassword  = "ACI_PASSWORD"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvGoogleAPIKey = "GOOGLE_API_KEY"
)

// ErrMissingCredentials is returned when device credentials are not set.
var ErrMissingCredentials = errors.New("ACI_USERNAME and ACI_PASSWORD environment variables must be set")

// LoadEnv loads variables from the given .env files without overriding the
// ones already set. With no files it loads ./.env when present.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("loading env files %v: %w", files, err)
	}
	return nil
}

// Credentials authenticate device API calls.
type Credentials struct {
	Username string
	Password string
}

// ACICredentials reads the device credentials from the environment.
func ACICredentials() (Credentials, error) {
	credentials := Credentials{
		Username: os.Getenv(EnvACIUsername),
		Password: os.Getenv(EnvACIPassword),
	}
	if credentials.Username == "" || credentials.Password == "" {
		return Credentials{}, ErrMissingCredentials
	}
	return credentials, nil
}
