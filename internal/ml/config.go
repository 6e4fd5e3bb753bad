package ml

import "fmt"

const (
	defaultLocation = "us-central1"
	defaultModel    = "gemini-1.5-flash"
)

// Config selects and configures a label reader.
type Config struct {
	Type            string // "google" or "local"
	ProjectID       string
	Location        string
	CredentialsFile string
	Model           string
}

func (c Config) withDefaults() Config {
	if c.Location == "" {
		c.Location = defaultLocation
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	return c
}

// Validate checks the settings needed by the selected backend.
func (c Config) Validate() error {
	switch c.Type {
	case "local":
		return nil
	case "google":
		if c.ProjectID == "" {
			return fmt.Errorf("google model requires a project id")
		}
		return nil
	default:
		return fmt.Errorf("unsupported model type: %s", c.Type)
	}
}
