package secrets

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// Source describes where an API key or service credential comes from.
type Source struct {
	// Name is used in error messages, e.g. "gemini api key".
	Name string
	// Value is the inline secret from the environment or config file.
	Value string
	// File points to a file holding the secret. It takes precedence over Value.
	File string
}

// Load resolves the secret from src, reading File through fs when set.
// A nil fs means the host filesystem. The result is trimmed and never empty.
func Load(fs afero.Fs, src Source) (string, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := afero.ReadFile(fs, file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		return "", fmt.Errorf("%s is not configured", name)
	}

	return secret, nil
}

// Optional behaves like Load but treats an unconfigured source as empty.
func Optional(fs afero.Fs, src Source) (string, error) {
	if strings.TrimSpace(src.File) == "" && strings.TrimSpace(src.Value) == "" {
		return "", nil
	}
	return Load(fs, src)
}
