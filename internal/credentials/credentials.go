// Package credentials resolves the solver API token. Resolution order is the
// DWAVE_API_TOKEN environment variable, then a JSON config file at a fixed
// per-user path. A missing token is not an error: the simulator backend needs
// none, and serve fails fast only when the hardware backend is selected.
package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// EnvVar is the environment variable consulted first.
const EnvVar = "DWAVE_API_TOKEN"

// tokenFile is the JSON credential file shape: {"token": "..."}.
type tokenFile struct {
	Token string `json:"token"`
}

// DefaultPath returns the per-user credential file location,
// ~/.config/qanneal/dwave.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", "qanneal", "dwave.json"), nil
}

// Resolve returns the API token, or "" when neither source provides one.
// source reports where the token came from ("env", "file", or "").
func Resolve() (token, source string, err error) {
	path, err := DefaultPath()
	if err != nil {
		return "", "", err
	}
	return ResolveFrom(os.Getenv(EnvVar), path)
}

// ResolveFrom is the testable core of Resolve: envValue wins when non-empty,
// otherwise the file at path is consulted. A missing file yields an empty
// token without error; an unreadable or malformed file is an error, since a
// present-but-broken credential file is worth surfacing.
func ResolveFrom(envValue, path string) (token, source string, err error) {
	if envValue != "" {
		return envValue, "env", nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("read credential file: %w", err)
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", "", fmt.Errorf("parse credential file %s: %w", path, err)
	}
	if tf.Token == "" {
		return "", "", nil
	}
	return tf.Token, "file", nil
}
