// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: api-token.
package secrets

import (
	"crypto/subtle"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// APIToken names the file holding the bearer token the HTTP service requires.
const APIToken = "api-token"

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged at warn level but do not abort.
func Load(dir string, log zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Token is a bearer token. The zero value accepts every request.
type Token string

// LoadToken returns the api-token secret from dir, or the zero Token when
// none is configured.
func LoadToken(dir string, log zerolog.Logger) (Token, error) {
	s, err := Load(dir, log)
	if err != nil {
		return "", err
	}
	return Token(s[APIToken]), nil
}

// Required reports whether requests must present the token.
func (t Token) Required() bool { return t != "" }

// Matches compares presented against t in constant time.
func (t Token) Matches(presented string) bool {
	if !t.Required() {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(t), []byte(presented)) == 1
}
