// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials for the external converter from a
// directory of plain-text files. Each file is one secret: the filename is
// the key and the trimmed contents are the value. Environ exports them to
// the converter process as environment variables.
package secrets

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory is not an error; Load returns an empty map.
// Symlinks are followed, as in mounted secret volumes. Unreadable entries are
// logged as warnings on logger and skipped. A nil logger discards them.
func Load(dir string, logger *zap.Logger) (map[string]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		return map[string]string{}, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)

		mode := entry.Type()
		if mode&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
				continue
			}
			mode = info.Mode().Type()
		}
		if !mode.IsRegular() {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Environ converts secrets into KEY=value entries sorted by key. Keys are
// upper-cased and every character outside [A-Z0-9_] becomes an underscore,
// so "openai-api-key" is exported as OPENAI_API_KEY.
func Environ(secrets map[string]string) []string {
	env := make([]string, 0, len(secrets))
	for k, v := range secrets {
		env = append(env, EnvName(k)+"="+v)
	}
	sort.Strings(env)
	return env
}

// EnvName maps a secret file name to an environment variable name.
func EnvName(key string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(key) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
