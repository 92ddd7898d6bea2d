package config

import (
	"fmt"
	"os"
	"strings"
)

// Secret references. A credential field may hold a literal value or one of:
//
//	env:NAME         value of environment variable NAME
//	file:/run/x/pw   contents of the file, trailing newline removed
//
// Secret files must not be readable by group or others.
const (
	secretEnvPrefix  = "env:"
	secretFilePrefix = "file:"
)

// resolveSecrets replaces every secret reference in cfg with its value.
func resolveSecrets(cfg *Config) error {
	fields := []struct {
		name  string
		value *string
	}{
		{"documents.postgres_dsn", &cfg.Documents.PostgresDSN},
		{"notify.redis_password", &cfg.Notify.RedisPassword},
		{"export.access_key", &cfg.Export.AccessKey},
		{"export.secret_key", &cfg.Export.SecretKey},
	}

	var errs []FieldError
	for _, f := range fields {
		v, err := ResolveSecret(*f.value)
		if err != nil {
			errs = append(errs, FieldError{Field: f.name, Message: err.Error()})
			continue
		}
		*f.value = v
	}
	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// ResolveSecret returns the value a secret reference points to. Values
// without a known prefix are returned unchanged.
func ResolveSecret(ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, secretEnvPrefix):
		name := strings.TrimPrefix(ref, secretEnvPrefix)
		value, ok := os.LookupEnv(name)
		if !ok || value == "" {
			return "", fmt.Errorf("secret not found in environment: %s", name)
		}
		return value, nil

	case strings.HasPrefix(ref, secretFilePrefix):
		path := strings.TrimPrefix(ref, secretFilePrefix)
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("failed to stat secret file: %w", err)
		}
		if !info.Mode().IsRegular() {
			return "", fmt.Errorf("secret path is not a regular file: %s", path)
		}
		if mode := info.Mode().Perm(); mode&0o077 != 0 {
			return "", fmt.Errorf("insecure permissions on %s: %o (expected 0600 or 0400)", path, mode)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read secret file: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
	return ref, nil
}
