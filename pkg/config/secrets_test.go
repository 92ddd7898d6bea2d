package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveSecret(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "dsn")
	if err := os.WriteFile(good, []byte("postgres://u:p@db/custodian\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	open := filepath.Join(dir, "open")
	if err := os.WriteFile(open, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CUSTODIAN_TEST_SECRET", "s3cret")

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{name: "literal", ref: "plain-value", want: "plain-value"},
		{name: "empty", ref: "", want: ""},
		{name: "env", ref: "env:CUSTODIAN_TEST_SECRET", want: "s3cret"},
		{name: "env missing", ref: "env:CUSTODIAN_TEST_MISSING", wantErr: true},
		{name: "file", ref: "file:" + good, want: "postgres://u:p@db/custodian"},
		{name: "file missing", ref: "file:" + filepath.Join(dir, "nope"), wantErr: true},
		{name: "file world readable", ref: "file:" + open, wantErr: true},
		{name: "directory", ref: "file:" + dir, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveSecret(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveSecret() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveSecret() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadConfigWithEnvOverrides_ResolvesSecrets(t *testing.T) {
	t.Setenv("CUSTODIAN_TEST_KEY", "AKIA123")
	path := writeConfig(t, `
export:
  access_key: env:CUSTODIAN_TEST_KEY
  secret_key: env:CUSTODIAN_TEST_ABSENT
`)

	_, err := LoadConfigWithEnvOverrides(path)
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(ve.Errors) != 1 || ve.Errors[0].Field != "export.secret_key" {
		t.Errorf("errors = %+v, want export.secret_key only", ve.Errors)
	}

	t.Setenv("CUSTODIAN_TEST_ABSENT", "shh")
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	if cfg.Export.AccessKey != "AKIA123" || cfg.Export.SecretKey != "shh" {
		t.Errorf("export = %+v", cfg.Export)
	}
}
