// Package config loads the custodian configuration from YAML.
//
// Loading runs in four steps: parse the file, apply defaults, apply
// CUSTODIAN_* environment overrides, validate. Validation collects every
// problem into one ValidationError so operators can fix a file in a single
// pass.
//
//	cfg, err := config.LoadConfigWithEnvOverrides("custodian.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Retention policies and validity rules are not part of this file. They
// live in the policy file named by policies.file, which is re-read at the
// start of every scan.
package config
