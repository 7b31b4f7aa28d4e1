// Package config handles loading and validating Lumen service configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (LUMEN_*)
//   - Validation of required fields
//   - Default value handling
//
// The service configuration covers process concerns only: where the show
// document is stored, which port the API listens on, which optional bridges
// run. Everything an operator edits from the UI (protocol, frame rate,
// fixtures, looks, roles) belongs to the show document instead.
//
// Usage:
//
//	cfg, err := config.Load("configs/lumen.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Show.Path)
package config
