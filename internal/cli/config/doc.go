// Package config defines the notekeep CLI configuration.
//
// Configuration lives in ~/.notekeep/cli.yaml by default and is layered by
// confloader: built-in defaults, the YAML file, NOTEKEEP_* environment
// variables, then command-line flags.
package config
