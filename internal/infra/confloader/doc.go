// Package confloader loads layered configuration with koanf.
//
// Sources, lowest to highest priority:
//
//  1. Defaults already present in the target struct
//  2. YAML configuration file
//  3. Environment variables (NOTEKEEP_SECTION_KEY)
//  4. Explicit overrides, usually from command-line flags
//
// A Watcher reports writes to the configuration file so long-lived
// processes can re-apply settings without restarting.
package confloader
