// Package output renders command results as tables, JSON or YAML.
//
// Table output comes from types implementing Tabular, or from a Table
// built by the command. Everything else falls back to indented JSON.
// A Spinner animates long network calls when stderr is a terminal.
package output
