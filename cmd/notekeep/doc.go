// Package main provides the entry point for notekeep.
//
// notekeep is a command-line client for the notes API. It keeps the
// signed-in session on disk, refreshes an expired credential once and
// replays the request, and offers an interactive shell:
//
//	notekeep login --email alice@example.com
//	notekeep note list --mine -o json
//	notekeep note create --title Groceries --content-file notes.txt
//	notekeep repl
package main
