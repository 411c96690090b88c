// Package repl provides the interactive mode of the notekeep CLI.
//
// Each line is split into arguments, honouring single and double quotes,
// and handed to an Executor, which normally re-enters the CLI app so the
// same commands work in both modes. The session, cache and gateway stay
// open between lines.
package repl
