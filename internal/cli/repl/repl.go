package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultPrompt is shown before each line.
const DefaultPrompt = "notekeep> "

// Executor runs one parsed command line.
type Executor func(ctx context.Context, args []string) error

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     *bufio.Reader
	output    io.Writer
	prompt    func() string
	exec      Executor
	completer *Completer
	history   *History
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO sets the input and output streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		if br, ok := in.(*bufio.Reader); ok {
			r.input = br
		} else {
			r.input = bufio.NewReader(in)
		}
		r.output = out
	}
}

// WithPrompt sets a dynamic prompt.
func WithPrompt(fn func() string) Option {
	return func(r *REPL) {
		r.prompt = fn
	}
}

// WithHistory sets the history store.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		r.history = h
	}
}

// WithCompleter sets the command list used for suggestions.
func WithCompleter(c *Completer) Option {
	return func(r *REPL) {
		r.completer = c
	}
}

// New creates a REPL that runs lines with exec.
func New(exec Executor, opts ...Option) *REPL {
	r := &REPL{
		exec:      exec,
		prompt:    func() string { return DefaultPrompt },
		completer: NewCompleter(nil),
		history:   NewHistory(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.input == nil {
		WithIO(strings.NewReader(""), io.Discard)(r)
	}
	return r
}

// Run reads lines until exit, EOF or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.output, r.prompt())

		line, err := r.input.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := errors.Is(err, io.EOF)

		line = strings.TrimSpace(line)
		if line == "" {
			if eof {
				fmt.Fprintln(r.output)
				return nil
			}
			continue
		}
		r.history.Add(line)

		if done := r.eval(ctx, line); done {
			return nil
		}
		if eof {
			return nil
		}
	}
}

// eval runs one line and reports whether the loop should stop.
func (r *REPL) eval(ctx context.Context, line string) bool {
	args, err := SplitArgs(line)
	if err != nil {
		fmt.Fprintf(r.output, "error: %v\n", err)
		return false
	}

	switch args[0] {
	case "exit", "quit":
		return true
	case "history":
		for i, e := range r.history.Entries() {
			fmt.Fprintf(r.output, "%4d  %s\n", i+1, e)
		}
		return false
	}

	// Leading flags are global options for this line only.
	if !strings.HasPrefix(args[0], "-") && !r.completer.Known(args[0]) {
		fmt.Fprintf(r.output, "error: unknown command %q\n", args[0])
		if s := r.completer.Complete(args[0]); len(s) > 0 {
			fmt.Fprintf(r.output, "did you mean: %s\n", strings.Join(s, ", "))
		}
		return false
	}

	if err := r.exec(ctx, args); err != nil {
		fmt.Fprintf(r.output, "error: %v\n", err)
	}
	return false
}

// SplitArgs splits a line into arguments. Single and double quotes group
// words; a backslash escapes the next character outside single quotes.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, ch := range line {
		switch {
		case escaped:
			cur.WriteRune(ch)
			escaped = false
		case ch == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				cur.WriteRune(ch)
			}
		case ch == '"' || ch == '\'':
			quote = ch
			inWord = true
		case ch == ' ' || ch == '\t':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(ch)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inWord {
		args = append(args, cur.String())
	}
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}
	return args, nil
}
