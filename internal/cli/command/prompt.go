package command

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

// readLine reads one line a byte at a time, so nothing past the newline
// is consumed from a reader the REPL shares.
func readLine(r io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			sb.WriteByte(buf[0])
		}
		if err != nil {
			if errors.Is(err, io.EOF) && sb.Len() > 0 {
				break
			}
			return "", err
		}
	}
	return strings.TrimRight(sb.String(), "\r"), nil
}

// confirm asks a yes/no question; anything but y or yes is a no.
func confirm(c *cli.Context, question string) (bool, error) {
	fmt.Fprintf(c.App.ErrWriter, "%s [y/N]: ", question)
	answer, err := readLine(c.App.Reader)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// readPassword resolves a password from the flag, a file ("-" for stdin)
// or an interactive prompt with echo disabled.
func readPassword(c *cli.Context, value, file string) (string, error) {
	if value != "" {
		return value, nil
	}
	if file != "" {
		if file == "-" {
			return readLine(c.App.Reader)
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read password file: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}

	fd, ok := terminalFD(c)
	if !ok {
		return "", errors.New("no password given: use --password, --password-file or run in a terminal")
	}

	fmt.Fprint(c.App.ErrWriter, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(c.App.ErrWriter)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

// terminalFD returns the descriptor to prompt on. The REPL wraps stdin in
// its own reader, so stdin is used directly there.
func terminalFD(c *cli.Context) (int, bool) {
	f, ok := c.App.Reader.(*os.File)
	if !ok {
		if rt := getRuntime(c); rt == nil || !rt.interactive {
			return 0, false
		}
		f = os.Stdin
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// readContent resolves note content from the flag or a file ("-" for stdin).
func readContent(c *cli.Context, value, file string) (string, error) {
	if file == "" {
		return value, nil
	}
	if value != "" {
		return "", errors.New("--content and --content-file are mutually exclusive")
	}
	if file == "-" {
		data, err := io.ReadAll(c.App.Reader)
		if err != nil {
			return "", fmt.Errorf("read content: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read content file: %w", err)
	}
	return string(data), nil
}
