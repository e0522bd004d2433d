package menu

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Session wraps the terminal streams for prompting inside actions.
type Session struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewSession creates a session over the given streams. The menu creates one
// for its actions; this constructor exists for direct tool invocations.
func NewSession(in io.Reader, out io.Writer) *Session {
	return &Session{in: bufio.NewScanner(in), out: out}
}

// readLine returns the next input line or io.EOF.
func (s *Session) readLine() (string, error) {
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.in.Text(), nil
}

// Printf writes formatted output to the terminal.
func (s *Session) Printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
}

// Writer exposes the output stream, e.g. for background tools that report
// while the session waits.
func (s *Session) Writer() io.Writer {
	return s.out
}

// Prompt asks for a non-empty value. Empty input re-prompts; "q" cancels
// with ErrAborted.
func (s *Session) Prompt(label string) (string, error) {
	for {
		fmt.Fprintf(s.out, "%s (q to cancel): ", label)

		line, err := s.readLine()
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)

		if strings.EqualFold(line, "q") {
			return "", ErrAborted
		}
		if line == "" {
			continue
		}
		return line, nil
	}
}

// PromptPath asks for a filesystem path. A leading ~ is expanded to the home
// directory and the result is cleaned.
func (s *Session) PromptPath(label string) (string, error) {
	value, err := s.Prompt(label)
	if err != nil {
		return "", err
	}

	if value == "~" || strings.HasPrefix(value, "~"+string(os.PathSeparator)) || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot expand ~ in %q: %v", value, err)
		}
		value = filepath.Join(home, value[1:])
	}

	return filepath.Clean(value), nil
}

// PromptDefault asks for a value; empty input selects the default, which
// may itself be empty for optional values.
func (s *Session) PromptDefault(label, def string) (string, error) {
	fmt.Fprintf(s.out, "%s [%s] (q to cancel): ", label, def)

	line, err := s.readLine()
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)

	if strings.EqualFold(line, "q") {
		return "", ErrAborted
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

// PromptInt asks for an integer; empty input selects the default.
func (s *Session) PromptInt(label string, def int) (int, error) {
	for {
		fmt.Fprintf(s.out, "%s [%d] (q to cancel): ", label, def)

		line, err := s.readLine()
		if err != nil {
			return 0, err
		}
		line = strings.TrimSpace(line)

		if strings.EqualFold(line, "q") {
			return 0, ErrAborted
		}
		if line == "" {
			return def, nil
		}
		v, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintf(s.out, "Not a number: %q\n", line)
			continue
		}
		return v, nil
	}
}

// Confirm asks a yes/no question. Only "y" and "yes" answer yes.
func (s *Session) Confirm(label string) (bool, error) {
	fmt.Fprintf(s.out, "%s [y/N]: ", label)

	line, err := s.readLine()
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// WaitEnter blocks until the user presses Enter.
func (s *Session) WaitEnter(label string) error {
	fmt.Fprint(s.out, label)
	if _, err := s.readLine(); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// pause waits for Enter so tool output stays readable before re-rendering.
func (s *Session) pause() {
	fmt.Fprint(s.out, "\nPress Enter to continue...")
	_, _ = s.readLine()
}
