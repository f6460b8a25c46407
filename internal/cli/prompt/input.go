// Package prompt wraps promptui for the interactive parts of the CLI,
// mainly streamgate init.
package prompt

import (
	"errors"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user cancels a prompt with Ctrl+C.
var ErrAborted = errors.New("aborted")

// IsAborted reports whether err came from the user cancelling a prompt.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted) ||
		errors.Is(err, promptui.ErrInterrupt) ||
		errors.Is(err, promptui.ErrAbort)
}

// normalize folds promptui's interrupt errors into ErrAborted so callers
// only have one sentinel to test.
func normalize(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// InputRequired asks for one line of text and re-prompts until it is
// non-empty.
func InputRequired(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("a value is required")
			}
			return nil
		},
	}
	s, err := p.Run()
	return s, normalize(err)
}

// InputOptional asks for one line of text; plain Enter leaves it empty.
func InputOptional(label string) (string, error) {
	p := promptui.Prompt{Label: label + " (optional)"}
	s, err := p.Run()
	return s, normalize(err)
}

// InputInt asks for a whole number, offering a default.
func InputInt(label string, def int) (int, error) {
	p := promptui.Prompt{
		Label:   label,
		Default: strconv.Itoa(def),
		Validate: func(s string) error {
			if _, err := strconv.Atoi(s); err != nil {
				return errors.New("enter a whole number")
			}
			return nil
		},
	}
	s, err := p.Run()
	if err != nil {
		return 0, normalize(err)
	}
	n, _ := strconv.Atoi(s)
	return n, nil
}

// InputPort asks for a TCP port, offering a default.
func InputPort(label string, def int) (int, error) {
	p := promptui.Prompt{
		Label:   label,
		Default: strconv.Itoa(def),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > 65535 {
				return errors.New("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	s, err := p.Run()
	if err != nil {
		return 0, normalize(err)
	}
	n, _ := strconv.Atoi(s)
	return n, nil
}

// Password asks for a secret with masked echo. The bot token goes through
// here so it stays out of terminal scrollback.
func Password(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(s string) error {
			if s == "" {
				return errors.New("a value is required")
			}
			return nil
		},
	}
	s, err := p.Run()
	return s, normalize(err)
}
