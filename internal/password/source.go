// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-derivekey.
//
// go-derivekey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package password

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Terminal reads passphrases without echo.
type Terminal interface {
	IsTerminal(fd int) bool
	ReadPassword(fd int) ([]byte, error)
}

// DefaultTerminal implements Terminal using the term package.
type DefaultTerminal struct{}

// IsTerminal reports whether fd is a terminal.
func (DefaultTerminal) IsTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

// ReadPassword reads a line from fd without echo.
func (DefaultTerminal) ReadPassword(fd int) ([]byte, error) {
	return term.ReadPassword(fd)
}

// Source describes where a passphrase comes from. The first configured
// source wins, in field order. With none configured the passphrase is
// prompted for on a terminal or read as one line from In.
type Source struct {
	// Value is an explicit passphrase, usually from a flag.
	Value *string

	// File is a path whose contents, minus one trailing newline, are the
	// passphrase.
	File string

	// Env names an environment variable holding the passphrase.
	Env string

	// Prompt is written to Out before reading from the terminal.
	Prompt string

	// Confirm asks for the passphrase twice on a terminal.
	Confirm bool

	Terminal Terminal
	Fd       int
	In       io.Reader
	Out      io.Writer
}

// Read resolves the passphrase.
func (s *Source) Read() (*ClearPassword, error) {
	switch {
	case s.Value != nil:
		return NewClearPasswordFromString(*s.Value), nil
	case s.File != "":
		// #nosec G304 - Passphrase file path is provided by the user
		data, err := os.ReadFile(s.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read passphrase file: %w", err)
		}
		defer clear(data)
		return NewClearPassword(trimNewline(data)), nil
	case s.Env != "":
		if v, ok := os.LookupEnv(s.Env); ok {
			return NewClearPasswordFromString(v), nil
		}
	}

	if s.Terminal != nil && s.Terminal.IsTerminal(s.Fd) {
		return s.prompt()
	}
	return s.readLine()
}

func (s *Source) prompt() (*ClearPassword, error) {
	prompt := s.Prompt
	if prompt == "" {
		prompt = "Passphrase: "
	}
	first, err := s.readTerminal(prompt)
	if err != nil {
		return nil, err
	}
	defer clear(first)

	if s.Confirm {
		second, err := s.readTerminal("Confirm passphrase: ")
		if err != nil {
			return nil, err
		}
		defer clear(second)
		if !bytes.Equal(first, second) {
			return nil, ErrPasswordMismatch
		}
	}
	return NewClearPassword(first), nil
}

func (s *Source) readTerminal(prompt string) ([]byte, error) {
	if s.Out != nil {
		fmt.Fprint(s.Out, prompt)
	}
	b, err := s.Terminal.ReadPassword(s.Fd)
	if s.Out != nil {
		fmt.Fprintln(s.Out)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return b, nil
}

func (s *Source) readLine() (*ClearPassword, error) {
	if s.In == nil {
		return nil, errors.New("no passphrase source available")
	}
	line, err := bufio.NewReader(s.In).ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	defer clear(line)
	return NewClearPassword(trimNewline(line)), nil
}

func trimNewline(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	return bytes.TrimSuffix(b, []byte("\r"))
}
