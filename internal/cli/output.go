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

package cli

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-derivekey/internal/config"
	"github.com/jeremyhahn/go-derivekey/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-derivekey/pkg/material"
	"github.com/jeremyhahn/go-derivekey/pkg/types"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = config.OutputText
	OutputFormatJSON OutputFormat = config.OutputJSON
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// PrintKey prints a derived key. Extractable keys are printed in the given
// encoding; other keys only have their metadata printed.
func (p *Printer) PrintKey(key *material.Key, encoding string) error {
	info := map[string]interface{}{
		"id":          key.ID(),
		"algorithm":   key.Algorithm().String(),
		"type":        key.Type().String(),
		"extractable": key.Extractable(),
		"usages":      key.Usages().Names(),
	}

	var encoded string
	if key.Extractable() {
		if encoding == config.EncodingJWK {
			j, err := jwk.FromKey(key)
			if err != nil {
				return err
			}
			data, err := j.MarshalIndent("", "  ")
			if err != nil {
				return err
			}
			info["jwk"] = json.RawMessage(data)
			encoded = string(data)
		} else {
			raw, err := key.Raw()
			if err != nil {
				return err
			}
			defer clear(raw)
			encoded, err = encodeBytes(raw, encoding)
			if err != nil {
				return err
			}
			info["key"] = encoded
			info["encoding"] = encoding
		}
	}

	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(info)
	case OutputFormatText:
		if encoded != "" {
			fmt.Fprintln(p.writer, encoded)
			return nil
		}
		fmt.Fprintf(p.writer, "Key:         %s\n", key.ID())
		fmt.Fprintf(p.writer, "Algorithm:   %s\n", key.Algorithm())
		fmt.Fprintf(p.writer, "Usages:      %s\n", key.Usages())
		fmt.Fprintf(p.writer, "Extractable: %t\n", key.Extractable())
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintBits prints raw derived bits.
func (p *Printer) PrintBits(bits []byte, lengthBits int, encoding string) error {
	encoded, err := encodeBytes(bits, encoding)
	if err != nil {
		return err
	}
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"bits":     encoded,
			"length":   lengthBits,
			"encoding": encoding,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, encoded)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintKeyPair prints an encoded private and public key.
func (p *Printer) PrintKeyPair(algorithm string, private, public []byte) error {
	switch p.format {
	case OutputFormatJSON:
		info := map[string]interface{}{
			"algorithm": algorithm,
		}
		if private != nil {
			info["private_key"] = string(private)
		}
		if public != nil {
			info["public_key"] = string(public)
		}
		return p.printJSON(info)
	case OutputFormatText:
		for _, b := range [][]byte{private, public} {
			if b == nil {
				continue
			}
			fmt.Fprint(p.writer, string(b))
			if len(b) > 0 && b[len(b)-1] != '\n' {
				fmt.Fprintln(p.writer)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message with its derivation error kind
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status": "error",
			"kind":   types.ErrorKind(err),
			"error":  err.Error(),
		})
	default:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	}
}

// printJSON prints data as JSON
func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// errJWKBits is returned when raw bits are requested as a JWK.
var errJWKBits = errors.New("raw bits cannot be encoded as jwk")

func encodeBytes(b []byte, encoding string) (string, error) {
	switch encoding {
	case config.EncodingHex, "":
		return hex.EncodeToString(b), nil
	case config.EncodingBase64:
		return base64.StdEncoding.EncodeToString(b), nil
	case config.EncodingJWK:
		return "", errJWKBits
	default:
		return "", fmt.Errorf("unknown encoding: %s", encoding)
	}
}
