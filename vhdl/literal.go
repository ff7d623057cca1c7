// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package vhdl

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var baseNames = map[byte]string{'b': "binary", 'o': "octal", 'x': "hexadecimal"}

// isBased reports whether s looks like a based bit string literal: b"..",
// o".." or x"..".
//
func isBased(s string) bool {
	if len(s) < 3 || s[1] != '"' {
		return false
	}
	switch s[0] {
	case 'b', 'B', 'o', 'O', 'x', 'X':
		return true
	}
	return false
}

// Bits decodes a based bit string literal into a string of binary digits.
// Underscores are ignored and base and digits are case insensitive.
//
func Bits(lit string) (string, error) {
	v := strings.ToLower(strings.Replace(lit, "_", "", -1))
	if !isBased(v) || v[len(v)-1] != '"' || len(v) < 4 {
		return "", errors.Errorf("malformed number literal %s", lit)
	}
	base := v[0]
	var b strings.Builder
	for _, c := range v[2 : len(v)-1] {
		var d uint64
		switch {
		case c >= '0' && c <= '9':
			d = uint64(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint64(c-'a') + 10
		default:
			d = 16
		}
		switch base {
		case 'b':
			if d > 1 {
				return "", errors.Errorf("invalid character within %s number literal %s", baseNames[base], lit)
			}
			b.WriteByte(byte('0' + d))
		case 'o':
			if d > 7 {
				return "", errors.Errorf("invalid character within %s number literal %s", baseNames[base], lit)
			}
			b.WriteString(pad(strconv.FormatUint(d, 2), 3))
		case 'x':
			if d > 15 {
				return "", errors.Errorf("invalid character within %s number literal %s", baseNames[base], lit)
			}
			b.WriteString(pad(strconv.FormatUint(d, 2), 4))
		}
	}
	return b.String(), nil
}

// Hex converts a based bit string literal into a lower case hexadecimal
// string of ceil(bits/4) digits.
//
func Hex(lit string) (string, error) {
	bits, err := Bits(lit)
	if err != nil {
		return "", err
	}
	bits = pad(bits, (len(bits)+3)/4*4)
	var b strings.Builder
	for i := 0; i < len(bits); i += 4 {
		n, _ := strconv.ParseUint(bits[i:i+4], 2, 8)
		b.WriteString(strconv.FormatUint(n, 16))
	}
	return b.String(), nil
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}

// bitString decodes a bit literal: '0', '1' or a double quoted
// string of binary digits.
//
func bitString(s string) (string, bool) {
	if len(s) == 3 && s[0] == '\'' && s[2] == '\'' && (s[1] == '0' || s[1] == '1') {
		return s[1:2], true
	}
	if len(s) < 3 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", false
	}
	s = s[1 : len(s)-1]
	for i := 0; i < len(s); i++ {
		if s[i] != '0' && s[i] != '1' {
			return "", false
		}
	}
	return s, true
}

func isInteger(s string) bool {
	if s != "" && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}
	return isDigits(s)
}

func isFloat(s string) bool {
	if strings.Trim(s, "0123456789+-.eE") != "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

var timeUnits = []string{"s", "sec", "min", "hr"}

// Generic value types.
//
const (
	Boolean   = "boolean"
	Integer   = "integer"
	Float     = "floating_point"
	Time      = "time"
	String    = "string"
	BitValue  = "bit_value"
	BitVector = "bit_vector"
)

// Classify returns the data type and canonical value of a generic map value.
//
func Classify(v string) (typ, value string, err error) {
	lv := strings.ToLower(v)
	switch {
	case lv == "true" || lv == "false":
		return Boolean, v, nil
	case isInteger(v):
		return Integer, v, nil
	case isFloat(v):
		return Float, v, nil
	case hasSuffix(lv, timeUnits):
		return Time, v, nil
	case len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"':
		return String, v[1 : len(v)-1], nil
	case len(v) == 3 && v[0] == '\'' && v[2] == '\'':
		return BitValue, v[1:2], nil
	case isBased(v):
		h, err := Hex(v)
		if err != nil {
			return "", "", err
		}
		return BitVector, h, nil
	}
	return "", "", errors.Errorf("cannot identify data type of generic map value %q", v)
}

func hasSuffix(s string, sfx []string) bool {
	for _, x := range sfx {
		if strings.HasSuffix(s, x) {
			return true
		}
	}
	return false
}
