// Copyright (C) 2025  The NanoVM Authors

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package encoding

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Decodes an unsigned 32-bit value in the formats: 0xFFFF, 0XFFFF, 1234
func ParseUint32(s string) (uint32, error) {
	s = strings.TrimSpace(s)

	if s == "" {
		return 0, errors.New("empty numeric literal")
	}

	var result uint64
	var err error

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		result, err = strconv.ParseUint(s[2:], 16, 32)
	} else {
		result, err = strconv.ParseUint(s, 10, 32)
	}

	if err != nil {
		return 0, errors.Wrapf(err, "invalid numeric literal '%s'", s)
	}

	return uint32(result), nil
}

// Decodes a byte address in hex, with or without the 0x prefix
func ParseAddr(s string) (uint8, error) {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}

	result, err := strconv.ParseUint(s, 16, 8)

	if err != nil {
		return 0, errors.Wrapf(err, "invalid address '%s'", s)
	}

	return uint8(result), nil
}

// Decodes an unsigned base-10 value fitting a byte address
func ParseAddrDec(s string) (uint8, error) {
	result, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)

	if err != nil {
		return 0, errors.Wrapf(err, "invalid address '%s'", s)
	}

	return uint8(result), nil
}

// Formats value as octets uppercase hex digits, zero padded
func Fhex(value uint64, octets int) string {
	const digits = "0123456789ABCDEF"

	out := make([]byte, octets)
	for i := octets - 1; i >= 0; i-- {
		out[octets-1-i] = digits[(value>>(uint(i)*4))&0xF]
	}

	return string(out)
}
