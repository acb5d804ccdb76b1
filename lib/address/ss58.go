// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// Format is an SS58 address format (network prefix).
type Format uint16

// DefaultFormat is the generic substrate format.
const DefaultFormat Format = 42

// MaxFormat is the largest encodable format.
const MaxFormat = 16383

// ParseFormat validates a numeric format.
func ParseFormat(n int64) (Format, error) {
	if n < 0 || n > MaxFormat {
		return 0, fmt.Errorf("ss58 format %d out of range 0-%d", n, MaxFormat)
	}
	return Format(n), nil
}

var ss58Magic = []byte("SS58PRE")

// EncodeSS58 encodes a 32- or 33-byte public key or account id.
func EncodeSS58(format Format, body []byte) (string, error) {
	if len(body) != 32 && len(body) != 33 {
		return "", fmt.Errorf("ss58 body must be 32 or 33 bytes, got %d", len(body))
	}
	if format > MaxFormat {
		return "", fmt.Errorf("ss58 format %d out of range", format)
	}

	var payload []byte
	if format < 64 {
		payload = append(payload, byte(format))
	} else {
		payload = append(payload,
			byte((format&0b1111_1100)>>2)|0b0100_0000,
			byte(format>>8)|byte(format&0b11)<<6,
		)
	}
	payload = append(payload, body...)

	hash, err := blake2b.New512(nil)
	if err != nil {
		return "", err
	}
	hash.Write(ss58Magic)
	hash.Write(payload)
	checksum := hash.Sum(nil)
	payload = append(payload, checksum[:2]...)
	return base58.Encode(payload), nil
}
