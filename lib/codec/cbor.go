// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/bureau-foundation/bootnet/lib/value"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding.
var encMode cbor.EncMode

// decMode decodes maps with any-typed targets as map[string]any, the
// shape value.FromNative accepts.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// MarshalValue manifests a document value and encodes it. Hidden fields
// are dropped and functions are rejected, as in JSON manifestation.
// Integral numbers are encoded as CBOR integers.
func MarshalValue(v value.Value) ([]byte, error) {
	native, err := value.ToNative(v)
	if err != nil {
		return nil, err
	}
	return Marshal(integral(native))
}

// UnmarshalValue decodes CBOR into a document value. Map entries are
// added in sorted key order.
func UnmarshalValue(data []byte) (value.Value, error) {
	var native any
	if err := Unmarshal(data, &native); err != nil {
		return nil, err
	}
	return value.FromNative(native)
}

// integral rewrites float64 values that hold integers as int64, so
// counts and balances encode as CBOR integers instead of floats.
func integral(native any) any {
	switch x := native.(type) {
	case float64:
		if i := int64(x); float64(i) == x {
			return i
		}
		return x
	case []any:
		for i := range x {
			x[i] = integral(x[i])
		}
		return x
	case map[string]any:
		for key, element := range x {
			x[key] = integral(element)
		}
		return x
	default:
		return native
	}
}
