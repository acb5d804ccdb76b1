// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chainspec

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/bureau-foundation/bootnet/lib/atomicfile"
	"github.com/bureau-foundation/bootnet/lib/binhash"
)

// zstdEncoder and zstdDecoder are shared; both are safe for concurrent
// use through EncodeAll/DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("chainspec: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("chainspec: zstd decoder initialization failed: " + err.Error())
	}
}

// CachingBuilder memoizes another builder's output on disk. Builds from
// digest-pinned images are keyed by the image reference and builds from
// a local binary by the binary's content digest. Mutable image tags are
// always rebuilt.
type CachingBuilder struct {
	Builder Builder
	Dir     string
	Logger  *slog.Logger
}

// BuildGenesis returns the cached genesis spec for (bin, chain), or
// builds and caches it.
func (c *CachingBuilder) BuildGenesis(ctx context.Context, bin FileLocation, chain string) ([]byte, error) {
	key, ok, err := cacheKey("genesis", bin, []byte(chain))
	if err != nil {
		return nil, err
	}
	if !ok {
		return c.Builder.BuildGenesis(ctx, bin, chain)
	}
	return c.cached(key, func() ([]byte, error) {
		return c.Builder.BuildGenesis(ctx, bin, chain)
	})
}

// BuildRaw returns the cached raw spec for (bin, spec), or builds and
// caches it. The prefix only names the temporary file and is not part
// of the key.
func (c *CachingBuilder) BuildRaw(ctx context.Context, bin FileLocation, prefix string, spec []byte) ([]byte, error) {
	key, ok, err := cacheKey("raw", bin, spec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return c.Builder.BuildRaw(ctx, bin, prefix, spec)
	}
	return c.cached(key, func() ([]byte, error) {
		return c.Builder.BuildRaw(ctx, bin, prefix, spec)
	})
}

func (c *CachingBuilder) cached(key string, build func() ([]byte, error)) ([]byte, error) {
	path := filepath.Join(c.Dir, key+".json.zst")
	compressed, err := os.ReadFile(path)
	switch {
	case err == nil:
		data, decodeErr := zstdDecoder.DecodeAll(compressed, nil)
		if decodeErr == nil {
			c.logger().Debug("spec cache hit", "key", key)
			return data, nil
		}
		c.logger().Warn("discarding corrupt spec cache entry", "path", path, "error", decodeErr)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("reading spec cache: %w", err)
	}

	data, err := build()
	if err != nil {
		return nil, err
	}
	if err := atomicfile.WriteFile(path, zstdEncoder.EncodeAll(data, nil), 0o644); err != nil {
		c.logger().Warn("writing spec cache", "path", path, "error", err)
	}
	return data, nil
}

func (c *CachingBuilder) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// cacheKey hashes the request, or reports ok == false when bin does not
// name immutable content. Each component is length-prefixed so distinct
// requests cannot collide by concatenation.
func cacheKey(kind string, bin FileLocation, input []byte) (key string, ok bool, err error) {
	var identity []byte
	switch {
	case bin.DockerImage != "":
		if !bin.Pinned() {
			return "", false, nil
		}
		identity = []byte(bin.DockerImage)
	case bin.Local != "":
		digest, err := binhash.HashFile(bin.Local)
		if err != nil {
			return "", false, err
		}
		identity = []byte("local:" + digest.String())
	default:
		return "", false, nil
	}

	var request []byte
	for _, part := range [][]byte{[]byte(kind), identity, []byte(bin.Docker), input} {
		var length [8]byte
		binary.LittleEndian.PutUint64(length[:], uint64(len(part)))
		request = append(request, length[:]...)
		request = append(request, part...)
	}
	return binhash.HashBytes(request).String(), true, nil
}
