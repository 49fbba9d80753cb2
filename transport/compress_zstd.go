// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package transport

import (
	"errors"
	"net"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ZstdWrapper compresses connections with Zstandard. Encoders and decoders are pooled.
type ZstdWrapper struct {
	encoderOptions []zstd.EOption
	decoderOptions []zstd.DOption
	encoders       sync.Pool
	decoders       sync.Pool
}

var _ ConnWrapper = (*ZstdWrapper)(nil)

// NewZstdWrapper creates a ZstdWrapper at the given encoder level.
// It fails when the encoder or decoder cannot be created with the given settings.
func NewZstdWrapper(level zstd.EncoderLevel) (*ZstdWrapper, error) {
	w := &ZstdWrapper{
		encoderOptions: []zstd.EOption{
			zstd.WithEncoderLevel(level),
			zstd.WithWindowSize(512 << 10),
			zstd.WithEncoderConcurrency(1),
			zstd.WithLowerEncoderMem(true),
			zstd.WithZeroFrames(true),
		},
		decoderOptions: []zstd.DOption{
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
			zstd.WithDecoderMaxMemory(64 << 20),
		},
	}

	encoder, err := zstd.NewWriter(nil, w.encoderOptions...)
	if err != nil {
		return nil, errors.Join(ErrCompressorInit, err)
	}
	decoder, err := zstd.NewReader(nil, w.decoderOptions...)
	if err != nil {
		encoder.Close()
		return nil, errors.Join(ErrDecompressorInit, err)
	}
	w.encoders.Put(encoder)
	w.decoders.Put(decoder)

	w.encoders.New = func() any {
		encoder, err := zstd.NewWriter(nil, w.encoderOptions...)
		if err != nil {
			return nil
		}
		return encoder
	}
	w.decoders.New = func() any {
		decoder, err := zstd.NewReader(nil, w.decoderOptions...)
		if err != nil {
			return nil
		}
		return decoder
	}
	return w, nil
}

// Wrap implements ConnWrapper
func (w *ZstdWrapper) Wrap(conn net.Conn) (net.Conn, error) {
	encoder, ok := w.encoders.Get().(*zstd.Encoder)
	if !ok || encoder == nil {
		return nil, ErrCompressorInit
	}
	decoder, ok := w.decoders.Get().(*zstd.Decoder)
	if !ok || decoder == nil {
		w.encoders.Put(encoder)
		return nil, ErrDecompressorInit
	}

	encoder.Reset(conn)
	if err := decoder.Reset(conn); err != nil {
		encoder.Reset(nil)
		w.encoders.Put(encoder)
		return nil, err
	}

	release := func() error {
		err := encoder.Close()
		encoder.Reset(nil)
		w.encoders.Put(encoder)
		_ = decoder.Reset(nil)
		w.decoders.Put(decoder)
		return err
	}
	return &streamConn{Conn: conn, reader: decoder, writer: encoder, release: release}, nil
}
