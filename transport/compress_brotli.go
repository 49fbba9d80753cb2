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
	"net"
	"sync"

	"github.com/andybalholm/brotli"
)

// BrotliWrapper compresses connections with Brotli. Writers and readers are pooled.
type BrotliWrapper struct {
	writers sync.Pool
	readers sync.Pool
}

var _ ConnWrapper = (*BrotliWrapper)(nil)

// NewBrotliWrapper creates a BrotliWrapper at the given compression level
func NewBrotliWrapper(level int) *BrotliWrapper {
	return &BrotliWrapper{
		writers: sync.Pool{New: func() any { return brotli.NewWriterLevel(nil, level) }},
		readers: sync.Pool{New: func() any { return brotli.NewReader(nil) }},
	}
}

// Wrap implements ConnWrapper
func (w *BrotliWrapper) Wrap(conn net.Conn) (net.Conn, error) {
	writer, ok := w.writers.Get().(*brotli.Writer)
	if !ok || writer == nil {
		return nil, ErrCompressorInit
	}
	reader, ok := w.readers.Get().(*brotli.Reader)
	if !ok || reader == nil {
		w.writers.Put(writer)
		return nil, ErrDecompressorInit
	}

	writer.Reset(conn)
	if err := reader.Reset(conn); err != nil {
		writer.Reset(nil)
		w.writers.Put(writer)
		w.readers.Put(reader)
		return nil, err
	}

	release := func() error {
		err := writer.Close()
		writer.Reset(nil)
		w.writers.Put(writer)
		_ = reader.Reset(nil)
		w.readers.Put(reader)
		return err
	}
	return &streamConn{Conn: conn, reader: reader, writer: writer, release: release}, nil
}
