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
	"io"
	"net"
)

var (
	// ErrCompressorInit is returned when a pooled compressor cannot be created
	ErrCompressorInit = errors.New("failed to create compressor")
	// ErrDecompressorInit is returned when a pooled decompressor cannot be created
	ErrDecompressorInit = errors.New("failed to create decompressor")
)

// ConnWrapper decorates a connection, typically with a compression layer.
// Both ends of a link must use the same wrappers in the same order.
type ConnWrapper interface {
	Wrap(conn net.Conn) (net.Conn, error)
}

type flusher interface {
	io.Writer
	Flush() error
}

// streamConn compresses writes and decompresses reads of the raw connection.
// Every Write is flushed so that a frame never waits for the next one.
type streamConn struct {
	net.Conn
	reader  io.Reader
	writer  flusher
	release func() error
}

var _ net.Conn = (*streamConn)(nil)

func (c *streamConn) Read(p []byte) (int, error) {
	return c.reader.Read(p)
}

func (c *streamConn) Write(p []byte) (int, error) {
	n, err := c.writer.Write(p)
	if err != nil {
		return n, err
	}
	return n, c.writer.Flush()
}

// Close finishes the compressed stream then closes the raw connection
func (c *streamConn) Close() error {
	return errors.Join(c.release(), c.Conn.Close())
}

func wrap(conn net.Conn, wrappers []ConnWrapper) (net.Conn, error) {
	for _, wrapper := range wrappers {
		wrapped, err := wrapper.Wrap(conn)
		if err != nil {
			return nil, errors.Join(err, conn.Close())
		}
		conn = wrapped
	}
	return conn, nil
}
