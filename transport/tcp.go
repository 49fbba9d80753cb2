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
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/hashicorp/go-sockaddr"
)

// Listener accepts TCP links
type Listener struct {
	listener   *net.TCPListener
	opts       []Option
	advertised string
}

// Listen starts listening on the given TCP address. When the host is
// unspecified the advertised address uses a private interface address,
// falling back to a public one.
func Listen(address string, opts ...Option) (*Listener, error) {
	addr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", address, err)
	}

	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, err
	}

	bound := listener.Addr().(*net.TCPAddr)
	host, err := bindIP(bound.IP)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	return &Listener{
		listener:   listener,
		opts:       opts,
		advertised: net.JoinHostPort(host, strconv.Itoa(bound.Port)),
	}, nil
}

// Addr returns the address the listener is bound to
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

// Advertised returns the address peers should dial
func (l *Listener) Advertised() string {
	return l.advertised
}

// Accept waits for the next connection and returns it as a link.
// It returns ctx.Err() when ctx is done first.
func (l *Listener) Accept(ctx context.Context) (*Conn, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = l.listener.SetDeadline(time.Now())
	})
	defer stop()

	conn, err := l.listener.AcceptTCP()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return NewConn(conn, l.opts...)
}

// Close stops listening. Links already accepted stay open.
func (l *Listener) Close() error {
	return l.listener.Close()
}

// Dial connects to a listener, retrying with an exponential backoff
func Dial(ctx context.Context, address string, opts ...Option) (*Conn, error) {
	o := newOptions(opts...)
	dialer := net.Dialer{Timeout: o.dialTimeout, KeepAlive: 15 * time.Second}

	var conn net.Conn
	retrier := retry.NewRetrier(o.dialRetries, 100*time.Millisecond, o.retryDelay)
	err := retrier.RunContext(ctx, func(ctx context.Context) error {
		var err error
		conn, err = dialer.DialContext(ctx, "tcp", address)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", address, err)
	}
	return NewConn(conn, opts...)
}

func bindIP(ip net.IP) (string, error) {
	if ip != nil && !ip.IsUnspecified() {
		return ip.String(), nil
	}

	address, err := sockaddr.GetPrivateIP()
	if err != nil {
		return "", fmt.Errorf("failed to get private interface addresses: %w", err)
	}
	if address == "" {
		if address, err = sockaddr.GetPublicIP(); err != nil {
			return "", fmt.Errorf("failed to get public interface addresses: %w", err)
		}
	}
	if address == "" {
		return "", errors.New("no private IP address found, and explicit IP not provided")
	}
	return address, nil
}
