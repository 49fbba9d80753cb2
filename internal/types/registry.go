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

package types

import (
	"reflect"
	"strings"
	"sync"
)

// Registry maps type names to their runtime types so that values can be
// rebuilt from a name on the wire.
type Registry interface {
	// Register records the type of v
	Register(v any)
	// Exists returns true when the type of v is registered
	Exists(v any) bool
	// TypeOf returns the type registered under name
	TypeOf(name string) (reflect.Type, bool)
}

type registry struct {
	mu       sync.RWMutex
	typesMap map[string]reflect.Type
}

var _ Registry = (*registry)(nil)

// NewRegistry creates a new types registry
func NewRegistry() Registry {
	return &registry{
		typesMap: make(map[string]reflect.Type),
	}
}

// Register records the type of v
func (r *registry) Register(v any) {
	rtype := reflectType(v)
	r.mu.Lock()
	r.typesMap[lowTrim(rtype.String())] = rtype
	r.mu.Unlock()
}

// Exists returns true when the type of v is registered
func (r *registry) Exists(v any) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.typesMap[TypeName(v)]
	return ok
}

// TypeOf returns the type registered under name
func (r *registry) TypeOf(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out, ok := r.typesMap[lowTrim(name)]
	return out, ok
}

func reflectType(v any) reflect.Type {
	if rtype, ok := v.(reflect.Type); ok {
		return rtype
	}
	return reflect.TypeOf(v)
}

// TypeName returns the registry name of v's type
func TypeName(v any) string {
	return lowTrim(reflectType(v).String())
}

func lowTrim(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
