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

package cluster

import (
	"slices"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/actormesh/actormesh/protocol"
)

// Entry is one routing row: address is reachable through NodeID at Distance hops.
// Local addresses have the local node id and a distance of zero.
type Entry struct {
	NodeID   string
	Address  string
	Distance int
}

// path is one announced way to reach an address. Its route ends with the next hop.
type path struct {
	route    []string
	distance int
	// relayed is set when the announcement was passed on to the other peers,
	// so that its withdrawal is passed on as well
	relayed bool
}

// withdrawal is a path removed from the table
type withdrawal struct {
	address string
	*path
}

// table holds every path announced to a node, grouped by address and next hop.
// The distance of an (address, next hop) entry is the shortest of its paths.
// It is not safe for concurrent use; the node serializes access.
type table struct {
	entries map[string]map[string]map[string]*path
}

func newTable() *table {
	return &table{entries: make(map[string]map[string]map[string]*path)}
}

// add records a path to address. It returns nil when the same route is already known.
func (t *table) add(address string, route []string, distance int) *path {
	hop := route[len(route)-1]
	hops, ok := t.entries[address]
	if !ok {
		hops = make(map[string]map[string]*path)
		t.entries[address] = hops
	}
	paths, ok := hops[hop]
	if !ok {
		paths = make(map[string]*path)
		hops[hop] = paths
	}
	key := routeKey(route)
	if _, ok := paths[key]; ok {
		return nil
	}
	p := &path{route: slices.Clone(route), distance: distance}
	paths[key] = p
	return p
}

// remove deletes the path of address announced with route. It returns nil when unknown.
func (t *table) remove(address string, route []string) *path {
	hop := route[len(route)-1]
	paths := t.entries[address][hop]
	key := routeKey(route)
	p, ok := paths[key]
	if !ok {
		return nil
	}
	delete(paths, key)
	t.compact(address, hop)
	return p
}

// purge removes every path going through hop, ordered by address then route.
func (t *table) purge(hop string) []withdrawal {
	var removed []withdrawal
	for address, hops := range t.entries {
		for _, p := range hops[hop] {
			removed = append(removed, withdrawal{address: address, path: p})
		}
		delete(hops, hop)
		t.compact(address, hop)
	}
	sort.Slice(removed, func(i, j int) bool {
		if removed[i].address != removed[j].address {
			return removed[i].address < removed[j].address
		}
		return routeKey(removed[i].route) < routeKey(removed[j].route)
	})
	return removed
}

func (t *table) compact(address, hop string) {
	hops := t.entries[address]
	if paths, ok := hops[hop]; ok && len(paths) == 0 {
		delete(hops, hop)
	}
	if len(hops) == 0 {
		delete(t.entries, address)
	}
}

// local reports whether address is hosted by the node itself
func (t *table) local(address, self string) bool {
	return len(t.entries[address][self]) > 0
}

// best returns the minimum-distance entry of address whose hop is not excluded.
// Ties are broken by node id so that every call picks the same entry.
func (t *table) best(address string, excluded mapset.Set[string]) (Entry, bool) {
	var (
		found bool
		entry Entry
	)
	for hop, paths := range t.entries[address] {
		if excluded != nil && excluded.Contains(hop) {
			continue
		}
		distance := shortest(paths)
		if !found || distance < entry.Distance || (distance == entry.Distance && hop < entry.NodeID) {
			entry = Entry{NodeID: hop, Address: address, Distance: distance}
			found = true
		}
	}
	return entry, found
}

// list returns the entries of address, closest first.
func (t *table) list(address string) []Entry {
	hops := t.entries[address]
	out := make([]Entry, 0, len(hops))
	for hop, paths := range hops {
		out = append(out, Entry{NodeID: hop, Address: address, Distance: shortest(paths)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].NodeID < out[j].NodeID
	})
	return out
}

// routes projects the best entry of every address.
func (t *table) routes() map[string]Entry {
	out := make(map[string]Entry, len(t.entries))
	for address := range t.entries {
		if entry, ok := t.best(address, nil); ok {
			out[address] = entry
		}
	}
	return out
}

// advertise returns the local paths and the relayed ones as seen from a
// neighbour: the local node appended to the route and one hop further away.
func (t *table) advertise(self string) []protocol.Advertisement {
	var out []protocol.Advertisement
	for address, hops := range t.entries {
		for hop, paths := range hops {
			for _, p := range paths {
				route := slices.Clone(p.route)
				if hop != self {
					if !p.relayed {
						continue
					}
					route = extend(p.route, self)
				}
				out = append(out, protocol.Advertisement{
					Address:  address,
					Distance: p.distance + 1,
					Route:    route,
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Address != out[j].Address {
			return out[i].Address < out[j].Address
		}
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return routeKey(out[i].Route) < routeKey(out[j].Route)
	})
	return out
}

func shortest(paths map[string]*path) int {
	distance := -1
	for _, p := range paths {
		if distance < 0 || p.distance < distance {
			distance = p.distance
		}
	}
	return distance
}

func routeKey(route []string) string {
	return strings.Join(route, "\x00")
}

// extend returns a copy of route with id appended
func extend(route []string, id string) []string {
	out := make([]string, len(route), len(route)+1)
	copy(out, route)
	return append(out, id)
}
