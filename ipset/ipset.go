/*
 *    HoneyCodec packet decoding library for TCP anomaly detection
 *
 *    Copyright (C) 2015, 2016  David Stainton
 *
 *    This program is free software: you can redistribute it and/or modify
 *    it under the terms of the GNU General Public License as published by
 *    the Free Software Foundation, either version 3 of the License, or
 *    (at your option) any later version.
 *
 *    This program is distributed in the hope that it will be useful,
 *    but WITHOUT ANY WARRANTY; without even the implied warranty of
 *    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *    GNU General Public License for more details.
 *
 *    You should have received a copy of the GNU General Public License
 *    along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package ipset parses IP variable strings of the form
// "[232.0.0.0/8,233.0.0.0/8,239.0.0.0/8]" into immutable CIDR sets.
// A set is built once at module load and read concurrently without
// locking afterward.
package ipset

import (
	"fmt"
	"net"
	"strings"
)

// IPSet is an immutable collection of CIDR networks.
type IPSet struct {
	networks []*net.IPNet
}

// ParseIPSet compiles an IP variable string.  Bare addresses are
// accepted alongside CIDR networks; the surrounding brackets are
// optional.
func ParseIPSet(expr string) (*IPSet, error) {
	trimmed := strings.TrimSpace(expr)
	trimmed = strings.TrimPrefix(trimmed, "[")
	trimmed = strings.TrimSuffix(trimmed, "]")
	if trimmed == "" {
		return nil, fmt.Errorf("ipset: empty variable string %q", expr)
	}

	set := IPSet{}
	for _, entry := range strings.Split(trimmed, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			return nil, fmt.Errorf("ipset: empty entry in %q", expr)
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("ipset: bad address %q", entry)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			set.networks = append(set.networks, &net.IPNet{
				IP:   ip,
				Mask: net.CIDRMask(bits, bits),
			})
			continue
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("ipset: bad network %q: %s", entry, err)
		}
		set.networks = append(set.networks, network)
	}
	return &set, nil
}

// Contains reports whether ip falls inside any network of the set.
func (s *IPSet) Contains(ip net.IP) bool {
	for _, network := range s.networks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// Len returns the number of networks in the set.
func (s *IPSet) Len() int {
	return len(s.networks)
}
