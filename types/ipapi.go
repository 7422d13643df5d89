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

package types

import (
	"net"

	"github.com/google/gopacket/layers"
)

// IP4Api adapts a gopacket IPv4 layer to the IPApi window.
type IP4Api struct {
	IP *layers.IPv4
}

func (a *IP4Api) IsIP4() bool {
	return true
}

func (a *IP4Api) SrcIP() net.IP {
	return a.IP.SrcIP
}

func (a *IP4Api) DstIP() net.IP {
	return a.IP.DstIP
}

func (a *IP4Api) ID() uint16 {
	return a.IP.Id
}

func (a *IP4Api) Proto() uint8 {
	return uint8(a.IP.Protocol)
}

// IP6Api adapts a gopacket IPv6 layer to the IPApi window.
type IP6Api struct {
	IP *layers.IPv6
}

func (a *IP6Api) IsIP4() bool {
	return false
}

func (a *IP6Api) SrcIP() net.IP {
	return a.IP.SrcIP
}

func (a *IP6Api) DstIP() net.IP {
	return a.IP.DstIP
}

// ID returns zero; IPv6 has no identification field outside the
// fragment header and the signature checks that want it are v4 only.
func (a *IP6Api) ID() uint16 {
	return 0
}

func (a *IP6Api) Proto() uint8 {
	return uint8(a.IP.NextHeader)
}
