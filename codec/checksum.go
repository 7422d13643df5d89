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

package codec

import (
	"encoding/binary"
	"net"

	"github.com/david415/HoneyCodec/types"
)

// Pseudoheader holds the marshaled synthetic prefix that transport
// checksums are computed over.  It is 12 bytes for IPv4 and 40 bytes
// for IPv6 (RFC 2460 section 8.1 layout); it is never transmitted.
type Pseudoheader struct {
	bytes [40]byte
	n     int
}

// NewPseudoheader4 builds the 12-byte IPv4 pseudoheader:
// source, destination, a zero byte, the protocol number and the
// segment length.
func NewPseudoheader4(src, dst net.IP, proto uint8, length uint16) *Pseudoheader {
	ph := Pseudoheader{n: 12}
	copy(ph.bytes[0:4], src.To4())
	copy(ph.bytes[4:8], dst.To4())
	ph.bytes[8] = 0
	ph.bytes[9] = proto
	binary.BigEndian.PutUint16(ph.bytes[10:12], length)
	return &ph
}

// NewPseudoheader6 builds the 40-byte IPv6 pseudoheader: source,
// destination, 32-bit upper-layer length, three zero bytes and the
// next-header value.
func NewPseudoheader6(src, dst net.IP, proto uint8, length uint32) *Pseudoheader {
	ph := Pseudoheader{n: 40}
	copy(ph.bytes[0:16], src.To16())
	copy(ph.bytes[16:32], dst.To16())
	binary.BigEndian.PutUint32(ph.bytes[32:36], length)
	ph.bytes[36] = 0
	ph.bytes[37] = 0
	ph.bytes[38] = 0
	ph.bytes[39] = proto
	return &ph
}

// PseudoheaderFor builds the pseudoheader matching the packet's IP
// version.
func PseudoheaderFor(ip types.IPApi, proto uint8, length int) *Pseudoheader {
	if ip.IsIP4() {
		return NewPseudoheader4(ip.SrcIP(), ip.DstIP(), proto, uint16(length))
	}
	return NewPseudoheader6(ip.SrcIP(), ip.DstIP(), proto, uint32(length))
}

// onesSum accumulates the 16-bit one's-complement sum of b into sum.
// An odd trailing byte occupies the high side of its word, as if the
// data were extended by one zero byte.
func onesSum(b []byte, sum uint32) uint32 {
	n := len(b)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(b[i : i+2]))
	}
	if n%2 == 1 {
		sum += uint32(b[n-1]) << 8
	}
	return sum
}

// TCPChecksum computes the one's-complement checksum over the
// pseudoheader followed by the segment bytes and returns its
// complement.  Recomputing over a segment whose checksum field
// already holds the sender's value yields zero exactly when the
// segment arrived intact.
func TCPChecksum(segment []byte, ph *Pseudoheader) uint16 {
	sum := onesSum(ph.bytes[:ph.n], 0)
	sum = onesSum(segment, sum)
	sum = (sum >> 16) + (sum & 0xffff)
	sum += sum >> 16
	return ^uint16(sum)
}
