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
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func TestTCPHdrReadsGopacketSerialization(t *testing.T) {
	ip := &layers.IPv4{
		SrcIP:    net.IP{1, 2, 3, 4},
		DstIP:    net.IP{5, 6, 7, 8},
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
	}
	tcp := &layers.TCP{
		SrcPort: 4321,
		DstPort: 22,
		Seq:     0xdeadbeef,
		Ack:     0x01020304,
		SYN:     true,
		ACK:     true,
		Window:  512,
		Urgent:  7,
		URG:     true,
	}
	tcp.SetNetworkLayerForChecksum(ip)
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, tcp); err != nil {
		t.Fatal(err)
	}

	h := NewTCPHdr(buf.Bytes())
	if h.SrcPort() != 4321 || h.DstPort() != 22 {
		t.Errorf("ports: %d -> %d", h.SrcPort(), h.DstPort())
	}
	if h.Seq() != 0xdeadbeef {
		t.Errorf("seq: 0x%x", h.Seq())
	}
	if h.Ack() != 0x01020304 {
		t.Errorf("ack: 0x%x", h.Ack())
	}
	if h.Offset() != 5 || h.HdrLen() != TCPHeaderLen {
		t.Errorf("offset %d len %d", h.Offset(), h.HdrLen())
	}
	if h.Flags() != THSyn|THAck|THUrg {
		t.Errorf("flags: 0x%x", h.Flags())
	}
	if !h.FlagsSet(THSyn) || h.FlagsSet(THRst) {
		t.Error("FlagsSet is wrong")
	}
	if h.Window() != 512 {
		t.Errorf("window: %d", h.Window())
	}
	if h.UrgPtr() != 7 {
		t.Errorf("urgent pointer: %d", h.UrgPtr())
	}
}

func TestTCPHdrSettersRoundTrip(t *testing.T) {
	raw := make([]byte, TCPHeaderLen)
	h := NewTCPHdr(raw)
	h.SetSrcPort(1)
	h.SetDstPort(2)
	h.SetSeq(3)
	h.SetAck(4)
	h.SetOffset(5)
	h.SetFlags(THRst | THAck)
	h.SetWindow(6)
	h.SetChecksum(7)
	h.SetUrgPtr(8)

	if h.SrcPort() != 1 || h.DstPort() != 2 || h.Seq() != 3 || h.Ack() != 4 {
		t.Error("port or sequence setters broken")
	}
	if h.Offset() != 5 || h.Flags() != THRst|THAck {
		t.Error("offset or flag setters broken")
	}
	if h.Window() != 6 || h.Checksum() != 7 || h.UrgPtr() != 8 {
		t.Error("window, checksum or urgent setters broken")
	}
}

func TestTCPHdrUnalignedView(t *testing.T) {
	raw := make([]byte, TCPHeaderLen+1)
	h := NewTCPHdr(raw[1:])
	h.SetSeq(0xcafebabe)
	if h.Seq() != 0xcafebabe {
		t.Error("view must not require alignment")
	}
}

func TestSequenceArithmetic(t *testing.T) {
	if Sequence(4).Difference(8) != 4 {
		t.Error("difference is wrong")
	}
	// wrap-around: near the top of the space versus near the bottom
	high := Sequence(uint32Max - 2)
	low := Sequence(5)
	if high.Difference(low) <= 0 {
		t.Error("rollover difference must be positive")
	}
	if high.Add(10) != 7 {
		t.Errorf("rollover add is wrong: %d", high.Add(10))
	}
}
