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

package tcp

import (
	"github.com/david415/HoneyCodec/codec"
	"github.com/david415/HoneyCodec/types"
)

// The encoder creates TCP RSTs (and FIN/PUSH teardowns with payload
// attached).  We should always try to use an acceptable ack since we
// send RSTs in a stateless fashion... from rfc 793:
//
// In all states except SYN-SENT, all reset (RST) segments are validated
// by checking their SEQ-fields.  A reset is valid if its sequence number
// is in the window.  In the SYN-SENT state (a RST received in response
// to an initial SYN), the RST is acceptable if the ACK field
// acknowledges the SYN.

// Encode synthesizes a response segment into out from the original
// TCP header bytes rawIn.  The buffer is filled back to front:
// payload first when the encode type carries one, then the header.
func (t *TCPCodec) Encode(enc *codec.EncState, out *codec.Buffer, rawIn []byte) bool {
	hi := types.NewTCPHdr(rawIn)
	attachPayload := enc.Type == codec.EncTypeTCPFin || enc.Type == codec.EncTypeTCPPush

	if attachPayload && len(enc.Payload) > 0 {
		if !out.Grow(len(enc.Payload)) {
			return false
		}
		copy(out.Base(), enc.Payload)
	}

	hdrLen := hi.HdrLen()
	if !out.Grow(hdrLen) {
		return false
	}
	// keep the original option bytes in the reserved region
	copy(out.Base()[:hdrLen], rawIn[:hdrLen])

	ho := types.NewTCPHdr(out.Base())

	// a SYN (or FIN) consumes one sequence number
	ctl := 0
	if hi.FlagsSet(types.THSyn) {
		ctl = 1
	}

	if enc.Flags.Forward() {
		ho.SetSrcPort(hi.SrcPort())
		ho.SetDstPort(hi.DstPort())

		// the sequence depends on whether the data passes or drops
		if t.daq.InterfaceMode(enc.Packet) != codec.ModeInline {
			ho.SetSeq(uint32(types.Sequence(hi.Seq()).Add(int(enc.Packet.Dsize) + ctl)))
		} else {
			ho.SetSeq(hi.Seq())
		}
		ho.SetAck(hi.Ack())
	} else {
		ho.SetSrcPort(hi.DstPort())
		ho.SetDstPort(hi.SrcPort())

		ho.SetSeq(hi.Ack())
		ho.SetAck(uint32(types.Sequence(hi.Seq()).Add(int(enc.Packet.Dsize) + ctl)))
	}

	if enc.Flags&codec.EncFlagSeq != 0 {
		ho.SetSeq(uint32(types.Sequence(ho.Seq()).Add(int(enc.SeqValue))))
	}

	ho.SetOffset(types.TCPHeaderLen >> 2)
	ho.SetWindow(0)
	ho.SetUrgPtr(0)

	switch enc.Type {
	case codec.EncTypeTCPFin:
		ho.SetFlags(types.THAck | types.THFin)
	case codec.EncTypeTCPPush:
		ho.SetFlags(types.THAck | types.THPush)
		ho.SetWindow(65535)
	default:
		ho.SetFlags(types.THRst | types.THAck)
	}

	// in case of ip6 extension headers, this gets next correct
	enc.Proto = ProtocolTCP

	ho.SetChecksum(0)
	length := out.Len()
	ph := codec.PseudoheaderFor(enc.Packet.IP, ProtocolTCP, length)
	ho.SetChecksum(codec.TCPChecksum(out.Base(), ph))

	return true
}

// Update recomputes the checksum after another pipeline stage has
// edited the payload.  Cooked packets keep their trusted checksum
// unless they were rebuilt from fragments.
func (t *TCPCodec) Update(p *types.Packet, lyr *types.Layer, length *int) bool {
	h := types.NewTCPHdr(lyr.Start)

	*length += h.HdrLen() + int(p.Dsize)

	if !p.Cooked() || p.PacketFlags&types.PktFlagRebuiltFrag != 0 {
		h.SetChecksum(0)
		ph := codec.PseudoheaderFor(p.IP, ProtocolTCP, *length)
		h.SetChecksum(codec.TCPChecksum(lyr.Start[:*length], ph))
	}

	return true
}

// Format refreshes a cloned packet's TCP layer, swapping the ports
// when the clone travels the reverse direction.
func (t *TCPCodec) Format(flags codec.EncodeFlags, p *types.Packet, c *types.Packet, lyr *types.Layer) {
	ch := types.NewTCPHdr(lyr.Start)
	c.TCP = ch

	if !flags.Forward() {
		for i := range c.Layers {
			if &c.Layers[i] == lyr {
				ph := types.NewTCPHdr(p.Layers[i].Start)
				ch.SetSrcPort(ph.DstPort())
				ch.SetDstPort(ph.SrcPort())
				break
			}
		}
	}

	c.SP = ch.SrcPort()
	c.DP = ch.DstPort()
}
