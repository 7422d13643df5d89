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

// napthaSeq and napthaIPID identify the NAPTHA DoS tool: a pure SYN
// with this exact sequence number inside an IP datagram with this id.
const (
	napthaSeq  uint32 = 6060842
	napthaIPID uint16 = 413
)

// shaftSeq is the hardwired initial sequence number of the shaft
// DDoS synflood agent.
const shaftSeq uint32 = 674711609

// TCPCodec decodes and encodes the TCP transport layer.  All its
// collaborators are injected so tests can substitute capturing
// implementations.
type TCPCodec struct {
	events types.EventSink
	policy codec.Policy
	daq    codec.DAQ
	active types.ActiveResponse
}

// NewTCPCodec returns a TCPCodec wired to the given collaborators.
func NewTCPCodec(c codec.Collaborators) *TCPCodec {
	return &TCPCodec{
		events: c.Events,
		policy: c.Policy,
		daq:    c.DAQ,
		active: c.Active,
	}
}

func (t *TCPCodec) Name() string {
	return CodecName
}

func (t *TCPCodec) GetProtocolIds() []uint8 {
	return []uint8{ProtocolTCP}
}

// Decode validates the TCP segment at the front of raw and fills in
// the packet record.  raw spans from the first header byte to the end
// of the IP payload.  On failure the packet's TCP reference is
// cleared before any event fires so downstream rules see the absence.
func (t *TCPCodec) Decode(raw []byte, p *types.Packet) (int, bool) {
	if len(raw) < types.TCPHeaderLen {
		p.TCP = nil
		t.events.Emit(p, types.EventDgramLtTCPHdr)
		return 0, false
	}

	// lay the header view on top of the data cause there is enough of it
	tcph := types.NewTCPHdr(raw)
	p.TCP = tcph

	lyrLen := tcph.HdrLen()

	if lyrLen < types.TCPHeaderLen {
		p.TCP = nil
		t.events.Emit(p, types.EventInvalidOffset)
		return 0, false
	}

	if lyrLen > len(raw) {
		p.TCP = nil
		t.events.Emit(p, types.EventLargeOffset)
		return 0, false
	}

	// The checksum runs before the other decoder checks.  If it is
	// bad (maybe due to encrypted ESP traffic) the rest would be
	// false positives.
	if t.policy.TCPChecksums() {
		ph := codec.PseudoheaderFor(p.IP, ProtocolTCP, len(raw))
		csum := codec.TCPChecksum(raw, ph)
		if csum != 0 {
			// An encapsulated segment that fails its checksum is
			// dropped from decoding without raising anything.
			if p.DecodeFlags&types.DecodeUnsureEncap != 0 {
				p.TCP = nil
				return 0, false
			}

			p.ErrorFlags |= types.PktErrCksumTCP

			if t.policy.InlineMode() && t.policy.TCPChecksumDrops() && t.active != nil {
				t.active.DropPacket(p)
			}
		}
	}

	flags := tcph.Flags()

	if flags&(types.THFin|types.THPush|types.THUrg) != 0 {
		if flags&(types.THSyn|types.THAck|types.THRst) != 0 {
			t.events.Emit(p, types.EventXmas)
		} else {
			t.events.Emit(p, types.EventNmapXmas)
		}
		// the packet keeps decoding in case there is valid data inside
	}

	if flags&types.THSyn != 0 {
		if flags == types.THSyn {
			if tcph.Seq() == napthaSeq && p.IP.ID() == napthaIPID {
				t.events.Emit(p, types.EventDosNaptha)
			}
		}

		if synToMulticastDstIP != nil && synToMulticastDstIP.Contains(p.IP.DstIP()) {
			t.events.Emit(p, types.EventSynToMulticast)
		}
		if flags&types.THRst != 0 {
			t.events.Emit(p, types.EventSynRst)
		}
		if flags&types.THFin != 0 {
			t.events.Emit(p, types.EventSynFin)
		}
	} else {
		// we already know there is no SYN
		if flags&(types.THAck|types.THRst) == 0 {
			t.events.Emit(p, types.EventNoSynAckRst)
		}
	}

	if flags&(types.THFin|types.THPush|types.THUrg) != 0 &&
		flags&types.THAck == 0 {
		t.events.Emit(p, types.EventMustAck)
	}

	p.SP = tcph.SrcPort()
	p.DP = tcph.DstPort()

	// if options are present, decode them
	if optLen := lyrLen - types.TCPHeaderLen; optLen > 0 {
		t.decodeOptions(raw[types.TCPHeaderLen:lyrLen], p)
		if p.TCP == nil {
			// the walker hit its defensive region-length assertion
			return 0, false
		}
	} else {
		p.OptionCount = 0
	}

	p.Data = raw[lyrLen:]
	if lyrLen < len(raw) {
		p.Dsize = uint16(len(raw) - lyrLen)
	} else {
		p.Dsize = 0
	}

	if flags&types.THUrg != 0 &&
		(p.Dsize == 0 || tcph.UrgPtr() > p.Dsize) {
		t.events.Emit(p, types.EventBadUrp)
	}

	p.ProtoBits |= types.ProtoBitTCP
	t.miscTests(p)

	return lyrLen, true
}

// miscTests holds the remaining TCP-layer decoder alerts.
func (t *TCPCodec) miscTests(p *types.Packet) {
	if p.TCP.Flags()&types.THNoReserved == types.THSyn &&
		p.TCP.Seq() == shaftSeq {
		t.events.Emit(p, types.EventShaftSynflood)
	}

	if p.SP == 0 || p.DP == 0 {
		t.events.Emit(p, types.EventPortZero)
	}
}
