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
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/david415/HoneyCodec/codec"
	"github.com/david415/HoneyCodec/types"
)

type capturingSink struct {
	events []types.EventID
}

func (s *capturingSink) Emit(p *types.Packet, id types.EventID) {
	s.events = append(s.events, id)
}

func (s *capturingSink) has(id types.EventID) bool {
	for _, got := range s.events {
		if got == id {
			return true
		}
	}
	return false
}

type staticPolicy struct {
	inline        bool
	checksums     bool
	checksumDrops bool
}

func (p staticPolicy) InlineMode() bool       { return p.inline }
func (p staticPolicy) TCPChecksums() bool     { return p.checksums }
func (p staticPolicy) TCPChecksumDrops() bool { return p.checksumDrops }

type staticDAQ struct {
	mode codec.InterfaceMode
}

func (d staticDAQ) InterfaceMode(p *types.Packet) codec.InterfaceMode { return d.mode }

type recordingActive struct {
	drops int
}

func (a *recordingActive) DropPacket(p *types.Packet) { a.drops++ }

func testCodec(policy staticPolicy, mode codec.InterfaceMode) (*TCPCodec, *capturingSink, *recordingActive) {
	sink := &capturingSink{}
	active := &recordingActive{}
	t := NewTCPCodec(codec.Collaborators{
		Events: sink,
		Policy: policy,
		DAQ:    staticDAQ{mode: mode},
		Active: active,
	})
	return t, sink, active
}

func testIP4() *layers.IPv4 {
	return &layers.IPv4{
		SrcIP:    net.IP{10, 0, 0, 1},
		DstIP:    net.IP{10, 0, 0, 2},
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
	}
}

// serializeSegment builds segment bytes through gopacket so the
// checksum on the wire is the real thing.
func serializeSegment(t *testing.T, ip *layers.IPv4, tcpLayer *layers.TCP, payload []byte) []byte {
	tcpLayer.SetNetworkLayerForChecksum(ip)
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	err := gopacket.SerializeLayers(buf, opts, tcpLayer, gopacket.Payload(payload))
	if err != nil {
		t.Fatalf("segment serialization failed: %s", err)
	}
	return buf.Bytes()
}

// synLayer is scenario S1: minimum valid SYN 40000 -> 80.
func synLayer() *layers.TCP {
	return &layers.TCP{
		SrcPort: 40000,
		DstPort: 80,
		Seq:     1,
		Ack:     0,
		Window:  8192,
		SYN:     true,
	}
}

// rawSegment hand-rolls a header for malformed cases gopacket refuses
// to serialize.  The checksum field is filled against testIP4 with
// the codec's own kernel, which is verified independently against
// gopacket in the codec package tests.
func rawSegment(flags uint8, offsetWords uint8, options []byte, payload []byte) []byte {
	raw := make([]byte, types.TCPHeaderLen+len(options)+len(payload))
	h := types.NewTCPHdr(raw)
	h.SetSrcPort(40000)
	h.SetDstPort(80)
	h.SetSeq(1)
	h.SetOffset(offsetWords)
	h.SetFlags(flags)
	h.SetWindow(8192)
	copy(raw[types.TCPHeaderLen:], options)
	copy(raw[types.TCPHeaderLen+len(options):], payload)

	ip := testIP4()
	ph := codec.NewPseudoheader4(ip.SrcIP, ip.DstIP, 6, uint16(len(raw)))
	h.SetChecksum(codec.TCPChecksum(raw, ph))
	return raw
}

func packetFor(ip *layers.IPv4) *types.Packet {
	return &types.Packet{
		IP: &types.IP4Api{IP: ip},
	}
}

func TestDecodeMinimalSyn(t *testing.T) {
	tcpCodec, sink, _ := testCodec(staticPolicy{checksums: true}, codec.ModePassive)
	ip := testIP4()
	raw := serializeSegment(t, ip, synLayer(), nil)
	p := packetFor(ip)

	lyrLen, ok := tcpCodec.Decode(raw, p)
	if !ok {
		t.Fatal("decode failed")
	}
	if lyrLen != types.TCPHeaderLen {
		t.Errorf("expected layer length 20, got %d", lyrLen)
	}
	if len(sink.events) != 0 {
		t.Errorf("expected no events, got %v", sink.events)
	}
	if p.SP != 40000 || p.DP != 80 {
		t.Errorf("ports not decoded: %d -> %d", p.SP, p.DP)
	}
	if p.OptionCount != 0 {
		t.Errorf("expected no options, got %d", p.OptionCount)
	}
	if p.Dsize != 0 {
		t.Errorf("expected empty payload, got %d", p.Dsize)
	}
	if p.ProtoBits&types.ProtoBitTCP == 0 {
		t.Error("TCP protocol bit not set")
	}
	if p.TCP == nil {
		t.Error("header reference not set")
	}
}

func TestDecodeXmas(t *testing.T) {
	tcpCodec, sink, _ := testCodec(staticPolicy{checksums: true}, codec.ModePassive)
	ip := testIP4()
	tcpLayer := synLayer()
	tcpLayer.FIN = true
	tcpLayer.PSH = true
	tcpLayer.URG = true
	tcpLayer.ACK = true
	tcpLayer.RST = true
	raw := serializeSegment(t, ip, tcpLayer, nil)
	p := packetFor(ip)

	_, ok := tcpCodec.Decode(raw, p)
	if !ok {
		t.Fatal("xmas segment must still decode")
	}
	if !sink.has(types.EventXmas) {
		t.Error("expected TCP_XMAS")
	}
	if sink.has(types.EventNmapXmas) {
		t.Error("nmap xmas must not fire alongside xmas")
	}
}

func TestDecodeNmapXmas(t *testing.T) {
	tcpCodec, sink, _ := testCodec(staticPolicy{checksums: true}, codec.ModePassive)
	ip := testIP4()
	tcpLayer := &layers.TCP{SrcPort: 40000, DstPort: 80, Seq: 1, FIN: true, PSH: true, URG: true}
	raw := serializeSegment(t, ip, tcpLayer, nil)
	p := packetFor(ip)

	_, ok := tcpCodec.Decode(raw, p)
	if !ok {
		t.Fatal("decode failed")
	}
	if !sink.has(types.EventNmapXmas) {
		t.Error("expected TCP_NMAP_XMAS")
	}
	if !sink.has(types.EventMustAck) {
		t.Error("FIN/PSH/URG without ACK must raise TCP_MUST_ACK")
	}
	if !sink.has(types.EventNoSynAckRst) {
		t.Error("expected TCP_NO_SYN_ACK_RST")
	}
}

func TestDecodeNaptha(t *testing.T) {
	tcpCodec, sink, _ := testCodec(staticPolicy{checksums: true}, codec.ModePassive)
	ip := testIP4()
	ip.Id = 413
	tcpLayer := synLayer()
	tcpLayer.Seq = 6060842
	raw := serializeSegment(t, ip, tcpLayer, nil)
	p := packetFor(ip)

	_, ok := tcpCodec.Decode(raw, p)
	if !ok {
		t.Fatal("decode failed")
	}
	if !sink.has(types.EventDosNaptha) {
		t.Error("expected DOS_NAPTHA")
	}
	if sink.has(types.EventSynFin) {
		t.Error("TCP_SYN_FIN must not fire")
	}
}

func TestDecodeNapthaNeedsIPID(t *testing.T) {
	tcpCodec, sink, _ := testCodec(staticPolicy{checksums: true}, codec.ModePassive)
	ip := testIP4()
	ip.Id = 414
	tcpLayer := synLayer()
	tcpLayer.Seq = 6060842
	raw := serializeSegment(t, ip, tcpLayer, nil)

	tcpCodec.Decode(raw, packetFor(ip))
	if sink.has(types.EventDosNaptha) {
		t.Error("DOS_NAPTHA requires IP id 413")
	}
}

func TestDecodeShaftSynflood(t *testing.T) {
	tcpCodec, sink, _ := testCodec(staticPolicy{checksums: true}, codec.ModePassive)
	ip := testIP4()
	tcpLayer := synLayer()
	tcpLayer.Seq = 674711609
	raw := serializeSegment(t, ip, tcpLayer, nil)

	_, ok := tcpCodec.Decode(raw, packetFor(ip))
	if !ok {
		t.Fatal("decode failed")
	}
	if !sink.has(types.EventShaftSynflood) {
		t.Error("expected TCP_SHAFT_SYNFLOOD")
	}
}

func TestDecodeSynRstAndSynFin(t *testing.T) {
	tcpCodec, sink, _ := testCodec(staticPolicy{checksums: true}, codec.ModePassive)
	ip := testIP4()
	tcpLayer := synLayer()
	tcpLayer.RST = true
	raw := serializeSegment(t, ip, tcpLayer, nil)
	if _, ok := tcpCodec.Decode(raw, packetFor(ip)); !ok {
		t.Fatal("decode failed")
	}
	if !sink.has(types.EventSynRst) {
		t.Error("expected TCP_SYN_RST")
	}

	tcpCodec, sink, _ = testCodec(staticPolicy{checksums: true}, codec.ModePassive)
	tcpLayer = synLayer()
	tcpLayer.FIN = true
	raw = serializeSegment(t, ip, tcpLayer, nil)
	if _, ok := tcpCodec.Decode(raw, packetFor(ip)); !ok {
		t.Fatal("decode failed")
	}
	if !sink.has(types.EventSynFin) {
		t.Error("expected TCP_SYN_FIN")
	}
}

func TestDecodePortZero(t *testing.T) {
	tcpCodec, sink, _ := testCodec(staticPolicy{checksums: true}, codec.ModePassive)
	ip := testIP4()
	tcpLayer := synLayer()
	tcpLayer.SrcPort = 0
	raw := serializeSegment(t, ip, tcpLayer, nil)

	_, ok := tcpCodec.Decode(raw, packetFor(ip))
	if !ok {
		t.Fatal("decode failed")
	}
	if !sink.has(types.EventPortZero) {
		t.Error("expected TCP_PORT_ZERO")
	}
}

func TestDecodeBadUrp(t *testing.T) {
	tcpCodec, sink, _ := testCodec(staticPolicy{checksums: true}, codec.ModePassive)
	ip := testIP4()
	tcpLayer := &layers.TCP{SrcPort: 40000, DstPort: 80, Seq: 1, ACK: true, URG: true, Urgent: 10}
	raw := serializeSegment(t, ip, tcpLayer, []byte("hello"))

	_, ok := tcpCodec.Decode(raw, packetFor(ip))
	if !ok {
		t.Fatal("decode failed")
	}
	if !sink.has(types.EventBadUrp) {
		t.Error("urgent pointer beyond payload must raise TCP_BAD_URP")
	}

	// pointer within the payload is fine
	tcpCodec, sink, _ = testCodec(staticPolicy{checksums: true}, codec.ModePassive)
	tcpLayer = &layers.TCP{SrcPort: 40000, DstPort: 80, Seq: 1, ACK: true, URG: true, Urgent: 3}
	raw = serializeSegment(t, ip, tcpLayer, []byte("hello"))
	tcpCodec.Decode(raw, packetFor(ip))
	if sink.has(types.EventBadUrp) {
		t.Error("valid urgent pointer raised TCP_BAD_URP")
	}
}

func TestDecodeTooShort(t *testing.T) {
	ip := testIP4()
	full := rawSegment(types.THSyn, 5, nil, nil)
	for rawLen := 0; rawLen < types.TCPHeaderLen; rawLen++ {
		tcpCodec, sink, _ := testCodec(staticPolicy{checksums: true}, codec.ModePassive)
		p := packetFor(ip)
		_, ok := tcpCodec.Decode(full[:rawLen], p)
		if ok {
			t.Fatalf("raw length %d decoded", rawLen)
		}
		if !sink.has(types.EventDgramLtTCPHdr) {
			t.Errorf("raw length %d: expected DGRAM_LT_TCPHDR", rawLen)
		}
		if p.TCP != nil {
			t.Errorf("raw length %d: header reference not cleared", rawLen)
		}
	}
}

func TestDecodeInvalidOffset(t *testing.T) {
	ip := testIP4()
	for offset := uint8(0); offset < 5; offset++ {
		tcpCodec, sink, _ := testCodec(staticPolicy{checksums: true}, codec.ModePassive)
		raw := rawSegment(types.THSyn, offset, nil, nil)
		p := packetFor(ip)
		_, ok := tcpCodec.Decode(raw, p)
		if ok {
			t.Fatalf("offset %d decoded", offset)
		}
		if !sink.has(types.EventInvalidOffset) {
			t.Errorf("offset %d: expected INVALID_OFFSET", offset)
		}
		if p.TCP != nil {
			t.Errorf("offset %d: header reference not cleared", offset)
		}
	}
}

func TestDecodeLargeOffset(t *testing.T) {
	tcpCodec, sink, _ := testCodec(staticPolicy{checksums: true}, codec.ModePassive)
	ip := testIP4()
	raw := rawSegment(types.THSyn, 15, nil, nil)
	p := packetFor(ip)
	_, ok := tcpCodec.Decode(raw, p)
	if ok {
		t.Fatal("oversized offset decoded")
	}
	if !sink.has(types.EventLargeOffset) {
		t.Error("expected LARGE_OFFSET")
	}
	if p.TCP != nil {
		t.Error("header reference not cleared")
	}
}

func TestDecodeChecksumBad(t *testing.T) {
	tcpCodec, sink, active := testCodec(staticPolicy{checksums: true}, codec.ModePassive)
	ip := testIP4()
	raw := serializeSegment(t, ip, synLayer(), nil)
	raw[16] ^= 0xff
	p := packetFor(ip)

	_, ok := tcpCodec.Decode(raw, p)
	if !ok {
		t.Fatal("checksum mismatch must not abort decoding")
	}
	if p.ErrorFlags&types.PktErrCksumTCP == 0 {
		t.Error("checksum error flag not set")
	}
	if active.drops != 0 {
		t.Error("passive sensor requested a drop")
	}
	if len(sink.events) != 0 {
		t.Errorf("unexpected events: %v", sink.events)
	}
}

func TestDecodeChecksumDisabled(t *testing.T) {
	tcpCodec, _, _ := testCodec(staticPolicy{checksums: false}, codec.ModePassive)
	ip := testIP4()
	raw := serializeSegment(t, ip, synLayer(), nil)
	raw[16] ^= 0xff
	p := packetFor(ip)

	if _, ok := tcpCodec.Decode(raw, p); !ok {
		t.Fatal("decode failed")
	}
	if p.ErrorFlags&types.PktErrCksumTCP != 0 {
		t.Error("checksum flag set with verification disabled")
	}
}

func TestDecodeChecksumBadInlineDrops(t *testing.T) {
	tcpCodec, _, active := testCodec(staticPolicy{checksums: true, inline: true, checksumDrops: true}, codec.ModeInline)
	ip := testIP4()
	raw := serializeSegment(t, ip, synLayer(), nil)
	raw[16] ^= 0xff
	p := packetFor(ip)

	if _, ok := tcpCodec.Decode(raw, p); !ok {
		t.Fatal("decode failed")
	}
	if active.drops != 1 {
		t.Errorf("expected one drop request, got %d", active.drops)
	}
}

func TestDecodeChecksumUnsureEncap(t *testing.T) {
	tcpCodec, sink, active := testCodec(staticPolicy{checksums: true, inline: true, checksumDrops: true}, codec.ModeInline)
	ip := testIP4()
	raw := serializeSegment(t, ip, synLayer(), nil)
	raw[16] ^= 0xff
	p := packetFor(ip)
	p.DecodeFlags |= types.DecodeUnsureEncap

	_, ok := tcpCodec.Decode(raw, p)
	if ok {
		t.Fatal("unsure-encap checksum mismatch must fail decode")
	}
	if p.TCP != nil {
		t.Error("header reference not cleared")
	}
	if p.ErrorFlags&types.PktErrCksumTCP != 0 {
		t.Error("checksum flag must stay clear under unsure encap")
	}
	if len(sink.events) != 0 {
		t.Errorf("unsure-encap failure must be silent, got %v", sink.events)
	}
	if active.drops != 0 {
		t.Error("unsure-encap failure requested a drop")
	}
}

func TestDecodeSynToMulticast(t *testing.T) {
	if err := pinit(); err != nil {
		t.Fatal(err)
	}
	defer pterm()

	tcpCodec, sink, _ := testCodec(staticPolicy{checksums: true}, codec.ModePassive)
	ip := testIP4()
	ip.DstIP = net.IP{239, 1, 2, 3}
	raw := serializeSegment(t, ip, synLayer(), nil)

	if _, ok := tcpCodec.Decode(raw, packetFor(ip)); !ok {
		t.Fatal("decode failed")
	}
	if !sink.has(types.EventSynToMulticast) {
		t.Error("expected SYN_TO_MULTICAST")
	}

	// 224/8 is multicast too but outside the variable
	tcpCodec, sink, _ = testCodec(staticPolicy{checksums: true}, codec.ModePassive)
	ip = testIP4()
	ip.DstIP = net.IP{224, 0, 0, 1}
	raw = serializeSegment(t, ip, synLayer(), nil)
	tcpCodec.Decode(raw, packetFor(ip))
	if sink.has(types.EventSynToMulticast) {
		t.Error("224.0.0.1 is outside the multicast variable")
	}
}

func TestDecodePayloadView(t *testing.T) {
	tcpCodec, _, _ := testCodec(staticPolicy{checksums: true}, codec.ModePassive)
	ip := testIP4()
	tcpLayer := &layers.TCP{SrcPort: 40000, DstPort: 80, Seq: 9, ACK: true}
	raw := serializeSegment(t, ip, tcpLayer, []byte("some data"))
	p := packetFor(ip)

	lyrLen, ok := tcpCodec.Decode(raw, p)
	if !ok {
		t.Fatal("decode failed")
	}
	if p.Dsize != 9 {
		t.Errorf("expected dsize 9, got %d", p.Dsize)
	}
	if string(p.Data) != "some data" {
		t.Errorf("payload view is wrong: %q", p.Data)
	}
	if lyrLen+int(p.Dsize) != len(raw) {
		t.Error("layer length and payload size do not cover the segment")
	}
}
