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

package HoneyCodec

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	log "github.com/sirupsen/logrus"

	"github.com/david415/HoneyCodec/codec"
	"github.com/david415/HoneyCodec/codec/tcp"
	"github.com/david415/HoneyCodec/types"
)

type ResponderOptions struct {
	// Inline marks the sensor as sitting on the data path.
	Inline bool
	// InjectRST makes drop requests answer the offending segment
	// with a reverse RST through the capture handle.
	InjectRST bool
}

// Responder services active-drop requests from the decoders.  When
// injection is enabled it synthesizes a reverse RST with the TCP
// encoder, wraps it in reversed outer layers and writes it through
// the capture handle.
type Responder struct {
	options  ResponderOptions
	injector types.PacketInjector
	tcpCodec *tcp.TCPCodec
}

func NewResponder(options ResponderOptions) *Responder {
	r := Responder{
		options: options,
	}
	r.tcpCodec = tcp.NewTCPCodec(codec.Collaborators{
		DAQ: &r,
	})
	return &r
}

// SetInjector hands the responder the capture handle once the sniffer
// has opened it; a nil injector disables injection.
func (r *Responder) SetInjector(injector types.PacketInjector) {
	r.injector = injector
}

// InterfaceMode implements the DAQ window for the encoders.
func (r *Responder) InterfaceMode(p *types.Packet) codec.InterfaceMode {
	if r.options.Inline {
		return codec.ModeInline
	}
	return codec.ModePassive
}

// DropPacket implements the active-response request from decoders.
func (r *Responder) DropPacket(p *types.Packet) {
	log.Debugf("active: drop requested for packet of %d bytes", len(p.RawPacket))
	if !r.options.InjectRST || r.injector == nil || p.TCP == nil {
		return
	}
	frame, err := r.buildReverseRst(p)
	if err != nil {
		log.Debugf("active: could not build RST response: %s", err)
		return
	}
	if err = r.injector.WritePacketData(frame); err != nil {
		log.Warnf("active: RST injection failed: %s", err)
	}
}

// buildReverseRst synthesizes a full response frame for p: reversed
// Ethernet and IP layers from gopacket, the TCP segment from the
// codec's encoder.
func (r *Responder) buildReverseRst(p *types.Packet) ([]byte, error) {
	var eth layers.Ethernet
	var ip4 layers.IPv4
	var ip6 layers.IPv6
	parser := gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet, &eth, &ip4, &ip6)
	parser.IgnoreUnsupported = true
	decoded := make([]gopacket.LayerType, 0, 4)
	if err := parser.DecodeLayers(p.RawPacket, &decoded); err != nil {
		return nil, err
	}

	enc := codec.EncState{
		Packet: p,
		Type:   codec.EncTypeTCPRst,
		Flags:  codec.EncFlagRev,
	}
	out := codec.NewBuffer(types.TCPHeaderLen + types.TCPOptLenMax)
	segment := p.TCP.Bytes()
	if len(segment) > p.TCP.HdrLen() {
		segment = segment[:p.TCP.HdrLen()]
	}
	if !r.tcpCodec.Encode(&enc, out, segment) {
		return nil, fmt.Errorf("tcp encode failed")
	}

	eth.SrcMAC, eth.DstMAC = eth.DstMAC, eth.SrcMAC
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

	for _, layerType := range decoded {
		switch layerType {
		case layers.LayerTypeIPv4:
			ip4.SrcIP, ip4.DstIP = ip4.DstIP, ip4.SrcIP
			ip4.Protocol = layers.IPProtocolTCP
			err := gopacket.SerializeLayers(buf, opts, &eth, &ip4, gopacket.Payload(out.Base()))
			return buf.Bytes(), err
		case layers.LayerTypeIPv6:
			ip6.SrcIP, ip6.DstIP = ip6.DstIP, ip6.SrcIP
			ip6.NextHeader = layers.IPProtocolTCP
			err := gopacket.SerializeLayers(buf, opts, &eth, &ip6, gopacket.Payload(out.Base()))
			return buf.Bytes(), err
		}
	}
	return nil, fmt.Errorf("no IP layer in offending packet")
}
