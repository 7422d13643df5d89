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

// Package tcp decodes the TCP transport layer, raises decoder events
// for malformed and known-evasion segments, and synthesizes RST and
// FIN/PUSH response segments.
package tcp

import (
	"fmt"

	"github.com/david415/HoneyCodec/codec"
	"github.com/david415/HoneyCodec/ipset"
	"github.com/david415/HoneyCodec/types"
)

const CodecName = "tcp"

// ProtocolTCP is the IP protocol number this codec claims.
const ProtocolTCP uint8 = 6

// synToMulticastDstIP is the multicast destination variable consulted
// for SYN segments.  Bound once by PInit, read without locking by
// every worker, released by PTerm.
var synToMulticastDstIP *ipset.IPSet

const synToMulticastExpr = "[232.0.0.0/8,233.0.0.0/8,239.0.0.0/8]"

var tcpRules = map[types.EventID]string{
	types.EventDgramLtTCPHdr:    "(" + CodecName + ") TCP packet len is smaller than 20 bytes",
	types.EventInvalidOffset:    "(" + CodecName + ") TCP Data Offset is less than 5",
	types.EventLargeOffset:      "(" + CodecName + ") TCP Header length exceeds packet length",
	types.EventOptBadLen:        "(" + CodecName + ") Tcp Options found with bad lengths",
	types.EventOptTruncated:     "(" + CodecName + ") Truncated Tcp Options",
	types.EventOptTTCP:          "(" + CodecName + ") T/TCP Detected",
	types.EventOptObsolete:      "(" + CodecName + ") Obsolete TCP Options found",
	types.EventOptExperimental:  "(" + CodecName + ") Experimental Tcp Options found",
	types.EventOptWScaleInvalid: "(" + CodecName + ") Tcp Window Scale Option found with length > 14",
	types.EventXmas:             "(" + CodecName + ") XMAS Attack Detected",
	types.EventNmapXmas:         "(" + CodecName + ") Nmap XMAS Attack Detected",
	types.EventBadUrp:           "(" + CodecName + ") TCP urgent pointer exceeds payload length or no payload",
	types.EventSynFin:           "(" + CodecName + ") TCP SYN with FIN",
	types.EventSynRst:           "(" + CodecName + ") TCP SYN with RST",
	types.EventMustAck:          "(" + CodecName + ") TCP PDU missing ack for established session",
	types.EventNoSynAckRst:      "(" + CodecName + ") TCP has no SYN, ACK, or RST",
	types.EventShaftSynflood:    "(" + CodecName + ") DDOS shaft synflood",
	types.EventPortZero:         "(" + CodecName + ") BAD-TRAFFIC TCP port 0 traffic",
	types.EventDosNaptha:        "(decode) DOS NAPTHA Vulnerability Detected",
	types.EventSynToMulticast:   "(decode) Bad Traffic SYN to multicast address",
}

func pinit() error {
	set, err := ipset.ParseIPSet(synToMulticastExpr)
	if err != nil {
		return fmt.Errorf("tcp: could not initialize SynToMulticastDstIp: %s", err)
	}
	synToMulticastDstIP = set
	return nil
}

func pterm() {
	synToMulticastDstIP = nil
}

func init() {
	codec.RegisterCodec(&codec.API{
		Name:  CodecName,
		New:   func(c codec.Collaborators) codec.Codec { return NewTCPCodec(c) },
		PInit: pinit,
		PTerm: pterm,
		Rules: tcpRules,
	})
}
