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
	"time"
)

// EventID identifies one decoder anomaly.
type EventID int

const (
	EventDgramLtTCPHdr EventID = iota
	EventInvalidOffset
	EventLargeOffset
	EventOptBadLen
	EventOptTruncated
	EventOptTTCP
	EventOptObsolete
	EventOptExperimental
	EventOptWScaleInvalid
	EventXmas
	EventNmapXmas
	EventBadUrp
	EventSynFin
	EventSynRst
	EventMustAck
	EventNoSynAckRst
	EventShaftSynflood
	EventPortZero
	EventDosNaptha
	EventSynToMulticast
)

var eventNames = map[EventID]string{
	EventDgramLtTCPHdr:    "DGRAM_LT_TCPHDR",
	EventInvalidOffset:    "INVALID_OFFSET",
	EventLargeOffset:      "LARGE_OFFSET",
	EventOptBadLen:        "TCPOPT_BADLEN",
	EventOptTruncated:     "TCPOPT_TRUNCATED",
	EventOptTTCP:          "TCPOPT_TTCP",
	EventOptObsolete:      "TCPOPT_OBSOLETE",
	EventOptExperimental:  "TCPOPT_EXPERIMENTAL",
	EventOptWScaleInvalid: "TCPOPT_WSCALE_INVALID",
	EventXmas:             "TCP_XMAS",
	EventNmapXmas:         "TCP_NMAP_XMAS",
	EventBadUrp:           "TCP_BAD_URP",
	EventSynFin:           "TCP_SYN_FIN",
	EventSynRst:           "TCP_SYN_RST",
	EventMustAck:          "TCP_MUST_ACK",
	EventNoSynAckRst:      "TCP_NO_SYN_ACK_RST",
	EventShaftSynflood:    "TCP_SHAFT_SYNFLOOD",
	EventPortZero:         "TCP_PORT_ZERO",
	EventDosNaptha:        "DOS_NAPTHA",
	EventSynToMulticast:   "SYN_TO_MULTICAST",
}

func (id EventID) String() string {
	name, ok := eventNames[id]
	if !ok {
		return "UNKNOWN_EVENT"
	}
	return name
}

// EventSink receives decoder events as they fire.  Implementations
// must not block; the decode path is run-to-completion.
type EventSink interface {
	Emit(p *Packet, id EventID)
}

// Event is the report record handed to loggers once a decoder event
// has been bound to its packet context.
type Event struct {
	Type        string
	ID          EventID
	Description string
	Time        time.Time
	Flow        *TcpIpFlow
	SrcPort     uint16
	DstPort     uint16
}

// Logger is anything that can record decoder event reports.
type Logger interface {
	Log(e *Event)
}
