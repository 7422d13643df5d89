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

	"github.com/google/gopacket"
)

type SnifferDriverOptions struct {
	DAQ          string
	Filename     string
	Device       string
	Snaplen      int32
	WireDuration time.Duration
	Filter       string
}

// PacketDataSourceCloser is an interface for some source of packet data.
type PacketDataSourceCloser interface {
	// ReadPacketData returns the next packet available from this data source.
	// It returns:
	//  data:  The bytes of an individual packet.
	//  ci:  Metadata about the capture
	//  err:  An error encountered while reading packet data.  If err != nil,
	//    then data/ci will be ignored.
	ReadPacketData() (data []byte, ci gopacket.CaptureInfo, err error)
	// Close closes the ethernet sniffer and returns nil if no error was found.
	Close() error
}

// PacketInjector is implemented by capture handles that can also
// write packets back onto the wire; the active responder wants one.
type PacketInjector interface {
	WritePacketData(data []byte) error
}

type Supervisor interface {
	Stopped()
	Run()
}

type PacketSource interface {
	Start()
	Stop()
	SetSupervisor(Supervisor)
	GetStartedChan() chan bool // used for unit tests
}

// ActiveResponse is how decoders request that the current packet be
// actively dropped when the sensor sits inline.
type ActiveResponse interface {
	DropPacket(p *Packet)
}

// PacketLogger records the raw packets that raised decoder events,
// each tagged with the event that fired on it.
type PacketLogger interface {
	WritePacket(rawPacket []byte, timestamp time.Time, id EventID)
	Start()
	Stop()
	Remove()
	Archive()
}

type PacketLoggerFactory interface {
	Build(*TcpIpFlow) PacketLogger
}
