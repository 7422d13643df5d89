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
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	log "github.com/sirupsen/logrus"

	"github.com/david415/HoneyCodec/drivers"
	"github.com/david415/HoneyCodec/types"
)

type TimedRawPacket struct {
	Timestamp time.Time
	RawPacket []byte
}

// Sniffer reads frames off a capture handle, peels the outer
// Ethernet/IP layers with gopacket and hands the transport bytes to
// the dispatcher as decoded-state records.  Transport decoding is the
// codec table's job, not gopacket's.
type Sniffer struct {
	options          *types.SnifferDriverOptions
	supervisor       types.Supervisor
	dispatcher       PacketDispatcher
	packetDataSource types.PacketDataSourceCloser
	isStopped        bool
	decodePacketChan chan TimedRawPacket
	stopDecodeChan   chan bool
}

// NewSniffer creates a new Sniffer struct
func NewSniffer(options *types.SnifferDriverOptions, dispatcher PacketDispatcher) types.PacketSource {
	i := Sniffer{
		dispatcher:       dispatcher,
		options:          options,
		decodePacketChan: make(chan TimedRawPacket),
		stopDecodeChan:   make(chan bool),
	}
	return &i
}

func (i *Sniffer) SetSupervisor(supervisor types.Supervisor) {
	i.supervisor = supervisor
}

func (i *Sniffer) GetStartedChan() chan bool {
	return make(chan bool)
}

// Start... starts the TCP anomaly inquisition!
func (i *Sniffer) Start() {
	// XXX
	i.setupHandle()

	go i.capturePackets()
	go i.decodePackets()
}

func (i *Sniffer) Stop() {
	log.Info("sniffer: sending stopDecodeChan signal")
	i.isStopped = true
	i.stopDecodeChan <- true
}

func (i *Sniffer) Close() {
	if i.packetDataSource != nil {
		log.Info("closing packet capture socket")
		i.packetDataSource.Close()
	}
	log.Info("stopping the sniffer decode loop")
	i.isStopped = true
	log.Info("done.")
}

// Injector returns the capture handle as a packet injector when the
// driver supports writing, nil otherwise.
func (i *Sniffer) Injector() types.PacketInjector {
	injector, ok := i.packetDataSource.(types.PacketInjector)
	if !ok {
		return nil
	}
	return injector
}

func (i *Sniffer) setupHandle() {
	var err error
	var what string

	i.packetDataSource, err = drivers.Open(i.options)
	if err != nil {
		log.Fatal(err)
	}

	if i.options.Filename != "" {
		what = fmt.Sprintf("file %s", i.options.Filename)
	} else {
		what = fmt.Sprintf("interface %s", i.options.Device)
	}

	log.Infof("Starting %s packet capture on %s", i.options.DAQ, what)
}

func (i *Sniffer) capturePackets() {
	for {
		rawPacket, captureInfo, err := i.packetDataSource.ReadPacketData()
		if err == io.EOF {
			log.Info("ReadPacketData got EOF")
			i.Close()
			i.Stop()
			i.supervisor.Stopped()
			return
		}
		if err != nil {
			continue
		}
		timedPacket := TimedRawPacket{
			Timestamp: captureInfo.Timestamp,
			RawPacket: rawPacket,
		}
		i.decodePacketChan <- timedPacket
		if i.isStopped {
			break
		}
	}
}

func (i *Sniffer) decodePackets() {
	var eth layers.Ethernet
	var ip4 layers.IPv4
	var ip6 layers.IPv6

	parser := gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet, &eth, &ip4, &ip6)
	parser.IgnoreUnsupported = true
	decoded := make([]gopacket.LayerType, 0, 4)

	for {
		select {
		case <-i.stopDecodeChan:
			return
		case timedRawPacket := <-i.decodePacketChan:
			err := parser.DecodeLayers(timedRawPacket.RawPacket, &decoded)
			if err != nil {
				continue
			}
			p := manifestFromLayers(timedRawPacket, decoded, &ip4, &ip6)
			if p == nil {
				continue
			}
			i.dispatcher.ReceivePacket(p)
		}
	}
}

// manifestFromLayers builds the per-packet decoded-state record from
// whatever outer layers gopacket managed to peel.  The parser's layer
// structs are reused across packets, so the IP layer is copied before
// the record borrows it.
func manifestFromLayers(timedRawPacket TimedRawPacket, decoded []gopacket.LayerType, ip4 *layers.IPv4, ip6 *layers.IPv6) *types.Packet {
	p := types.Packet{
		Timestamp: timedRawPacket.Timestamp,
		RawPacket: timedRawPacket.RawPacket,
	}
	for _, layerType := range decoded {
		switch layerType {
		case layers.LayerTypeIPv4:
			v4 := *ip4
			p.IP = &types.IP4Api{IP: &v4}
			p.Layers = append(p.Layers, types.Layer{
				Proto: uint8(v4.Protocol),
				Start: v4.Payload,
			})
		case layers.LayerTypeIPv6:
			v6 := *ip6
			p.IP = &types.IP6Api{IP: &v6}
			p.Layers = append(p.Layers, types.Layer{
				Proto: uint8(v6.NextHeader),
				Start: v6.Payload,
			})
		}
	}
	if p.IP == nil {
		return nil
	}
	return &p
}
