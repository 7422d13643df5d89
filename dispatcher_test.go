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
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/david415/HoneyCodec/config"
	"github.com/david415/HoneyCodec/types"
)

type collectingLogger struct {
	mutex  sync.Mutex
	events []*types.Event
}

func (l *collectingLogger) Log(e *types.Event) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.events = append(l.events, e)
}

func (l *collectingLogger) byType(eventType string) []*types.Event {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	matched := []*types.Event{}
	for _, e := range l.events {
		if e.Type == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

func testPacket(t *testing.T, tcpLayer *layers.TCP) *types.Packet {
	ip := &layers.IPv4{
		SrcIP:    net.IP{10, 0, 0, 1},
		DstIP:    net.IP{10, 0, 0, 2},
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
	}
	tcpLayer.SetNetworkLayerForChecksum(ip)
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, tcpLayer); err != nil {
		t.Fatal(err)
	}
	segment := buf.Bytes()
	return &types.Packet{
		Timestamp: time.Now(),
		RawPacket: segment,
		IP:        &types.IP4Api{IP: ip},
		Layers:    []types.Layer{{Proto: 6, Start: segment}},
	}
}

func TestDispatcherDecodesAndCounts(t *testing.T) {
	logger := &collectingLogger{}
	dispatcher := NewDispatcher(DispatcherOptions{
		Workers: 2,
		Policy:  config.Default(),
		Logger:  logger,
	}, nil, nil)

	if err := dispatcher.Start(); err != nil {
		t.Fatal(err)
	}

	dispatcher.ReceivePacket(testPacket(t, &layers.TCP{SrcPort: 40000, DstPort: 80, Seq: 1, SYN: true, Window: 8192}))
	dispatcher.ReceivePacket(testPacket(t, &layers.TCP{SrcPort: 0, DstPort: 80, Seq: 1, SYN: true, Window: 8192}))

	dispatcher.Stop()

	totals := dispatcher.Totals()
	if totals.Packets != 2 {
		t.Errorf("expected 2 packets, got %d", totals.Packets)
	}
	if totals.Decoded != 2 {
		t.Errorf("expected 2 decoded, got %d", totals.Decoded)
	}
	if totals.Events != 1 {
		t.Errorf("expected 1 event, got %d", totals.Events)
	}

	portZero := logger.byType("TCP_PORT_ZERO")
	if len(portZero) != 1 {
		t.Fatalf("expected one TCP_PORT_ZERO report, got %d", len(portZero))
	}
	if portZero[0].Description == "" {
		t.Error("report is missing its catalogue description")
	}
	if portZero[0].Flow == nil {
		t.Error("report is missing its flow")
	}
}

func TestDispatcherCountsDecodeFailures(t *testing.T) {
	dispatcher := NewDispatcher(DispatcherOptions{
		Workers: 1,
		Policy:  config.Default(),
	}, nil, nil)

	if err := dispatcher.Start(); err != nil {
		t.Fatal(err)
	}

	runt := &types.Packet{
		Timestamp: time.Now(),
		RawPacket: []byte{1, 2, 3},
		IP: &types.IP4Api{IP: &layers.IPv4{
			SrcIP: net.IP{10, 0, 0, 1},
			DstIP: net.IP{10, 0, 0, 2},
		}},
		Layers: []types.Layer{{Proto: 6, Start: []byte{1, 2, 3}}},
	}
	dispatcher.ReceivePacket(runt)
	dispatcher.Stop()

	totals := dispatcher.Totals()
	if totals.Failures != 1 {
		t.Errorf("expected 1 failure, got %d", totals.Failures)
	}
	if totals.Decoded != 0 {
		t.Errorf("expected 0 decoded, got %d", totals.Decoded)
	}
}

func TestDispatcherIgnoresUnknownProtocols(t *testing.T) {
	dispatcher := NewDispatcher(DispatcherOptions{
		Workers: 1,
		Policy:  config.Default(),
	}, nil, nil)

	if err := dispatcher.Start(); err != nil {
		t.Fatal(err)
	}

	p := &types.Packet{
		Timestamp: time.Now(),
		RawPacket: []byte{1, 2, 3},
		IP: &types.IP4Api{IP: &layers.IPv4{
			SrcIP: net.IP{10, 0, 0, 1},
			DstIP: net.IP{10, 0, 0, 2},
		}},
		Layers: []types.Layer{{Proto: 17, Start: []byte{1, 2, 3}}},
	}
	dispatcher.ReceivePacket(p)
	dispatcher.Stop()

	totals := dispatcher.Totals()
	if totals.Decoded != 1 || totals.Failures != 0 {
		t.Errorf("unknown protocol must pass through: %+v", totals)
	}
}
