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
	"strings"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func testFlow(t *testing.T) *TcpIpFlow {
	ipFlow, err := gopacket.FlowFromEndpoints(layers.NewIPEndpoint(net.IPv4(1, 2, 3, 4)), layers.NewIPEndpoint(net.IPv4(2, 3, 4, 5)))
	if err != nil {
		t.Fatal(err)
	}
	tcpFlow, err := gopacket.FlowFromEndpoints(layers.NewTCPPortEndpoint(layers.TCPPort(1)), layers.NewTCPPortEndpoint(layers.TCPPort(2)))
	if err != nil {
		t.Fatal(err)
	}
	return NewTcpIpFlowFromFlows(ipFlow, tcpFlow)
}

func TestFlowString(t *testing.T) {
	flow := testFlow(t)
	if !strings.EqualFold("1.2.3.4:1-2.3.4.5:2", flow.String()) {
		t.Errorf("TcpIpFlow.String() fail: %s", flow)
	}
}

func TestFlowReverse(t *testing.T) {
	flow := testFlow(t)
	reversed := flow.Reverse()
	if !strings.EqualFold("2.3.4.5:2-1.2.3.4:1", reversed.String()) {
		t.Errorf("TcpIpFlow.Reverse() fail: %s", reversed)
	}
	if flow.Equal(reversed) {
		t.Error("a flow must not equal its reverse")
	}
}

func TestFlowEqual(t *testing.T) {
	if !testFlow(t).Equal(testFlow(t)) {
		t.Error("TcpIpFlow.Equal fail")
	}
}

func TestFlowFromDecoded(t *testing.T) {
	ip := &layers.IPv4{
		SrcIP: net.IP{1, 2, 3, 4},
		DstIP: net.IP{2, 3, 4, 5},
	}
	p := &Packet{
		IP: &IP4Api{IP: ip},
		SP: 1,
		DP: 2,
	}
	flow := NewTcpIpFlowFromDecoded(p)
	if !flow.Equal(testFlow(t)) {
		t.Errorf("decoded flow mismatch: %s", flow)
	}
}

func TestFlowFromDecodedReadsHeaderPorts(t *testing.T) {
	raw := make([]byte, TCPHeaderLen)
	h := NewTCPHdr(raw)
	h.SetSrcPort(1)
	h.SetDstPort(2)
	p := &Packet{
		IP: &IP4Api{IP: &layers.IPv4{
			SrcIP: net.IP{1, 2, 3, 4},
			DstIP: net.IP{2, 3, 4, 5},
		}},
		TCP: h,
	}
	flow := NewTcpIpFlowFromDecoded(p)
	if !flow.Equal(testFlow(t)) {
		t.Errorf("flow must read ports off the header view: %s", flow)
	}
}
