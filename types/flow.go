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
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// TcpIpFlow identifies a unidirectional TCP flow; event reports are
// keyed on it.
type TcpIpFlow struct {
	ipFlow  gopacket.Flow
	tcpFlow gopacket.Flow
}

// NewTcpIpFlowFromFlows given a net flow (either ipv4 or ipv6) and TCP flow returns a TcpIpFlow
func NewTcpIpFlowFromFlows(netFlow gopacket.Flow, tcpFlow gopacket.Flow) *TcpIpFlow {
	// XXX todo: check that the flow types are correct
	return &TcpIpFlow{
		ipFlow:  netFlow,
		tcpFlow: tcpFlow,
	}
}

// NewTcpIpFlowFromDecoded builds a flow from a decoded packet record.
// The IP window must be populated; ports are read off the header view
// when the decoder has not extracted them yet.
func NewTcpIpFlowFromDecoded(p *Packet) *TcpIpFlow {
	sp, dp := p.SP, p.DP
	if p.TCP != nil {
		sp, dp = p.TCP.SrcPort(), p.TCP.DstPort()
	}
	ipFlow, _ := gopacket.FlowFromEndpoints(
		layers.NewIPEndpoint(p.IP.SrcIP()),
		layers.NewIPEndpoint(p.IP.DstIP()))
	tcpFlow, _ := gopacket.FlowFromEndpoints(
		layers.NewTCPPortEndpoint(layers.TCPPort(sp)),
		layers.NewTCPPortEndpoint(layers.TCPPort(dp)))
	return &TcpIpFlow{
		ipFlow:  ipFlow,
		tcpFlow: tcpFlow,
	}
}

// String returns the string representation of a TcpIpFlow
func (t *TcpIpFlow) String() string {
	return fmt.Sprintf("%s:%s-%s:%s", t.ipFlow.Src().String(), t.tcpFlow.Src().String(), t.ipFlow.Dst().String(), t.tcpFlow.Dst().String())
}

// Reverse returns a reversed TcpIpFlow, that is to say the resulting
// TcpIpFlow flow will be made up of a reversed IP flow and a reversed
// TCP flow.
func (t *TcpIpFlow) Reverse() *TcpIpFlow {
	return NewTcpIpFlowFromFlows(t.ipFlow.Reverse(), t.tcpFlow.Reverse())
}

// Equal returns true if TcpIpFlow structs t and s are equal. False otherwise.
func (t *TcpIpFlow) Equal(s *TcpIpFlow) bool {
	return t.ipFlow == s.ipFlow && t.tcpFlow == s.tcpFlow
}

// Flows returns the component flow structs IPv4, TCP
func (t *TcpIpFlow) Flows() (gopacket.Flow, gopacket.Flow) {
	return t.ipFlow, t.tcpFlow
}
