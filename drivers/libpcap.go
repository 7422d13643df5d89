//go:build linux || freebsd || smartos
// +build linux freebsd smartos

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

package drivers

import (
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"github.com/david415/HoneyCodec/types"
)

func init() {
	SnifferRegister(&SnifferDriver{
		Name:        "libpcap",
		FileCapable: true,
		Injection:   true,
		New:         NewPcapSniffer,
	})
}

type PcapHandle struct {
	handle *pcap.Handle
}

func NewPcapSniffer(options *types.SnifferDriverOptions) (types.PacketDataSourceCloser, error) {
	if options.Filename != "" {
		pcapFileHandle, err := pcap.OpenOffline(options.Filename)
		pcapHandle := PcapHandle{
			handle: pcapFileHandle,
		}
		return &pcapHandle, err
	}
	pcapWireHandle, err := pcap.OpenLive(options.Device, options.Snaplen, true, options.WireDuration)
	if err != nil {
		return nil, err
	}
	pcapHandle := PcapHandle{
		handle: pcapWireHandle,
	}
	err = pcapHandle.handle.SetBPFFilter(options.Filter)
	return &pcapHandle, err
}

func NewPcapFileSniffer(filename string) (*PcapHandle, error) {
	pcapFileHandle, err := pcap.OpenOffline(filename)
	pcapHandle := PcapHandle{
		handle: pcapFileHandle,
	}
	return &pcapHandle, err
}

func NewPcapWireSniffer(netDevice string, snaplen int32, wireDuration time.Duration, filter string) (*PcapHandle, error) {
	pcapWireHandle, err := pcap.OpenLive(netDevice, snaplen, true, wireDuration)
	if err != nil {
		return nil, err
	}
	pcapHandle := PcapHandle{
		handle: pcapWireHandle,
	}
	err = pcapHandle.handle.SetBPFFilter(filter)
	return &pcapHandle, err
}

func (p *PcapHandle) ReadPacketData() (data []byte, ci gopacket.CaptureInfo, err error) {
	return p.handle.ReadPacketData()
}

// WritePacketData lets the active responder inject response segments
// through the same handle packets were captured on.
func (p *PcapHandle) WritePacketData(data []byte) error {
	return p.handle.WritePacketData(data)
}

func (p *PcapHandle) Close() error {
	p.handle.Close()
	return nil
}
