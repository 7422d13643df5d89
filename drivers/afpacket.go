//go:build linux
// +build linux

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
	"github.com/google/gopacket"
	"github.com/google/gopacket/afpacket"
	"golang.org/x/net/bpf"

	"github.com/david415/HoneyCodec/types"
)

func init() {
	SnifferRegister(&SnifferDriver{
		Name:      "AF_PACKET",
		Injection: true,
		New:       NewAfpacketHandle,
	})
}

type AfpacketHandle struct {
	afpacketHandle *afpacket.TPacket
}

func NewAfpacketHandle(options *types.SnifferDriverOptions) (types.PacketDataSourceCloser, error) {
	afpacketHandle, err := afpacket.NewTPacket(afpacket.OptInterface(options.Device))
	if err != nil {
		return nil, err
	}
	if options.Filter != "" {
		// AF_PACKET has no tcpdump filter compiler; attach the
		// equivalent classic BPF program by hand
		program, err := tcpOnlyFilter(uint32(options.Snaplen))
		if err != nil {
			return nil, err
		}
		if err = afpacketHandle.SetBPF(program); err != nil {
			return nil, err
		}
	}
	return &AfpacketHandle{
		afpacketHandle: afpacketHandle,
	}, nil
}

// tcpOnlyFilter assembles a classic BPF program accepting IPv4 and
// IPv6 TCP frames and nothing else.
func tcpOnlyFilter(snaplen uint32) ([]bpf.RawInstruction, error) {
	return bpf.Assemble([]bpf.Instruction{
		// ethertype
		bpf.LoadAbsolute{Off: 12, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 0x0800, SkipTrue: 0, SkipFalse: 2},
		// IPv4 protocol byte
		bpf.LoadAbsolute{Off: 23, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 6, SkipTrue: 3, SkipFalse: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 0x86dd, SkipTrue: 0, SkipFalse: 3},
		// IPv6 next header byte
		bpf.LoadAbsolute{Off: 20, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 6, SkipTrue: 0, SkipFalse: 1},
		bpf.RetConstant{Val: snaplen},
		bpf.RetConstant{Val: 0},
	})
}

func (a *AfpacketHandle) ReadPacketData() (data []byte, ci gopacket.CaptureInfo, err error) {
	return a.afpacketHandle.ReadPacketData()
}

// WritePacketData injects a frame through the AF_PACKET socket.
func (a *AfpacketHandle) WritePacketData(data []byte) error {
	return a.afpacketHandle.WritePacketData(data)
}

func (a *AfpacketHandle) Close() error {
	a.afpacketHandle.Close()
	return nil
}
