//go:build darwin || dragonfly || freebsd || netbsd || openbsd
// +build darwin dragonfly freebsd netbsd openbsd

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
	"github.com/google/gopacket/bsdbpf"

	"github.com/david415/HoneyCodec/types"
)

func init() {
	SnifferRegister(&SnifferDriver{
		Name: "BSD_BPF",
		New:  NewBPFHandle,
	})
}

type BPFHandle struct {
	bpfSniffer *bsdbpf.BPFSniffer
}

// NewBPFHandle opens a /dev/bpf capture on the device.  The decoder
// wants every anomalous frame as it arrives, so the device is put in
// immediate mode, and the read buffer follows the configured snaplen
// so oversized-offset segments survive into the decode path intact.
func NewBPFHandle(options *types.SnifferDriverOptions) (types.PacketDataSourceCloser, error) {
	snifferOptions := bsdbpf.Options{
		ReadBufLen:       int(options.Snaplen),
		Promisc:          true,
		Immediate:        true,
		PreserveLinkAddr: true,
	}
	bpfSniffer, err := bsdbpf.NewBPFSniffer(options.Device, &snifferOptions)
	return &BPFHandle{
		bpfSniffer: bpfSniffer,
	}, err
}

func (a *BPFHandle) ReadPacketData() (data []byte, ci gopacket.CaptureInfo, err error) {
	return a.bpfSniffer.ReadPacketData()
}

func (a *BPFHandle) Close() error {
	return a.bpfSniffer.Close()
}
