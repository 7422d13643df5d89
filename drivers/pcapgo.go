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
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/david415/HoneyCodec/types"
)

func init() {
	SnifferRegister(&SnifferDriver{
		Name:        "pcapgo",
		FileCapable: true,
		New:         NewPcapgoHandle,
	})
}

// PcapgoHandle replays capture files through the pure-Go pcap reader;
// it exists so event reports can be reproduced from archived captures
// (the pcap logger's own rotations included) without cgo.
type PcapgoHandle struct {
	reader     *pcapgo.Reader
	fileReader io.ReadCloser
}

// NewPcapgoHandle opens a capture file, transparently decompressing
// ".gz" rotations, and refuses captures whose link type the outer
// decode loop cannot parse (it starts at Ethernet).
func NewPcapgoHandle(options *types.SnifferDriverOptions) (types.PacketDataSourceCloser, error) {
	fileReader, err := os.Open(options.Filename)
	if err != nil {
		return nil, err
	}

	var captureReader io.Reader = fileReader
	if strings.HasSuffix(options.Filename, ".gz") {
		captureReader, err = gzip.NewReader(fileReader)
		if err != nil {
			fileReader.Close()
			return nil, err
		}
	}

	reader, err := pcapgo.NewReader(captureReader)
	if err != nil {
		fileReader.Close()
		return nil, err
	}
	if reader.LinkType() != layers.LinkTypeEthernet {
		fileReader.Close()
		return nil, fmt.Errorf("pcapgo: %s is a %s capture, only ethernet is decodable",
			options.Filename, reader.LinkType())
	}
	return &PcapgoHandle{
		reader:     reader,
		fileReader: fileReader,
	}, nil
}

func (a *PcapgoHandle) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	return a.reader.ReadPacketData()
}

func (a *PcapgoHandle) Close() error {
	return a.fileReader.Close()
}
