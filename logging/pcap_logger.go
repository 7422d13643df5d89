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

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/david415/HoneyCodec/types"
)

// anomalyPacket is one offending frame on its way to disk, tagged
// with the decoder event it raised.
type anomalyPacket struct {
	rawPacket []byte
	timestamp time.Time
	event     types.EventID
}

// AnomalyPcapLogger captures the frames that raised decoder events
// for one flow, so an analyst can replay exactly the traffic behind a
// report.  Alongside the quota-rotated pcap it keeps a per-event tally
// that is written out as a sidecar summary when the flow's logging
// stops; the summary pairs up with the JSON event reports by flow.
type AnomalyPcapLogger struct {
	packetChan  chan anomalyPacket
	stopChan    chan bool
	doneChan    chan bool
	LogDir      string
	ArchiveDir  string
	Flow        *types.TcpIpFlow
	writer      *pcapgo.Writer
	fileWriter  io.WriteCloser
	pcapLogNum  int
	pcapQuota   int
	basename    string
	eventCounts map[types.EventID]uint64
}

func NewAnomalyPcapLogger(logDir, archiveDir string, flow *types.TcpIpFlow, pcapLogNum int, pcapQuota int) types.PacketLogger {
	p := AnomalyPcapLogger{
		packetChan:  make(chan anomalyPacket, 128),
		stopChan:    make(chan bool),
		doneChan:    make(chan bool),
		Flow:        flow,
		LogDir:      logDir,
		ArchiveDir:  archiveDir,
		pcapLogNum:  pcapLogNum,
		pcapQuota:   pcapQuota,
		eventCounts: make(map[types.EventID]uint64),
	}
	return types.PacketLogger(&p)
}

type PcapLoggerFactory struct {
	LogDir     string
	ArchiveDir string
	PcapLogNum int
	PcapQuota  int
}

func NewPcapLoggerFactory(logDir, archiveDir string, pcapLogNum, pcapQuota int) PcapLoggerFactory {
	return PcapLoggerFactory{
		LogDir:     logDir,
		ArchiveDir: archiveDir,
		PcapLogNum: pcapLogNum,
		PcapQuota:  pcapQuota,
	}
}

func (f PcapLoggerFactory) Build(flow *types.TcpIpFlow) types.PacketLogger {
	return NewAnomalyPcapLogger(f.LogDir, f.ArchiveDir, flow, f.PcapLogNum, f.PcapQuota)
}

func (p *AnomalyPcapLogger) writeHeader() {
	err := p.writer.WriteFileHeader(65536, layers.LinkTypeEthernet)
	if err != nil {
		panic(err)
	}
}

func (p *AnomalyPcapLogger) Start() {
	if p.fileWriter == nil {
		p.basename = filepath.Join(p.LogDir, fmt.Sprintf("%s.pcap", p.Flow))
		p.fileWriter = NewRotatingQuotaWriter(p.basename, p.pcapQuota, p.pcapLogNum, p.writeHeader)
		p.writer = pcapgo.NewWriter(p.fileWriter)
	}
	go p.logPackets()
}

// Stop drains whatever is still queued, writes the event tally and
// closes the pcap.
func (p *AnomalyPcapLogger) Stop() {
	p.stopChan <- true
	<-p.doneChan
	p.fileWriter.Close()
}

// WritePacket hands an offending frame to the logger goroutine;
// decode workers never touch the filesystem themselves.
func (p *AnomalyPcapLogger) WritePacket(rawPacket []byte, timestamp time.Time, id types.EventID) {
	p.packetChan <- anomalyPacket{
		rawPacket: rawPacket,
		timestamp: timestamp,
		event:     id,
	}
}

func (p *AnomalyPcapLogger) logPackets() {
	for {
		// drain queued frames before honoring a stop request
		select {
		case packet := <-p.packetChan:
			p.writePacketToFile(packet)
			continue
		default:
		}
		select {
		case <-p.stopChan:
			p.writeEventSummary()
			p.doneChan <- true
			return
		case packet := <-p.packetChan:
			p.writePacketToFile(packet)
		}
	}
}

func (p *AnomalyPcapLogger) writePacketToFile(packet anomalyPacket) {
	p.eventCounts[packet.event]++
	err := p.writer.WritePacket(gopacket.CaptureInfo{
		Timestamp:     packet.timestamp,
		CaptureLength: len(packet.rawPacket),
		Length:        len(packet.rawPacket),
	}, packet.rawPacket)

	if err != nil {
		panic(err)
	}
}

// summaryName returns the sidecar path for a pcap basename.
func summaryName(basename string) string {
	return basename + ".events"
}

// writeEventSummary records one "EVENT_NAME count" line per decoder
// event seen on the flow.
func (p *AnomalyPcapLogger) writeEventSummary() {
	if len(p.eventCounts) == 0 {
		return
	}
	names := make([]string, 0, len(p.eventCounts))
	byName := make(map[string]uint64, len(p.eventCounts))
	for id, count := range p.eventCounts {
		names = append(names, id.String())
		byName[id.String()] = count
	}
	sort.Strings(names)

	summary, err := os.Create(summaryName(p.basename))
	if err != nil {
		return
	}
	defer summary.Close()
	for _, name := range names {
		fmt.Fprintf(summary, "%s %d\n", name, byName[name])
	}
}

// Archive moves the flow's pcap rotations and the event summary out
// of the incoming log dir.
func (p *AnomalyPcapLogger) Archive() {
	newBasename := filepath.Join(p.ArchiveDir, filepath.Base(p.basename))
	os.Rename(p.basename, newBasename)
	os.Rename(summaryName(p.basename), summaryName(newBasename))
	for i := 1; i < p.pcapLogNum+1; i++ {
		os.Rename(fmt.Sprintf("%s.%d", p.basename, i), fmt.Sprintf("%s.%d", newBasename, i))
	}
}

// Remove discards everything logged for the flow.
func (p *AnomalyPcapLogger) Remove() {
	os.Remove(p.basename)
	os.Remove(summaryName(p.basename))
	for i := 1; i < p.pcapLogNum+1; i++ {
		os.Remove(fmt.Sprintf("%s.%d", p.basename, i))
	}
}
