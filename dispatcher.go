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
	log "github.com/sirupsen/logrus"

	"github.com/david415/HoneyCodec/codec"
	"github.com/david415/HoneyCodec/types"
)

// PacketDispatcher is how packet sources hand decoded-state records
// to the worker pool.
type PacketDispatcher interface {
	ReceivePacket(p *types.Packet)
}

// DispatcherOptions are user set parameters for specifying how the
// decode worker pool behaves.
type DispatcherOptions struct {
	Workers             int
	Policy              codec.Policy
	Logger              types.Logger
	PacketLoggerFactory types.PacketLoggerFactory
	LogPackets          bool
}

// WorkerCounters are the per-worker profiling counters.  Each worker
// owns its own set and never shares it while running; the dispatcher
// aggregates them once the workers have stopped.
type WorkerCounters struct {
	Packets  uint64
	Decoded  uint64
	Failures uint64
	Events   uint64
	Drops    uint64
}

func (c *WorkerCounters) add(other WorkerCounters) {
	c.Packets += other.Packets
	c.Decoded += other.Decoded
	c.Failures += other.Failures
	c.Events += other.Events
	c.Drops += other.Drops
}

// Dispatcher fans captured packets out to decode workers.  Each
// worker is a run-to-completion loop over one packet at a time with
// its own codec table, its own event sink and its own counters, so
// nothing on the decode path takes a lock.
type Dispatcher struct {
	options DispatcherOptions

	daq    codec.DAQ
	active types.ActiveResponse

	dispatchPacketChan chan *types.Packet
	stopWorkerChan     chan bool
	workerDoneChan     chan WorkerCounters

	totals WorkerCounters
}

// NewDispatcher creates a new Dispatcher struct
func NewDispatcher(options DispatcherOptions, daq codec.DAQ, active types.ActiveResponse) *Dispatcher {
	if options.Workers < 1 {
		options.Workers = 1
	}
	d := Dispatcher{
		options:            options,
		daq:                daq,
		active:             active,
		dispatchPacketChan: make(chan *types.Packet, 64),
		stopWorkerChan:     make(chan bool),
		workerDoneChan:     make(chan WorkerCounters),
	}
	return &d
}

// Start... starts the decode workers.
func (d *Dispatcher) Start() error {
	if err := codec.GInit(); err != nil {
		return err
	}
	for w := 0; w < d.options.Workers; w++ {
		go d.decodeWorker(w)
	}
	return nil
}

// Stop stops the workers, aggregates their counters and releases the
// codecs' process-wide state.
func (d *Dispatcher) Stop() {
	for w := 0; w < d.options.Workers; w++ {
		d.stopWorkerChan <- true
		counters := <-d.workerDoneChan
		d.totals.add(counters)
	}
	codec.GTerm()
	log.Infof("dispatcher: %d packets, %d decoded, %d failures, %d events, %d drops",
		d.totals.Packets, d.totals.Decoded, d.totals.Failures, d.totals.Events, d.totals.Drops)
}

// Totals returns the aggregated counters; only meaningful after Stop.
func (d *Dispatcher) Totals() WorkerCounters {
	return d.totals
}

func (d *Dispatcher) ReceivePacket(p *types.Packet) {
	d.dispatchPacketChan <- p
}

func (d *Dispatcher) decodeWorker(id int) {
	counters := WorkerCounters{}
	sink := &workerSink{
		dispatcher: d,
		counters:   &counters,
		pcapLogs:   make(map[string]types.PacketLogger),
	}
	table, err := codec.NewCodecTable(codec.Collaborators{
		Events: sink,
		Policy: d.options.Policy,
		DAQ:    d.daq,
		Active: &countingActive{inner: d.active, counters: &counters},
	})
	if err != nil {
		log.Errorf("dispatcher: worker %d failed to build codec table: %s", id, err)
		table = map[uint8]codec.Codec{}
	}

	for {
		// drain queued packets before honoring a stop request
		select {
		case p := <-d.dispatchPacketChan:
			counters.Packets++
			d.decodePacket(table, p, &counters)
			continue
		default:
		}
		select {
		case <-d.stopWorkerChan:
			sink.stopPacketLogs()
			d.workerDoneChan <- counters
			return
		case p := <-d.dispatchPacketChan:
			counters.Packets++
			d.decodePacket(table, p, &counters)
		}
	}
}

func (d *Dispatcher) decodePacket(table map[uint8]codec.Codec, p *types.Packet, counters *WorkerCounters) {
	for i := range p.Layers {
		lyr := &p.Layers[i]
		protoCodec, ok := table[lyr.Proto]
		if !ok {
			continue
		}
		if _, ok := protoCodec.Decode(lyr.Start, p); !ok {
			counters.Failures++
			return
		}
	}
	counters.Decoded++
}

// countingActive forwards drop requests while bumping the worker's
// drop counter.
type countingActive struct {
	inner    types.ActiveResponse
	counters *WorkerCounters
}

func (a *countingActive) DropPacket(p *types.Packet) {
	a.counters.Drops++
	if a.inner != nil {
		a.inner.DropPacket(p)
	}
}

// workerSink turns raw decoder events into event reports.  One sink
// per worker; it mutates only worker-owned state.
type workerSink struct {
	dispatcher *Dispatcher
	counters   *WorkerCounters
	pcapLogs   map[string]types.PacketLogger
}

func (s *workerSink) Emit(p *types.Packet, id types.EventID) {
	s.counters.Events++

	// flag-classification events fire before the decoder extracts
	// the ports; read them off the header view for the report
	sp, dp := p.SP, p.DP
	if p.TCP != nil {
		sp, dp = p.TCP.SrcPort(), p.TCP.DstPort()
	}

	if p.Flow == nil && p.IP != nil {
		p.Flow = types.NewTcpIpFlowFromDecoded(p)
	}

	if s.dispatcher.options.Logger != nil {
		s.dispatcher.options.Logger.Log(&types.Event{
			Type:        id.String(),
			ID:          id,
			Description: codec.RuleText(id),
			Time:        p.Timestamp,
			Flow:        p.Flow,
			SrcPort:     sp,
			DstPort:     dp,
		})
	}

	s.logPacket(p, id)
}

// logPacket records the offending raw packet to a per-flow pcap log,
// tagged with the event that fired.
func (s *workerSink) logPacket(p *types.Packet, id types.EventID) {
	if !s.dispatcher.options.LogPackets || s.dispatcher.options.PacketLoggerFactory == nil {
		return
	}
	if p.Flow == nil || len(p.RawPacket) == 0 {
		return
	}
	key := p.Flow.String()
	packetLogger, ok := s.pcapLogs[key]
	if !ok {
		packetLogger = s.dispatcher.options.PacketLoggerFactory.Build(p.Flow)
		packetLogger.Start()
		s.pcapLogs[key] = packetLogger
	}
	packetLogger.WritePacket(p.RawPacket, p.Timestamp, id)
}

func (s *workerSink) stopPacketLogs() {
	for _, packetLogger := range s.pcapLogs {
		packetLogger.Stop()
		packetLogger.Archive()
	}
}
