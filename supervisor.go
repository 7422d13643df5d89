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
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"

	"github.com/david415/HoneyCodec/types"
)

type SupervisorOptions struct {
	SnifferDriverOptions *types.SnifferDriverOptions
	DispatcherOptions    DispatcherOptions
	SnifferFactory       func(*types.SnifferDriverOptions, PacketDispatcher) types.PacketSource
	ResponderOptions     ResponderOptions
}

// Supervisor owns the component lifecycle: it wires the sniffer, the
// decode worker pool and the active responder together and tears them
// down on interrupt or end of input.
type Supervisor struct {
	dispatcher       *Dispatcher
	sniffer          types.PacketSource
	responder        *Responder
	childStoppedChan chan bool
	forceQuitChan    chan os.Signal
}

func NewSupervisor(options SupervisorOptions) *Supervisor {
	responder := NewResponder(options.ResponderOptions)
	dispatcher := NewDispatcher(options.DispatcherOptions, responder, responder)
	sniffer := options.SnifferFactory(options.SnifferDriverOptions, dispatcher)
	supervisor := Supervisor{
		forceQuitChan:    make(chan os.Signal, 1),
		childStoppedChan: make(chan bool, 0),
		dispatcher:       dispatcher,
		sniffer:          sniffer,
		responder:        responder,
	}
	sniffer.SetSupervisor(supervisor)
	return &supervisor
}

func (b Supervisor) GetDispatcher() *Dispatcher {
	return b.dispatcher
}

func (b Supervisor) GetSniffer() types.PacketSource {
	return b.sniffer
}

func (b Supervisor) Stopped() {
	log.Info("Supervisor.Stopped()")
	b.childStoppedChan <- true
}

func (b Supervisor) Run() {
	if err := b.dispatcher.Start(); err != nil {
		log.Fatalf("failed to start dispatcher: %s", err)
	}
	b.sniffer.Start()
	if sniffer, ok := b.sniffer.(*Sniffer); ok {
		b.responder.SetInjector(sniffer.Injector())
	}

	signal.Notify(b.forceQuitChan, os.Interrupt)

	select {
	case <-b.forceQuitChan:
		log.Info("graceful shutdown: user force quit")
		log.Info("stopping sniffer")
		b.sniffer.Stop()
		log.Info("stopping dispatcher")
		b.dispatcher.Stop()
	case <-b.childStoppedChan:
		log.Info("graceful shutdown: packet-source stopped")
		b.dispatcher.Stop()
	}
}
