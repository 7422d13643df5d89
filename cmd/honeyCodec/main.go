/*
 *    HoneyCodec main command line tool
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

package main

import (
	"flag"

	log "github.com/sirupsen/logrus"

	"github.com/david415/HoneyCodec"
	"github.com/david415/HoneyCodec/config"
	"github.com/david415/HoneyCodec/drivers"
	"github.com/david415/HoneyCodec/logging"
	"github.com/david415/HoneyCodec/types"
)

func main() {
	var (
		configFile = flag.String("config", "", "YAML sensor configuration file; flags override its values")
		pcapfile   = flag.String("pcapfile", "", "pcap filename to read packets from rather than a wire interface.")
		iface      = flag.String("i", "", "Interface to get packets from")
		snaplen    = flag.Int("s", 0, "SnapLen for pcap packet capture")
		filter     = flag.String("f", "", "BPF filter for pcap")
		logDir     = flag.String("l", "", "incoming log dir used initially for pcap files if packet logging is enabled")
		archiveDir = flag.String("archive_dir", "", "archive directory for storing event reports and related pcap files")
		logPackets = flag.Bool("log_packets", false, "if set to true then log the packets that raised decoder events")
		workers    = flag.Int("workers", 0, "number of decode workers")
		daq        = flag.String("daq", "", "Data AcQuisition packet source")
		inline     = flag.Bool("inline", false, "treat the sensor as inline; segments failing checksum may be actively dropped")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			log.Fatal(err)
		}
	}

	// flags override the config file
	if *pcapfile != "" {
		cfg.Capture.Filename = *pcapfile
		cfg.Capture.DAQ = "libpcap"
	}
	if *iface != "" {
		cfg.Capture.Device = *iface
	}
	if *snaplen != 0 {
		cfg.Capture.Snaplen = int32(*snaplen)
	}
	if *filter != "" {
		cfg.Capture.Filter = *filter
	}
	if *daq != "" {
		cfg.Capture.DAQ = *daq
	}
	if *logDir != "" {
		cfg.Logging.LogDir = *logDir
	}
	if *archiveDir != "" {
		cfg.Logging.ArchiveDir = *archiveDir
	}
	if *logPackets {
		cfg.Logging.LogPackets = true
	}
	if *workers != 0 {
		cfg.Workers = *workers
	}
	if *inline {
		cfg.Sensor.Inline = true
	}

	if cfg.Capture.DAQ == "" {
		log.Fatal("must specify a Data AcQuisition packet source")
	}
	if cfg.Capture.Filename != "" && !drivers.CanReplayFiles(cfg.Capture.DAQ) {
		log.Fatalf("the %s DAQ does not support sniffing pcap files", cfg.Capture.DAQ)
	}
	if cfg.Logging.ArchiveDir == "" {
		log.Fatal("must specify an archive dir for event reports")
	}
	if cfg.Logging.LogPackets && cfg.Logging.LogDir == "" {
		log.Fatal("packet logging requires an incoming log dir")
	}

	eventLogger := logging.NewEventJsonLogger(cfg.Logging.ArchiveDir)
	eventLogger.Start()
	defer eventLogger.Stop()

	var packetLoggerFactory types.PacketLoggerFactory
	if cfg.Logging.LogPackets {
		packetLoggerFactory = logging.NewPcapLoggerFactory(cfg.Logging.LogDir, cfg.Logging.ArchiveDir, 10, 1)
	}

	options := HoneyCodec.SupervisorOptions{
		SnifferDriverOptions: &types.SnifferDriverOptions{
			DAQ:          cfg.Capture.DAQ,
			Device:       cfg.Capture.Device,
			Filename:     cfg.Capture.Filename,
			Filter:       cfg.Capture.Filter,
			Snaplen:      cfg.Capture.Snaplen,
			WireDuration: cfg.Capture.WireTimeout,
		},
		DispatcherOptions: HoneyCodec.DispatcherOptions{
			Workers:             cfg.Workers,
			Policy:              cfg,
			Logger:              eventLogger,
			PacketLoggerFactory: packetLoggerFactory,
			LogPackets:          cfg.Logging.LogPackets,
		},
		SnifferFactory: HoneyCodec.NewSniffer,
		ResponderOptions: HoneyCodec.ResponderOptions{
			Inline:    cfg.Sensor.Inline,
			InjectRST: cfg.Sensor.Inline && cfg.Sensor.TCP.ChecksumDrops,
		},
	}

	supervisor := HoneyCodec.NewSupervisor(options)
	supervisor.Run()
}
