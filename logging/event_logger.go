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
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/david415/HoneyCodec/types"
)

// EventReportName is the file the JSON event reports land in,
// one object per line.
const EventReportName = "decoder.eventreport.json"

type SerializedEvent struct {
	Type        string
	ID          int
	Description string
	Time        time.Time
	Flow        string
	SrcPort     uint16
	DstPort     uint16
}

// EventJsonLogger is responsible for recording all decoder event
// reports as JSON objects in a file.
type EventJsonLogger struct {
	ArchiveDir string
	stopChan   chan bool
	eventChan  chan *types.Event
}

// NewEventJsonLogger returns a pointer to a EventJsonLogger struct
func NewEventJsonLogger(archiveDir string) *EventJsonLogger {
	e := EventJsonLogger{
		ArchiveDir: archiveDir,
		stopChan:   make(chan bool),
		eventChan:  make(chan *types.Event, 128),
	}
	return &e
}

func (e *EventJsonLogger) Start() {
	go e.receiveReports()
}

func (e *EventJsonLogger) Stop() {
	e.stopChan <- true
}

func (e *EventJsonLogger) receiveReports() {
	for {
		select {
		case <-e.stopChan:
			return
		case unserializedReport := <-e.eventChan:
			e.SerializeAndWrite(unserializedReport)
		}
	}
}

// Log hands an event report to the logger goroutine; decode workers
// never touch the filesystem themselves.
func (e *EventJsonLogger) Log(event *types.Event) {
	e.eventChan <- event
}

func (e *EventJsonLogger) SerializeAndWrite(event *types.Event) {
	flow := ""
	if event.Flow != nil {
		flow = event.Flow.String()
	}
	serialized := &SerializedEvent{
		Type:        event.Type,
		ID:          int(event.ID),
		Description: event.Description,
		Time:        event.Time,
		Flow:        flow,
		SrcPort:     event.SrcPort,
		DstPort:     event.DstPort,
	}
	e.Publish(serialized)
}

// Publish appends one JSON report line to the event-report file.
func (e *EventJsonLogger) Publish(event *SerializedEvent) {
	b, err := json.Marshal(event)
	if err != nil {
		log.Errorf("event logger: failed to marshal report: %s", err)
		return
	}
	logName := filepath.Join(e.ArchiveDir, EventReportName)
	writer, err := os.OpenFile(logName, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Errorf("event logger: failed to open %s: %s", logName, err)
		return
	}
	defer writer.Close()
	writer.Write(b)
	writer.Write([]byte{'\n'})
}
