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
	"fmt"

	"github.com/david415/HoneyCodec/types"
)

// SnifferDriver describes one way of acquiring packets: its factory
// plus the capabilities the sniffer and the active responder need to
// know about before opening a handle.
type SnifferDriver struct {
	Name string
	// FileCapable drivers replay capture files instead of (or as
	// well as) sniffing a live interface.
	FileCapable bool
	// Injection drivers return handles that can also write frames,
	// which the responder uses to answer anomalies with RSTs.
	Injection bool
	New       func(*types.SnifferDriverOptions) (types.PacketDataSourceCloser, error)
}

var Drivers = map[string]*SnifferDriver{}

// SnifferRegister makes an ethernet sniffer driver available by its name.
// If SnifferRegister is called twice with the same name or if the
// driver or its factory is nil, it panics.
func SnifferRegister(driver *SnifferDriver) {
	if driver == nil || driver.New == nil {
		panic("sniffer: driver factory is nil")
	}
	if _, dup := Drivers[driver.Name]; dup {
		panic("sniffer: Register called twice for ethernet sniffer " + driver.Name)
	}
	Drivers[driver.Name] = driver
}

// Open looks a driver up by name, checks that it can serve the given
// options and builds the capture handle.
func Open(options *types.SnifferDriverOptions) (types.PacketDataSourceCloser, error) {
	driver, ok := Drivers[options.DAQ]
	if !ok {
		return nil, fmt.Errorf("sniffer: %s driver not supported on this system", options.DAQ)
	}
	if options.Filename != "" && !driver.FileCapable {
		return nil, fmt.Errorf("sniffer: %s driver cannot replay capture files", options.DAQ)
	}
	return driver.New(options)
}

// CanReplayFiles reports whether the named driver accepts a capture
// file instead of a live interface.
func CanReplayFiles(name string) bool {
	driver, ok := Drivers[name]
	return ok && driver.FileCapable
}
