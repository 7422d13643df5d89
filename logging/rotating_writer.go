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
	"os"
)

// RotatingQuotaWriter is an io.WriteCloser over a family of files
// basename, basename.1 ... basename.N that together never exceed the
// quota.  headerFunc runs against the fresh file after every
// rotation so format headers (pcap) survive the roll.
type RotatingQuotaWriter struct {
	filename    string
	fp          *os.File
	numLogs     int
	perLogSize  int
	currentSize int
	headerFunc  func()
	writingHdr  bool
}

// NewRotatingQuotaWriter takes a starting filename and a quota size
// in megabytes and behaves as an io.Writer that keeps no more than
// quotaSize megabytes on disk split across numLogs rotations.
func NewRotatingQuotaWriter(filename string, quotaSize int, numLogs int, headerFunc func()) *RotatingQuotaWriter {
	quotaBytes := quotaSize * 1024 * 1024
	return &RotatingQuotaWriter{
		filename:   filename,
		numLogs:    numLogs,
		perLogSize: quotaBytes / numLogs,
		headerFunc: headerFunc,
	}
}

func (w *RotatingQuotaWriter) Write(output []byte) (int, error) {
	if w.fp == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}
	if w.writingHdr {
		// the header bytes triggered by open/rotate land in the
		// fresh file regardless of size accounting
		w.writingHdr = false
		w.currentSize += len(output)
		return w.fp.Write(output)
	}
	if w.currentSize+len(output) > w.perLogSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	w.currentSize += len(output)
	return w.fp.Write(output)
}

func (w *RotatingQuotaWriter) Close() error {
	if w.fp == nil {
		return nil
	}
	err := w.fp.Close()
	w.fp = nil
	return err
}

func (w *RotatingQuotaWriter) open() error {
	fp, err := os.Create(w.filename)
	if err != nil {
		return err
	}
	w.fp = fp
	w.currentSize = 0
	if w.headerFunc != nil {
		w.writingHdr = true
		w.headerFunc()
	}
	return nil
}

// rotate shifts basename.i to basename.i+1, dropping the oldest, and
// starts a fresh basename.
func (w *RotatingQuotaWriter) rotate() error {
	if err := w.Close(); err != nil {
		return err
	}
	for i := w.numLogs; i > 0; i-- {
		oldName := fmt.Sprintf("%s.%d", w.filename, i)
		if i == w.numLogs {
			os.Remove(oldName)
			continue
		}
		if _, err := os.Stat(oldName); os.IsNotExist(err) {
			continue
		}
		os.Rename(oldName, fmt.Sprintf("%s.%d", w.filename, i+1))
	}
	if err := os.Rename(w.filename, fmt.Sprintf("%s.1", w.filename)); err != nil {
		return err
	}
	return w.open()
}
