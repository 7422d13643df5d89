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

package types

import (
	"encoding/binary"
)

const (
	// TCPHeaderLen is the size of an option-less TCP header.
	TCPHeaderLen = 20

	// TCPOptLenMax is the most option bytes a header can carry;
	// (((2^4) - 1) * 4) - TCPHeaderLen
	TCPOptLenMax = 40
)

// TCP flag bits as they appear in the 13th header byte.
const (
	THFin  uint8 = 0x01
	THSyn  uint8 = 0x02
	THRst  uint8 = 0x04
	THPush uint8 = 0x08
	THAck  uint8 = 0x10
	THUrg  uint8 = 0x20
	THEce  uint8 = 0x40
	THCwr  uint8 = 0x80

	// THNoReserved masks off the two reserved-for-ECN bits.
	THNoReserved = THFin | THSyn | THRst | THPush | THAck | THUrg
)

// TCP option kinds; see http://www.iana.org/assignments/tcp-parameters
const (
	TCPOptEOL         uint8 = 0
	TCPOptNOP         uint8 = 1
	TCPOptMaxSeg      uint8 = 2
	TCPOptWScale      uint8 = 3
	TCPOptSackOK      uint8 = 4
	TCPOptSack        uint8 = 5
	TCPOptEcho        uint8 = 6
	TCPOptEchoReply   uint8 = 7
	TCPOptTimestamp   uint8 = 8
	TCPOptPartialPerm uint8 = 9
	TCPOptPartialSvc  uint8 = 10
	TCPOptCC          uint8 = 11
	TCPOptCCNew       uint8 = 12
	TCPOptCCEcho      uint8 = 13
	TCPOptAltCsum     uint8 = 14
	TCPOptSnap        uint8 = 15
	TCPOptSkeeter     uint8 = 16
	TCPOptBubba       uint8 = 17
	TCPOptTrailerCsum uint8 = 18
	TCPOptMD5Sig      uint8 = 19
	TCPOptSCPS        uint8 = 20
	TCPOptSelNegAck   uint8 = 21
	TCPOptRecordBound uint8 = 22
	TCPOptCorruption  uint8 = 23
	TCPOptUnassigned  uint8 = 24
	TCPOptAuth        uint8 = 29
)

// Fixed on-wire lengths for the options that have one.
const (
	TCPOLenMaxSeg    = 4
	TCPOLenWScale    = 3
	TCPOLenSackOK    = 2
	TCPOLenEcho      = 6
	TCPOLenCC        = 6
	TCPOLenTimestamp = 10
	TCPOLenMD5Sig    = 18
)

// Option is one decoded TCP option.  Len is the payload length, that
// is the on-wire length minus two for variable options and zero for
// NOP and EOL.  Data borrows from the segment buffer and is nil when
// the option carries no payload.
type Option struct {
	Code uint8
	Len  uint8
	Data []byte
}

// TCPHdr is a view over the TCP header bytes within a raw segment
// buffer.  Field reads convert from network byte order on the fly so
// the underlying buffer needs no particular alignment.  The view
// borrows the buffer; its lifetime is the packet's processing scope.
type TCPHdr struct {
	bytes []byte
}

// NewTCPHdr lays a TCPHdr over raw.  The caller must have verified
// that at least TCPHeaderLen bytes are present.
func NewTCPHdr(raw []byte) *TCPHdr {
	return &TCPHdr{bytes: raw}
}

func (h *TCPHdr) SrcPort() uint16 {
	return binary.BigEndian.Uint16(h.bytes[0:2])
}

func (h *TCPHdr) DstPort() uint16 {
	return binary.BigEndian.Uint16(h.bytes[2:4])
}

func (h *TCPHdr) Seq() uint32 {
	return binary.BigEndian.Uint32(h.bytes[4:8])
}

func (h *TCPHdr) Ack() uint32 {
	return binary.BigEndian.Uint32(h.bytes[8:12])
}

// Offset returns the data offset field in 32-bit words.
func (h *TCPHdr) Offset() uint8 {
	return h.bytes[12] >> 4
}

// HdrLen returns the header length in bytes.
func (h *TCPHdr) HdrLen() int {
	return int(h.Offset()) << 2
}

func (h *TCPHdr) Flags() uint8 {
	return h.bytes[13]
}

// FlagsSet reports whether any flag in mask is set.
func (h *TCPHdr) FlagsSet(mask uint8) bool {
	return h.bytes[13]&mask != 0
}

func (h *TCPHdr) Window() uint16 {
	return binary.BigEndian.Uint16(h.bytes[14:16])
}

func (h *TCPHdr) Checksum() uint16 {
	return binary.BigEndian.Uint16(h.bytes[16:18])
}

func (h *TCPHdr) UrgPtr() uint16 {
	return binary.BigEndian.Uint16(h.bytes[18:20])
}

// Bytes returns the underlying header bytes, options included when
// the view was laid over a full header region.
func (h *TCPHdr) Bytes() []byte {
	return h.bytes
}

// The encoder synthesizes response segments in place; these setters
// write network byte order into the viewed buffer.

func (h *TCPHdr) SetSrcPort(port uint16) {
	binary.BigEndian.PutUint16(h.bytes[0:2], port)
}

func (h *TCPHdr) SetDstPort(port uint16) {
	binary.BigEndian.PutUint16(h.bytes[2:4], port)
}

func (h *TCPHdr) SetSeq(seq uint32) {
	binary.BigEndian.PutUint32(h.bytes[4:8], seq)
}

func (h *TCPHdr) SetAck(ack uint32) {
	binary.BigEndian.PutUint32(h.bytes[8:12], ack)
}

// SetOffset stores the data offset in 32-bit words and zeroes the
// reserved bits that share its byte.
func (h *TCPHdr) SetOffset(words uint8) {
	h.bytes[12] = words << 4
}

func (h *TCPHdr) SetFlags(flags uint8) {
	h.bytes[13] = flags
}

func (h *TCPHdr) SetWindow(win uint16) {
	binary.BigEndian.PutUint16(h.bytes[14:16], win)
}

func (h *TCPHdr) SetChecksum(csum uint16) {
	binary.BigEndian.PutUint16(h.bytes[16:18], csum)
}

func (h *TCPHdr) SetUrgPtr(urp uint16) {
	binary.BigEndian.PutUint16(h.bytes[18:20], urp)
}
