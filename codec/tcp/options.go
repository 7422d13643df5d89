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

package tcp

import (
	"github.com/david415/HoneyCodec/types"
)

// Option-walk validation result codes.
const (
	optOK     = 0
	optBadLen = -1
	optTrunc  = -2
)

// variableLen asks optLenValidate to accept any on-wire length >= 2.
const variableLen = -1

// optLenValidate checks one option against its expected on-wire
// length.  opts is the whole option region, off the index of the
// option's kind byte.  expected follows RFC option-length units of
// bytes: a value > 1 demands that exact length, variableLen accepts
// whatever the length byte claims as long as at least two bytes are
// present and the region holds them.  On success the Option record is
// filled with the payload view and the returned skip is the number of
// bytes the option consumed.
func optLenValidate(opts []byte, off int, expected int, opt *types.Option) (skip int, code int) {
	// the kind byte sits at the very end with no length byte behind it
	if off+1 >= len(opts) {
		return 0, optTrunc
	}
	length := int(opts[off+1])

	if length == 0 || expected == 0 || expected == 1 {
		return 0, optBadLen
	}
	if expected > 1 {
		// not enough data to read in a perfect world
		if off+expected > len(opts) {
			return 0, optTrunc
		}
		if length != expected {
			return 0, optBadLen
		}
	} else {
		// RFC sez that we MUST have atleast this much data
		if length < 2 {
			return 0, optBadLen
		}
		if off+length > len(opts) {
			return 0, optTrunc
		}
	}

	opt.Len = uint8(length - 2)
	if length == 2 {
		opt.Data = nil
	} else {
		opt.Data = opts[off+2 : off+length]
	}
	return length, optOK
}

// decodeOptions walks the option region until exhaustion, an EOL, or
// a validation error.  For a good listing of TCP Options,
// http://www.iana.org/assignments/tcp-parameters
//
// A TCP MUST be able to receive a TCP option in any segment and MUST
// ignore without error any option it does not implement (RFC 793
// section 3.1).  Options with broken lengths truncate the walk; the
// options cleanly parsed before the offender are kept, which is what
// the BSD and Linux stacks do.
func (t *TCPCodec) decodeOptions(opts []byte, p *types.Packet) {
	if len(opts) > types.TCPOptLenMax {
		// the caller bounds the region; a longer one means the
		// header reference cannot be trusted
		p.TCP = nil
		return
	}

	var optCount uint8
	off := 0
	done := false
	experimentalFound := false
	obsoleteFound := false
	ttcpFound := false

	for off < len(opts) && optCount < types.TCPOptLenMax && !done {
		kind := opts[off]
		opt := &p.Options[optCount]
		opt.Code = kind

		var skip, code int
		switch kind {
		case types.TCPOptEOL:
			done = true
			opt.Len = 0
			opt.Data = nil
			skip = 1
			code = optOK
		case types.TCPOptNOP:
			opt.Len = 0
			opt.Data = nil
			skip = 1
			code = optOK
		case types.TCPOptMaxSeg:
			skip, code = optLenValidate(opts, off, types.TCPOLenMaxSeg, opt)
		case types.TCPOptSackOK:
			skip, code = optLenValidate(opts, off, types.TCPOLenSackOK, opt)
		case types.TCPOptWScale:
			skip, code = optLenValidate(opts, off, types.TCPOLenWScale, opt)
			if code == optOK && uint16(opt.Data[0]) > 14 {
				t.events.Emit(p, types.EventOptWScaleInvalid)
			}
		case types.TCPOptEcho, types.TCPOptEchoReply:
			// both use the same lengths
			obsoleteFound = true
			skip, code = optLenValidate(opts, off, types.TCPOLenEcho, opt)
		case types.TCPOptMD5Sig:
			// RFC 5925 obsoletes this option
			obsoleteFound = true
			skip, code = optLenValidate(opts, off, types.TCPOLenMD5Sig, opt)
		case types.TCPOptAuth:
			// Has to have at least 4 bytes - see RFC 5925, Section 2.2
			if off+1 < len(opts) && opts[off+1] < 4 {
				code = optBadLen
			} else {
				skip, code = optLenValidate(opts, off, variableLen, opt)
			}
		case types.TCPOptSack:
			skip, code = optLenValidate(opts, off, variableLen, opt)
			if code == optOK && opt.Data == nil {
				code = optBadLen
			}
		case types.TCPOptCCEcho, types.TCPOptCC, types.TCPOptCCNew:
			// all 3 use the same lengths / T/TCP
			if kind == types.TCPOptCCEcho {
				ttcpFound = true
			}
			skip, code = optLenValidate(opts, off, types.TCPOLenCC, opt)
		case types.TCPOptTimestamp:
			skip, code = optLenValidate(opts, off, types.TCPOLenTimestamp, opt)
		case types.TCPOptSkeeter, types.TCPOptBubba, types.TCPOptUnassigned:
			obsoleteFound = true
			skip, code = optLenValidate(opts, off, variableLen, opt)
		default:
			// TRAILER_CSUM, SCPS, SELNEGACK, RECORDBOUND,
			// CORRUPTION, PARTIAL_PERM, PARTIAL_SVC, ALTCSUM,
			// SNAP and anything unknown
			experimentalFound = true
			skip, code = optLenValidate(opts, off, variableLen, opt)
		}

		if code < 0 {
			if code == optBadLen {
				t.events.Emit(p, types.EventOptBadLen)
			} else {
				t.events.Emit(p, types.EventOptTruncated)
			}
			// keep the options found before this bad one
			p.OptionCount = optCount
			return
		}

		optCount++
		off += skip
	}

	p.OptionCount = optCount

	if experimentalFound {
		t.events.Emit(p, types.EventOptExperimental)
	} else if obsoleteFound {
		t.events.Emit(p, types.EventOptObsolete)
	} else if ttcpFound {
		t.events.Emit(p, types.EventOptTTCP)
	}
}
