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

// Package codec defines the protocol codec capability set and the
// registry that dispatches raw layer bytes to codecs by protocol id.
package codec

import (
	"fmt"

	"github.com/david415/HoneyCodec/types"
)

// EncodeType selects which response segment an encoder synthesizes.
type EncodeType int

const (
	EncTypeTCPRst EncodeType = iota
	EncTypeTCPFin
	EncTypeTCPPush
)

// EncodeFlags steer response encoding.
type EncodeFlags uint32

const (
	// EncFlagRev swaps direction: the response travels back toward
	// the source of the packet being answered.
	EncFlagRev EncodeFlags = 1 << 0
	// EncFlagSeq makes the encoder add EncState.SeqValue to the
	// synthesized sequence number.
	EncFlagSeq EncodeFlags = 1 << 1
)

// Forward reports whether encoding keeps the original direction.
func (f EncodeFlags) Forward() bool {
	return f&EncFlagRev == 0
}

// EncState carries everything an encoder needs to synthesize a
// response segment from a source packet.
type EncState struct {
	Packet   *types.Packet
	Type     EncodeType
	Flags    EncodeFlags
	SeqValue int32
	Payload  []byte

	// Proto is recorded by the transport codec so outer layers can
	// recompute their own checksums.
	Proto uint8
}

// InterfaceMode says whether the sensor sits on the data path.
type InterfaceMode int

const (
	ModePassive InterfaceMode = iota
	ModeInline
)

// DAQ exposes the data-acquisition interface mode for the handle a
// packet arrived on; encoders consult it for sequence arithmetic.
type DAQ interface {
	InterfaceMode(p *types.Packet) InterfaceMode
}

// Policy is the decoder's window onto sensor configuration.
type Policy interface {
	InlineMode() bool
	TCPChecksums() bool
	TCPChecksumDrops() bool
}

// Collaborators bundles the injected dependencies handed to codec
// constructors.  Tests substitute capturing implementations.
type Collaborators struct {
	Events types.EventSink
	Policy Policy
	DAQ    DAQ
	Active types.ActiveResponse
}

// Codec is the capability set every protocol codec exposes.
type Codec interface {
	Name() string
	// GetProtocolIds lists the IP protocol numbers this codec decodes.
	GetProtocolIds() []uint8
	// Decode validates the layer at the front of raw and fills p.
	// It returns the number of bytes the layer consumed and whether
	// decoding succeeded.  On failure the packet's layer reference
	// is cleared and lyrLen must not be trusted.
	Decode(raw []byte, p *types.Packet) (lyrLen int, ok bool)
	// Encode synthesizes a response segment into out from the
	// original layer bytes rawIn.
	Encode(enc *EncState, out *Buffer, rawIn []byte) bool
	// Update recomputes derived fields (checksums) after another
	// stage has edited the payload; length accumulates the bytes
	// covered so far.
	Update(p *types.Packet, lyr *types.Layer, length *int) bool
	// Format fixes up a cloned packet's layer, swapping direction
	// when flags ask for it.
	Format(flags EncodeFlags, p *types.Packet, c *types.Packet, lyr *types.Layer)
}

// API describes one registered codec: its constructor, its rule
// catalogue, and its process-wide lifecycle hooks.
type API struct {
	Name  string
	New   func(c Collaborators) Codec
	PInit func() error
	PTerm func()
	// Rules maps each event the codec can raise to its textual
	// description.
	Rules map[types.EventID]string
}

var codecAPIs = map[string]*API{}

// RegisterCodec makes a codec available by the provided name.
// If RegisterCodec is called twice with the same name or if api is
// nil, it panics.
func RegisterCodec(api *API) {
	if api == nil || api.New == nil {
		panic("codec: RegisterCodec called with nil codec api")
	}
	if _, dup := codecAPIs[api.Name]; dup {
		panic("codec: RegisterCodec called twice for codec " + api.Name)
	}
	codecAPIs[api.Name] = api
}

// GInit runs every registered codec's PInit hook.  It is called once
// per process before any codec table is built; workers share the
// state the hooks bind.
func GInit() error {
	for name, api := range codecAPIs {
		if api.PInit != nil {
			if err := api.PInit(); err != nil {
				return fmt.Errorf("codec: %s pinit: %s", name, err)
			}
		}
	}
	return nil
}

// GTerm runs every registered codec's PTerm hook.
func GTerm() {
	for _, api := range codecAPIs {
		if api.PTerm != nil {
			api.PTerm()
		}
	}
}

// NewCodecTable constructs every registered codec with the given
// collaborators and returns them indexed by protocol id.  Each worker
// builds its own table so collaborators never need locking.
func NewCodecTable(c Collaborators) (map[uint8]Codec, error) {
	table := map[uint8]Codec{}
	for _, api := range codecAPIs {
		instance := api.New(c)
		for _, proto := range instance.GetProtocolIds() {
			if _, dup := table[proto]; dup {
				return nil, fmt.Errorf("codec: duplicate codec for protocol %d", proto)
			}
			table[proto] = instance
		}
	}
	return table, nil
}

// RuleText returns the catalogue description for an event id, or the
// event name when no codec claims it.
func RuleText(id types.EventID) string {
	for _, api := range codecAPIs {
		if text, ok := api.Rules[id]; ok {
			return text
		}
	}
	return id.String()
}

// Buffer is a caller-supplied response-segment assembly area.  Layers
// are written back to front the way they nest on the wire: Grow
// reserves space at the current front and fails rather than
// reallocating when the reservation does not fit.
type Buffer struct {
	data []byte
	off  int
}

// NewBuffer returns a Buffer with the given fixed capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		data: make([]byte, capacity),
		off:  capacity,
	}
}

// Grow reserves n more bytes at the front of the used region.  It
// returns false and leaves the buffer unchanged when the reservation
// would overflow capacity.
func (b *Buffer) Grow(n int) bool {
	if n < 0 || n > b.off {
		return false
	}
	b.off -= n
	return true
}

// Base returns the used region, most recently reserved bytes first.
func (b *Buffer) Base() []byte {
	return b.data[b.off:]
}

// Len returns the number of used bytes.
func (b *Buffer) Len() int {
	return len(b.data) - b.off
}
