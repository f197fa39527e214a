// Package decode defines the Demuxer/Decoder seam a PlaybackWorker drives:
// parsing a container into addressable encoded packets, and turning those
// packets into decoded video frames. The reference implementation here
// demuxes a small length-prefixed raw-frame container (used by tests and
// any host that pre-decodes to raw planes); a real VP8/VP9/H.264 binding
// is a seam a host wires in behind the same interfaces — spec.md treats
// codec support as a build/packaging concern outside the core.
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrBadContainer is returned when the container header or a packet
// header fails to parse.
var ErrBadContainer = errors.New("decode: malformed container")

// Packet is one encoded access unit addressable by presentation time.
type Packet struct {
	PTSUs      int64
	DurationUs int64
	Keyframe   bool
	Data       []byte
}

// Demuxer parses a container and exposes packets in presentation order,
// plus the decoder configuration needed to interpret them.
type Demuxer interface {
	// Config returns the coded dimensions and duration probed at Open.
	Config() Config
	// NextPacket returns the next packet in the stream, or io.EOF.
	NextPacket() (Packet, error)
	// SeekKeyframe repositions the read cursor to the keyframe at or
	// before tUs, returning its PTS. Used by PlaybackWorker.Seek.
	SeekKeyframe(tUs int64) (int64, error)
	Close() error
}

// Config is the decoder configuration resolved at load time: coded frame
// dimensions and the probed stream duration.
type Config struct {
	Width, Height int
	DurationUs    int64
}

// containerHeader is the fixed-size header at the start of the container:
// magic, width, height, duration (all uint32/uint64 big-endian).
const (
	magic        = 0x57454156 // "WEAV"
	headerSize   = 20
	packetHeader = 17 // pts(8) + dur(8) + keyframe(1)
)

// frameDemuxer is the reference Demuxer implementation over an in-memory
// byte slice (the full stem blob, since PlaybackWorker.Load receives
// bytes, not a stream).
type frameDemuxer struct {
	data   []byte
	pos    int
	cfg    Config
	starts []int // byte offset of each packet header, for SeekKeyframe
}

// Open parses the container header from data and returns a Demuxer
// positioned at the first packet. Returns ErrBadContainer if the magic
// number or header length don't match.
func Open(data []byte) (Demuxer, error) {
	if len(data) < headerSize {
		return nil, ErrBadContainer
	}
	if binary.BigEndian.Uint32(data[0:4]) != magic {
		return nil, ErrBadContainer
	}
	width := int(binary.BigEndian.Uint32(data[4:8]))
	height := int(binary.BigEndian.Uint32(data[8:12]))
	duration := int64(binary.BigEndian.Uint64(data[12:20]))

	d := &frameDemuxer{
		data: data,
		pos:  headerSize,
		cfg:  Config{Width: width, Height: height, DurationUs: duration},
	}
	if err := d.index(); err != nil {
		return nil, err
	}
	return d, nil
}

// index walks the container once to record each packet's byte offset, so
// SeekKeyframe doesn't need to re-scan from the start.
func (d *frameDemuxer) index() error {
	pos := headerSize
	for pos < len(d.data) {
		if pos+packetHeader+4 > len(d.data) {
			return fmt.Errorf("%w: truncated packet header", ErrBadContainer)
		}
		d.starts = append(d.starts, pos)
		dataLen := int(binary.BigEndian.Uint32(d.data[pos+packetHeader : pos+packetHeader+4]))
		pos += packetHeader + 4 + dataLen
	}
	if pos != len(d.data) {
		return fmt.Errorf("%w: trailing bytes", ErrBadContainer)
	}
	return nil
}

func (d *frameDemuxer) Config() Config {
	return d.cfg
}

func (d *frameDemuxer) NextPacket() (Packet, error) {
	if d.pos >= len(d.data) {
		return Packet{}, io.EOF
	}
	return d.readAt(d.pos)
}

func (d *frameDemuxer) readAt(pos int) (Packet, error) {
	if pos+packetHeader+4 > len(d.data) {
		return Packet{}, ErrBadContainer
	}
	pts := int64(binary.BigEndian.Uint64(d.data[pos : pos+8]))
	dur := int64(binary.BigEndian.Uint64(d.data[pos+8 : pos+16]))
	keyframe := d.data[pos+16] != 0
	dataLen := int(binary.BigEndian.Uint32(d.data[pos+packetHeader : pos+packetHeader+4]))
	start := pos + packetHeader + 4
	end := start + dataLen
	if end > len(d.data) {
		return Packet{}, ErrBadContainer
	}

	d.pos = end
	return Packet{PTSUs: pts, DurationUs: dur, Keyframe: keyframe, Data: d.data[start:end]}, nil
}

// SeekKeyframe finds the latest indexed packet that is a keyframe with
// PTS <= tUs, repositions the cursor there, and returns its PTS. If no
// such keyframe exists, it repositions to the first keyframe in the
// stream.
func (d *frameDemuxer) SeekKeyframe(tUs int64) (int64, error) {
	best := -1
	fallback := -1
	for _, off := range d.starts {
		pts := int64(binary.BigEndian.Uint64(d.data[off : off+8]))
		keyframe := d.data[off+16] != 0
		if !keyframe {
			continue
		}
		if fallback == -1 {
			fallback = off
		}
		if pts <= tUs {
			best = off
		}
	}
	if best == -1 {
		best = fallback
	}
	if best == -1 {
		return 0, ErrBadContainer
	}
	d.pos = best
	return int64(binary.BigEndian.Uint64(d.data[best : best+8])), nil
}

func (d *frameDemuxer) Close() error {
	d.data = nil
	d.starts = nil
	return nil
}
