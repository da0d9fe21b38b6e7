// Package iqpack implements the I/Q sample packer (C9): the three
// output quantization formats consuming the NCO's i16 sample stream.
// Grounded on original_source/src/process.rs's three format branches
// in its main loop, expressed here as a writer abstraction following
// the teacher's buffered-writer convention in FengXuebin-gnssgo's
// rinex-output code (bufio.Writer wrapping an os.File, flushed once
// at the end of a run).
package iqpack

import (
	"bufio"
	"encoding/binary"
	"io"
)

// Format selects the output sample quantization.
type Format int

const (
	Format16Bit Format = iota
	Format8Bit
	Format1Bit
)

// Writer buffers and packs i16 I/Q sample pairs into one of the three
// on-wire formats. All writes are buffered; call Flush to
// guarantee samples reach the underlying writer.
type Writer struct {
	format Format
	w      *bufio.Writer

	// bitBuf/bitCount accumulate MSB-first bits for Format1Bit until a
	// full byte is ready.
	bitBuf   byte
	bitCount uint
}

// NewWriter wraps w for packing in the given format.
func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{format: format, w: bufio.NewWriter(w)}
}

// WriteSample packs one I/Q sample pair per spec.md §4.9.
func (p *Writer) WriteSample(i, q int16) error {
	switch p.format {
	case Format16Bit:
		return p.write16(i, q)
	case Format8Bit:
		return p.write8(i, q)
	case Format1Bit:
		return p.write1(i, q)
	default:
		return p.write16(i, q)
	}
}

func (p *Writer) write16(i, q int16) error {
	var buf [4]byte
	binary.LittleEndian.PutUint16(buf[0:2], uint16(i))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(q))
	_, err := p.w.Write(buf[:])
	return err
}

func (p *Writer) write8(i, q int16) error {
	buf := [2]byte{byte(int8(i >> 4)), byte(int8(q >> 4))}
	_, err := p.w.Write(buf[:])
	return err
}

func (p *Writer) write1(i, q int16) error {
	for _, sample := range [2]int16{i, q} {
		bit := byte(0)
		if sample > 0 {
			bit = 1
		}
		p.bitBuf = (p.bitBuf << 1) | bit
		p.bitCount++
		if p.bitCount == 8 {
			if _, err := p.w.Write([]byte{p.bitBuf}); err != nil {
				return err
			}
			p.bitBuf = 0
			p.bitCount = 0
		}
	}
	return nil
}

// Flush writes any partially-filled 1-bit byte (zero-padded in the
// low bits) and flushes the underlying buffered writer.
func (p *Writer) Flush() error {
	if p.format == Format1Bit && p.bitCount > 0 {
		p.bitBuf <<= 8 - p.bitCount
		if _, err := p.w.Write([]byte{p.bitBuf}); err != nil {
			return err
		}
		p.bitBuf = 0
		p.bitCount = 0
	}
	return p.w.Flush()
}
