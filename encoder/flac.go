package encoder

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// FlacStream encodes PCM16 mono bytes into an in-memory FLAC stream. Input
// is cut into fixed BlockSize frames; the remainder goes out on Close.
type FlacStream struct {
	buf     bytes.Buffer
	enc     *flac.Encoder
	pending []int32
	carry   []byte
	samples uint64
	closed  bool
}

func NewFlacStream() (*FlacStream, error) {
	s := &FlacStream{pending: make([]int32, 0, BlockSize)}
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
	}
	enc, err := flac.NewEncoder(&s.buf, info)
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)
	s.enc = enc
	return s, nil
}

// Write appends little-endian PCM16 audio. An odd trailing byte is held
// until the next call.
func (s *FlacStream) Write(pcm []byte) (int, error) {
	if s.closed {
		return 0, fmt.Errorf("flac stream closed")
	}
	n := len(pcm)
	if len(s.carry) > 0 {
		pcm = append(s.carry, pcm...)
		s.carry = nil
	}
	for len(pcm) >= 2 {
		s.pending = append(s.pending, int32(int16(binary.LittleEndian.Uint16(pcm))))
		pcm = pcm[2:]
		if len(s.pending) == BlockSize {
			if err := s.flush(); err != nil {
				return 0, err
			}
		}
	}
	if len(pcm) == 1 {
		s.carry = []byte{pcm[0]}
	}
	return n, nil
}

func (s *FlacStream) flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(s.pending)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   s.pending,
			NSamples:  len(s.pending),
		}},
	}
	if err := s.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	s.samples += uint64(len(s.pending))
	s.pending = make([]int32, 0, BlockSize)
	return nil
}

// Close writes the final partial block and finishes the stream.
func (s *FlacStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.flush(); err != nil {
		return err
	}
	return s.enc.Close()
}

func (s *FlacStream) Bytes() []byte {
	return s.buf.Bytes()
}

// Samples reports how many samples have been written out as frames.
func (s *FlacStream) Samples() uint64 {
	return s.samples
}
