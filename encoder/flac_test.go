package encoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/mewkiz/flac"
)

func tonePCM(n int) []byte {
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(i%1000)))
	}
	return pcm
}

// decode returns every sample in a FLAC stream.
func decode(t *testing.T, data []byte) []int32 {
	t.Helper()
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("flac.New: %v", err)
	}
	defer stream.Close()
	var out []int32
	for {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("ParseNext: %v", err)
		}
		out = append(out, f.Subframes[0].Samples...)
	}
}

func TestFlacStreamEmpty(t *testing.T) {
	s, err := NewFlacStream()
	if err != nil {
		t.Fatalf("NewFlacStream: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close on empty stream: %v", err)
	}
	if s.Samples() != 0 {
		t.Errorf("Samples = %d, want 0", s.Samples())
	}
	if len(s.Bytes()) == 0 {
		t.Error("expected non-empty FLAC output (at least header)")
	}
}

func TestFlacStreamOddWrites(t *testing.T) {
	pcm := tonePCM(BlockSize + BlockSize/4)
	s, err := NewFlacStream()
	if err != nil {
		t.Fatalf("NewFlacStream: %v", err)
	}
	// split on an odd offset so one sample straddles two writes
	for _, chunk := range [][]byte{pcm[:1001], pcm[1001:]} {
		if _, err := s.Write(chunk); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if s.Samples() != BlockSize {
		t.Errorf("Samples before Close = %d, want %d", s.Samples(), BlockSize)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.Samples() != uint64(len(pcm)/2) {
		t.Errorf("Samples = %d, want %d", s.Samples(), len(pcm)/2)
	}
	if _, err := s.Write(pcm); err == nil {
		t.Error("Write after Close should fail")
	}

	got := decode(t, s.Bytes())
	if len(got) != len(pcm)/2 {
		t.Fatalf("decoded %d samples, want %d", len(got), len(pcm)/2)
	}
	for i, v := range got {
		if want := int32(i % 1000); v != want {
			t.Fatalf("sample %d = %d, want %d", i, v, want)
		}
	}
}

func TestEncodeFLAC(t *testing.T) {
	pcm := tonePCM(BlockSize*2 + BlockSize/2)
	data, err := EncodeFLAC(pcm)
	if err != nil {
		t.Fatalf("EncodeFLAC: %v", err)
	}
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		t.Fatal("output does not start with FLAC magic")
	}
	if n := len(decode(t, data)); n != len(pcm)/2 {
		t.Errorf("decoded %d samples, want %d", n, len(pcm)/2)
	}
}

func TestPCMDuration(t *testing.T) {
	if got := PCMDuration(make([]byte, BytesPerSecond/2)); got != 500*time.Millisecond {
		t.Errorf("PCMDuration = %v, want 500ms", got)
	}
}
