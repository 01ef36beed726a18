package encoder

import "time"

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// BytesPerSecond is the size of one second of PCM16 mono audio.
const BytesPerSecond = SampleRate * Channels * BitsPerSample / 8

// PCMDuration returns the playback length of little-endian PCM16 mono data.
func PCMDuration(pcm []byte) time.Duration {
	return time.Duration(len(pcm)) * time.Second / BytesPerSecond
}

// EncodeFLAC compresses a complete PCM16 clip into a FLAC stream.
func EncodeFLAC(pcm []byte) ([]byte, error) {
	s, err := NewFlacStream()
	if err != nil {
		return nil, err
	}
	if _, err := s.Write(pcm); err != nil {
		return nil, err
	}
	if err := s.Close(); err != nil {
		return nil, err
	}
	return s.Bytes(), nil
}
