// Package audio prepares recorded audio payloads for sending.
//
// Recording itself is user paced and happens before the send protocol: the
// client accepts an already-encoded WAV file (the recorder encodes microphone
// input to WAV before handing it over) and validates it just enough to reject
// obviously wrong files before any network traffic.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// MaxPayloadBytes bounds a single recording. Interview answers run a couple
// of minutes of 16-bit PCM at most; 25 MiB is generous.
const MaxPayloadBytes = 25 << 20

// WAV container markers.
var (
	riffMagic = []byte("RIFF")
	waveMagic = []byte("WAVE")
)

// Sentinel errors for payload validation.
var (
	ErrEmptyPayload = errors.New("empty audio payload")
	ErrNotWAV       = errors.New("not a WAV file")
	ErrTooLarge     = errors.New("audio payload too large")
)

// Payload is a recorded, encoded audio resource ready for upload.
type Payload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Validate checks the payload is a plausible WAV recording within bounds.
func (p Payload) Validate() error {
	if len(p.Data) == 0 {
		return ErrEmptyPayload
	}
	if len(p.Data) > MaxPayloadBytes {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(p.Data))
	}
	if len(p.Data) < 12 || !bytes.Equal(p.Data[0:4], riffMagic) || !bytes.Equal(p.Data[8:12], waveMagic) {
		return ErrNotWAV
	}
	return nil
}

// LoadWAV reads a WAV file from disk and returns the payload consumed by
// the send-audio operation.
func LoadWAV(path string) (Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, fmt.Errorf("read audio file: %w", err)
	}
	p := Payload{
		Data:        data,
		Filename:    filepath.Base(path),
		ContentType: "audio/wav",
	}
	if err := p.Validate(); err != nil {
		return Payload{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
