package dictation

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"chrisper/pkg/config"
)

const (
	channelCount  = 1
	maxReadErrors = 3
)

// AudioSource produces LINEAR16 little-endian mono chunks. The returned
// channel is closed once capture has stopped, which happens when ctx is
// done.
type AudioSource interface {
	Start(ctx context.Context) (<-chan []byte, error)
}

// Microphone captures the default input device through PortAudio.
// portaudio.Initialize must have been called.
type Microphone struct {
	cfg config.AudioConfig
	log zerolog.Logger
}

// NewMicrophone returns a Microphone capturing with cfg.
func NewMicrophone(cfg config.AudioConfig, log zerolog.Logger) *Microphone {
	return &Microphone{cfg: cfg, log: log}
}

// Start opens the default input device and streams chunks until ctx is
// done or the device stops delivering audio.
func (m *Microphone) Start(ctx context.Context) (<-chan []byte, error) {
	frames := make([]int16, m.cfg.FramesPerChunk())

	paStream, err := portaudio.OpenDefaultStream(channelCount, 0, float64(m.cfg.SampleRate), len(frames), frames)
	if err != nil {
		return nil, fmt.Errorf("failed to open PA stream: %w", err)
	}
	if err := paStream.Start(); err != nil {
		paStream.Close()
		return nil, fmt.Errorf("failed to start PA stream: %w", err)
	}

	out := make(chan []byte, 8)
	go func() {
		defer close(out)
		defer func() {
			paStream.Stop()
			paStream.Close()
		}()

		if err := pump(ctx, paStream.Read, frames, m.cfg.Gain, out); err != nil {
			m.log.Error().Err(err).Msg("portaudio capture stopped")
		}
	}()
	return out, nil
}

// pump reads into frames and forwards each chunk until ctx is done.
// Overflows are tolerated; any other read error drops the chunk, and
// maxReadErrors of them in a row end capture.
func pump(ctx context.Context, read func() error, frames []int16, gain float64, out chan<- []byte) error {
	failures := 0
	for ctx.Err() == nil {
		if err := read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
			failures++
			if failures >= maxReadErrors {
				return fmt.Errorf("read audio: %w", err)
			}
			continue
		}
		failures = 0
		select {
		case out <- encodePCM(frames, gain):
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

// encodePCM applies gain with clipping and packs samples little-endian.
func encodePCM(samples []int16, gain float64) []byte {
	buf := make([]byte, len(samples)*2)
	for i, sample := range samples {
		boosted := float64(sample) * gain
		if boosted > 32767 {
			boosted = 32767
		} else if boosted < -32768 {
			boosted = -32768
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(boosted)))
	}
	return buf
}
