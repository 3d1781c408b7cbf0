package audio

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV wraps mono 16-bit PCM samples in a WAV container.
func EncodeWAV(samples []int16, sampleRate int) []byte {
	var buf bytes.Buffer

	dataSize := len(samples) * 2
	fileSize := 36 + dataSize

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, int32(fileSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, int32(16))
	binary.Write(&buf, binary.LittleEndian, int16(1))
	binary.Write(&buf, binary.LittleEndian, int16(1))
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, int16(2))
	binary.Write(&buf, binary.LittleEndian, int16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, int32(dataSize))
	binary.Write(&buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

// utterance collects frames between the first loud frame and a long enough
// run of quiet ones.
type utterance struct {
	threshold  int16
	maxSilence int
	maxSamples int

	samples []int16
	silent  int
	started bool
}

func newUtterance(sampleRate int) *utterance {
	return &utterance{
		threshold:  500,
		maxSilence: sampleRate,
		maxSamples: sampleRate * 10,
	}
}

// add appends one frame and reports whether the utterance is complete.
func (u *utterance) add(frame []int16) bool {
	quiet := isSilent(frame, u.threshold)
	if !u.started {
		if quiet {
			return false
		}
		u.started = true
	}

	u.samples = append(u.samples, frame...)
	if quiet {
		u.silent += len(frame)
	} else {
		u.silent = 0
	}

	return u.silent > u.maxSilence || len(u.samples) >= u.maxSamples
}

func isSilent(frame []int16, threshold int16) bool {
	for _, sample := range frame {
		if sample > threshold || sample < -threshold {
			return false
		}
	}
	return true
}
