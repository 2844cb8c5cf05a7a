// Package tts resolves a MediaRequest into playable PCM audio: either a
// stored MP3 blob decoded to PCM, or synthesized speech from Google
// Cloud Text-to-Speech. Grounded on
// internal/audio/recorder/internal/default_audio_recorder.go's WAV framing
// and internal/transformer/google/google.go's voice/audio-encoding
// configuration.
package tts

import (
	"bytes"
	"encoding/binary"
)

const pcmFormatTag = 1 // WAV PCM format tag

// EncodeWAV wraps raw LINEAR16 mono PCM in a WAV container, mirroring
// createWAVFile's RIFF/fmt/data chunk layout.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	const channels = 1
	const bytesPerSample = 2
	bps := sampleRate * channels * bytesPerSample

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(pcmFormatTag))
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(bps))
	binary.Write(&buf, binary.LittleEndian, uint16(bytesPerSample))
	binary.Write(&buf, binary.LittleEndian, uint16(bytesPerSample*8))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

// StripWAVHeader drops the leading 44-byte canonical WAV header, leaving
// raw PCM. Mirrors text_to_speech.py's "Skip the WAV header (first 44
// bytes) to get raw PCM data": Google TTS's LINEAR16 encoding returns a
// WAV container even though only the PCM payload is needed downstream.
func StripWAVHeader(wav []byte) []byte {
	if len(wav) <= 44 {
		return nil
	}
	return wav[44:]
}

// DurationMs computes nominal LINEAR16 playback duration from a PCM byte
// count, as text_to_speech.py does for its returned duration_ms.
func DurationMs(pcmLen, sampleRate int) int64 {
	const bytesPerSample = 2
	if sampleRate == 0 {
		return 0
	}
	return int64(pcmLen) * 1000 / int64(bytesPerSample*sampleRate)
}
