package tts

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPCMToWAVHeader(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	data := PCMToWAV(pcm, 24000, 1, 16)

	assert.Len(t, data, 44+len(pcm))
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(data[4:8]))
	assert.Equal(t, "WAVE", string(data[8:12]))

	assert.Equal(t, "fmt ", string(data[12:16]))
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(data[16:20]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[20:22]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[22:24]))
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(data[24:28]))
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(data[28:32]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(data[32:34]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(data[34:36]))

	assert.Equal(t, "data", string(data[36:40]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(data[40:44]))
	assert.Equal(t, pcm, data[44:])
}

func TestPCMToWAVStereo(t *testing.T) {
	data := PCMToWAV(make([]byte, 16), 16000, 2, 16)

	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(data[22:24]))
	// byteRate = 16000 * 2 * 16 / 8
	assert.Equal(t, uint32(64000), binary.LittleEndian.Uint32(data[28:32]))
	assert.Equal(t, uint16(4), binary.LittleEndian.Uint16(data[32:34]))
}

func TestDetectAudioFormat(t *testing.T) {
	wav := PCMToWAV([]byte{0x00, 0x00}, 24000, 1, 16)
	assert.Equal(t, "wav", DetectAudioFormat(wav))

	assert.Equal(t, "mp3", DetectAudioFormat([]byte("ID3\x04\x00\x00\x00\x00\x00\x00")))
	assert.Equal(t, "mp3", DetectAudioFormat([]byte{0xFF, 0xFB, 0x90, 0x00}))
	assert.Equal(t, "mp3", DetectAudioFormat([]byte{0xFF, 0xF3, 0x90, 0x00}))
	assert.Equal(t, "mp3", DetectAudioFormat([]byte{0xFF, 0xF2, 0x90, 0x00}))

	assert.Equal(t, "", DetectAudioFormat([]byte("OggS")))
	assert.Equal(t, "", DetectAudioFormat([]byte{0xFF}))
	assert.Equal(t, "", DetectAudioFormat(nil))
}
