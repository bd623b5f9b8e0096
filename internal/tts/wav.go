package tts

import (
	"bytes"
	"encoding/binary"
)

// PCMToWAV 给裸PCM数据加44字节RIFF头。
// RIFF头中的文件大小字段为 36+数据长度（不含RIFF标识和大小字段本身）。
func PCMToWAV(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(pcm)
	return buf.Bytes()
}

// DetectAudioFormat 识别音频数据格式，返回 "wav"、"mp3" 或 ""
func DetectAudioFormat(data []byte) string {
	if len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")) {
		return "wav"
	}
	if len(data) >= 3 && bytes.Equal(data[:3], []byte("ID3")) {
		return "mp3"
	}
	if len(data) >= 2 {
		switch {
		case data[0] == 0xFF && data[1] == 0xFB,
			data[0] == 0xFF && data[1] == 0xF3,
			data[0] == 0xFF && data[1] == 0xF2:
			return "mp3"
		}
	}
	return ""
}
