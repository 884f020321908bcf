// Copyright 2025 ViralVibe Studio Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"encoding/binary"
	"fmt"
)

// DecodePCM16 interprets raw little-endian 16-bit PCM bytes, the format the
// speech model streams, as an AudioAsset. An odd byte count means the stream
// was cut mid-sample.
func DecodePCM16(data []byte, sampleRate, channelCount int) (*AudioAsset, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("pcm data has odd length %d, truncated sample", len(data))
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return &AudioAsset{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		RawSamples:   samples,
	}, nil
}

// EncodeWAV wraps the asset's PCM samples in a RIFF/WAVE container so ffmpeg
// and media players can consume them. Standard 44-byte header, PCM format
// tag, 16 bits per sample.
func EncodeWAV(a *AudioAsset) []byte {
	dataSize := len(a.RawSamples) * 2
	blockAlign := a.ChannelCount * 2
	byteRate := a.SampleRate * blockAlign

	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(a.ChannelCount))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(a.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range a.RawSamples {
		binary.LittleEndian.PutUint16(buf[44+i*2:], uint16(s))
	}
	return buf
}
