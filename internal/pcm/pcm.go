// Package pcm converts captured float32 audio into the little-endian Int16
// wire format the streaming endpoint expects.
package pcm

import "encoding/binary"

// Sample converts one float32 sample in [-1.0, 1.0] to int16. Out-of-range
// input is clamped before scaling, so -1.0 maps to -32767 rather than
// -32768; the streaming contract uses that asymmetric range. The fractional
// product is truncated toward zero.
func Sample(f float32) int16 {
	if f > 1.0 {
		f = 1.0
	}
	if f < -1.0 {
		f = -1.0
	}
	return int16(f * 32767)
}

// Bytes encodes a frame of float32 samples as little-endian int16 pairs,
// two bytes per sample in capture order.
func Bytes(frame []float32) []byte {
	out := make([]byte, len(frame)*2)
	for i, f := range frame {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(Sample(f)))
	}
	return out
}
