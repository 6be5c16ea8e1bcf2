package codec

import "github.com/zaf/g711"

// g711 encodes and decodes against raw little-endian 16-bit PCM bytes, not
// []int16, so every call here converts at the boundary the way the
// teacher's PCMToPCMU does.

// encodePCMU converts linear PCM to G.711 µ-law.
func encodePCMU(pcm []int16) ([]byte, error) {
	return g711.EncodeUlaw(pcmToBytes(pcm)), nil
}

// decodePCMU converts G.711 µ-law to linear PCM.
func decodePCMU(payload []byte) ([]int16, error) {
	return bytesToPCM(g711.DecodeUlaw(payload)), nil
}

// encodePCMA converts linear PCM to G.711 A-law.
func encodePCMA(pcm []int16) ([]byte, error) {
	return g711.EncodeAlaw(pcmToBytes(pcm)), nil
}

// decodePCMA converts G.711 A-law to linear PCM.
func decodePCMA(payload []byte) ([]int16, error) {
	return bytesToPCM(g711.DecodeAlaw(payload)), nil
}

// pcmToBytes packs linear PCM samples into 16-bit little-endian bytes.
func pcmToBytes(pcm []int16) []byte {
	out := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		out[i*2] = byte(s & 0xFF)
		out[i*2+1] = byte((s >> 8) & 0xFF)
	}
	return out
}

// bytesToPCM unpacks 16-bit little-endian bytes into linear PCM samples.
func bytesToPCM(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return out
}
