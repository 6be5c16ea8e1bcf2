package codec

import "encoding/binary"

// encodeL16 packs linear PCM samples as network-byte-order 16-bit words,
// per RFC 3551 §4.5.11.
func encodeL16(pcm []int16) ([]byte, error) {
	b := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		binary.BigEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b, nil
}

// decodeL16 unpacks network-byte-order 16-bit PCM samples.
func decodeL16(payload []byte) ([]int16, error) {
	pcm := make([]int16, len(payload)/2)
	for i := range pcm {
		pcm[i] = int16(binary.BigEndian.Uint16(payload[i*2:]))
	}
	return pcm, nil
}
