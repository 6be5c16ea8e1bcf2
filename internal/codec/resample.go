package codec

// Resample performs linear interpolation resampling of a PCM buffer from
// srcRate to dstRate. Used when two call legs negotiate different clock
// rates (e.g. an 8 kHz TDM leg bridged to a 48 kHz Opus leg).
func Resample(pcm []int16, srcRate, dstRate int) []int16 {
	if srcRate == dstRate || len(pcm) == 0 {
		out := make([]int16, len(pcm))
		copy(out, pcm)
		return out
	}

	outLen := len(pcm) * dstRate / srcRate
	if outLen == 0 {
		return nil
	}
	out := make([]int16, outLen)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range out {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)

		if idx >= len(pcm)-1 {
			out[i] = pcm[len(pcm)-1]
			continue
		}
		a, b := float64(pcm[idx]), float64(pcm[idx+1])
		out[i] = int16(a + (b-a)*frac)
	}
	return out
}
