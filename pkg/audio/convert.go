package audio

// Conversion helpers between the pipeline's normalized float32 samples and
// the 16-bit little-endian PCM used by capture hardware and speech APIs.

// BytesToFloat32 converts little-endian int16 PCM bytes to normalized
// float32 samples. A trailing odd byte is ignored.
func BytesToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/2)
	for i := range out {
		s := int16(b[i*2]) | int16(b[i*2+1])<<8
		out[i] = float32(s) / 32768.0
	}
	return out
}

// Float32ToBytes converts normalized float32 samples to little-endian int16
// PCM bytes, clamping out-of-range values.
func Float32ToBytes(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		s := Float32ToInt16(v)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// Float32ToInt16 converts one normalized sample to int16, clamping to the
// representable range.
func Float32ToInt16(v float32) int16 {
	if v > 1.0 {
		v = 1.0
	} else if v < -1.0 {
		v = -1.0
	}
	return int16(v * 32767.0)
}

// Int16ToFloat32 converts a slice of int16 PCM samples to normalized float32.
func Int16ToFloat32(pcm []int16) []float32 {
	out := make([]float32, len(pcm))
	for i, s := range pcm {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// ResampleMono resamples mono float32 PCM from one rate to another using
// linear interpolation. Returns the input unchanged when the rates match.
// Quality is adequate for speech; this is not a general-purpose resampler.
func ResampleMono(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || len(samples) == 0 {
		return samples
	}
	ratio := float64(fromRate) / float64(toRate)
	outLen := int(float64(len(samples)) / ratio)
	if outLen == 0 {
		return nil
	}
	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}
	return out
}

// StereoToMono downmixes interleaved stereo float32 PCM to mono by averaging
// the channel pair. An odd trailing sample is dropped.
func StereoToMono(samples []float32) []float32 {
	out := make([]float32, len(samples)/2)
	for i := range out {
		out[i] = (samples[i*2] + samples[i*2+1]) / 2
	}
	return out
}
