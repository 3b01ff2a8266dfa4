package audio

// fullScale24 is 2^23, the magnitude of the most negative 24-bit sample.
const fullScale24 = 8388608.0

// ConvertI2S converts 24-bit samples left-justified in 32-bit words (the
// layout of I2S MEMS microphones and of 32-bit PCM capture) to [-1, 1).
// dst must be at least as long as raw.
func ConvertI2S(raw []int32, dst []float64) {
	for i, s := range raw {
		dst[i] = float64(s>>8) / fullScale24
	}
}
