package depth

// Category returns a human-readable distance band for announcing the
// selected object.
func Category(meters float64) string {
	if meters <= 0 {
		return "unknown"
	}
	if meters < 0.5 {
		return "very close"
	}
	if meters < 1.0 {
		return "close"
	}
	if meters < 2.0 {
		return "nearby"
	}
	if meters < 3.0 {
		return "moderate"
	}
	return "far"
}
