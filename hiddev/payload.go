package hiddev

// FrameLen is the fixed size of an output report.
const FrameLen = 14

// vibeIntensityOffset is where the single controllable byte sits.
const vibeIntensityOffset = 8

// VibeFrame builds the vendor-defined vibe output report. The surrounding
// bytes are an opaque protocol constant and must not be altered.
func VibeFrame(intensity uint8) []byte {
	return []byte{
		0x02, 0x07, 0xBF, 0x00, 0x00, 0x03, 0x49, 0x00,
		intensity,
		0x00, 0x00, 0x00, 0x00, 0x00,
	}
}
