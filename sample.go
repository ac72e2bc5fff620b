package cauldron

import "github.com/zaf/g711"

// Sample is the set of numeric output types the iterator can produce.
// Integer targets are unsigned 8-bit or signed 16/32-bit; float targets are
// IEEE 754 32/64-bit.
type Sample interface {
	~uint8 | ~int16 | ~int32 | ~float32 | ~float64
}

// narrowSigned checks that value fits in a two's-complement field of the
// given bit width, returning a ParseError ("Too Wide…") on overflow.
// Grounded on original_source/src/utils.rs's narrow_to_i8/i16/i24.
func narrowSigned(value int64, bitWidth int) (int64, error) {
	min := -(int64(1) << (bitWidth - 1))
	max := (int64(1) << (bitWidth - 1)) - 1
	if value < min || value > max {
		return 0, parseError("too wide to cast to i%d: %d", bitWidth, value)
	}
	return value, nil
}

// readPCM reads one uncompressed PCM sample of the given codec directly
// into T, failing Unsupported when T cannot represent the codec.
func readPCM[T Sample](br *byteReader, codec CodecType) (T, error) {
	var zero T
	switch codec {
	case CodecPCMU8:
		v, err := br.readU8()
		if err != nil {
			return zero, err
		}
		return widenUnsigned[T](uint64(v))
	case CodecPCMS16LE:
		v, err := br.readI16LE()
		if err != nil {
			return zero, err
		}
		return widenSigned[T](int64(v), 16)
	case CodecPCMS24LE:
		v, err := br.readI24LE()
		if err != nil {
			return zero, err
		}
		return widenSigned[T](int64(v), 24)
	case CodecPCMS32LE:
		v, err := br.readU32LE()
		if err != nil {
			return zero, err
		}
		return widenSigned[T](int64(int32(v)), 32)
	case CodecPCMF32LE:
		v, err := br.readF32LE()
		if err != nil {
			return zero, err
		}
		return widenFloat[T](float64(v))
	case CodecPCMF64LE:
		v, err := br.readF64LE()
		if err != nil {
			return zero, err
		}
		return widenFloat[T](float64(v))
	case CodecPCMALaw:
		v, err := br.readU8()
		if err != nil {
			return zero, err
		}
		pcm := g711.DecodeAlawFrame(v)
		return widenSigned[T](int64(pcm), 16)
	case CodecPCMMULaw:
		v, err := br.readU8()
		if err != nil {
			return zero, err
		}
		pcm := g711.DecodeUlawFrame(v)
		return widenSigned[T](int64(pcm), 16)
	default:
		return zero, unsupportedError("read_pcm: codec %s has no direct sample reader", codec)
	}
}

// widenUnsigned converts an unsigned PCM_U8 value into T, preserving its
// numeric value (no bias) for wider integer targets — see scenario S2.
func widenUnsigned[T Sample](v uint64) (T, error) {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return any(uint8(v)).(T), nil
	case int16:
		return any(int16(v)).(T), nil
	case int32:
		return any(int32(v)).(T), nil
	default:
		return zero, unsupportedError("read_pcm: PCM_U8 cannot be read as a float sample type")
	}
}

// widenSigned converts a signed PCM value of srcBits width into T.
func widenSigned[T Sample](v int64, srcBits int) (T, error) {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return zero, unsupportedError("read_pcm: signed PCM cannot be read as an unsigned sample type")
	case int16:
		n, err := narrowSigned(v, 16)
		if err != nil {
			return zero, err
		}
		return any(int16(n)).(T), nil
	case int32:
		return any(int32(v)).(T), nil
	case float32:
		return any(float32(scaleToUnit(v, srcBits))).(T), nil
	case float64:
		return any(scaleToUnit(v, srcBits)).(T), nil
	default:
		return zero, unsupportedError("read_pcm: unhandled sample type")
	}
}

func widenFloat[T Sample](v float64) (T, error) {
	var zero T
	switch any(zero).(type) {
	case float32:
		return any(float32(v)).(T), nil
	case float64:
		return any(v).(T), nil
	default:
		return zero, unsupportedError("read_pcm: floating PCM cannot be read as an integer sample type")
	}
}

func scaleToUnit(v int64, srcBits int) float64 {
	return float64(v) / float64(int64(1)<<(srcBits-1))
}

// fromI32 narrows a FLAC-decoded signed sample into T. Integer targets
// require srcBits <= the target's bit width; float targets scale by
// 2^(srcBits-1) to normalize into roughly [-1, 1).
func fromI32[T Sample](value int32, srcBits uint8) (T, error) {
	var zero T
	switch any(zero).(type) {
	case uint8:
		if srcBits > 8 {
			return zero, unsupportedError("from_i32: %d-bit sample does not fit uint8", srcBits)
		}
		// FLAC samples are signed; bias into the unsigned PCM_U8 convention.
		return any(uint8(int32(value) + 128)).(T), nil
	case int16:
		if srcBits > 16 {
			return zero, unsupportedError("from_i32: %d-bit sample does not fit int16", srcBits)
		}
		return any(int16(value)).(T), nil
	case int32:
		return any(value).(T), nil
	case float32:
		return any(float32(scaleToUnit(int64(value), int(srcBits)))).(T), nil
	case float64:
		return any(scaleToUnit(int64(value), int(srcBits))).(T), nil
	default:
		return zero, unsupportedError("from_i32: unhandled sample type")
	}
}

// fromF32 converts an MP3-path float sample into T; integer targets are
// unsupported.
func fromF32[T Sample](value float32) (T, error) {
	var zero T
	switch any(zero).(type) {
	case float32:
		return any(value).(T), nil
	case float64:
		return any(float64(value)).(T), nil
	default:
		return zero, unsupportedError("from_f32: integer sample types cannot represent a float source")
	}
}
