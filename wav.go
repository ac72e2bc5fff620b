package cauldron

import "bytes"

// WAVE_FORMAT_* tags, as defined in mmreg.h.
const (
	waveFormatPCM        uint16 = 0x0001
	waveFormatIEEEFloat   uint16 = 0x0003
	waveFormatALaw        uint16 = 0x0006
	waveFormatMULaw       uint16 = 0x0007
	waveFormatExtensible uint16 = 0xFFFE
)

// Sub-format GUIDs for WAVEFORMATEXTENSIBLE, little-endian byte layout as
// they appear on the wire.
// https://docs.microsoft.com/en-us/windows-hardware/drivers/audio/subformat-guids-for-compressed-audio-formats
var (
	subtypePCM = [16]byte{
		0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00,
		0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71,
	}
	subtypeIEEEFloat = [16]byte{
		0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00,
		0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71,
	}
	subtypeALaw = [16]byte{
		0x06, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00,
		0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71,
	}
	subtypeMULaw = [16]byte{
		0x07, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00,
		0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71,
	}
)

// wavReader decodes a RIFF/WAVE container: chunk walk, `fmt ` dialect
// dispatch, and a direct one-sample-at-a-time PCM iterator over `data`.
type wavReader struct {
	br   *byteReader
	info AudioInfo
}

func openWAV(br *byteReader) (*wavReader, error) {
	w := &wavReader{br: br}
	if err := w.readHeader(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *wavReader) readHeader() error {
	var magic [4]byte
	if err := w.br.readExact(magic[:]); err != nil {
		return err
	}
	if !bytes.Equal(magic[:], []byte("RIFF")) {
		return parseError("no RIFF tag found")
	}
	if _, err := w.br.readU32LE(); err != nil { // container length, unused
		return err
	}
	if err := w.br.readExact(magic[:]); err != nil {
		return err
	}
	if !bytes.Equal(magic[:], []byte("WAVE")) {
		return parseError("no WAVE tag found")
	}

	var info *AudioInfo
	for {
		var chunkID [4]byte
		if err := w.br.readExact(chunkID[:]); err != nil {
			break // EOF walking chunks
		}
		chunkLen, err := w.br.readU32LE()
		if err != nil {
			return err
		}

		switch {
		case bytes.Equal(chunkID[:], []byte("fmt ")):
			parsed, err := w.readFmtChunk(chunkLen)
			if err != nil {
				return err
			}
			info = parsed
		case bytes.Equal(chunkID[:], []byte("data")):
			if info == nil {
				return parseError("data chunk encountered before fmt chunk")
			}
			info.TotalSamples = uint64(chunkLen) / (uint64(info.BitsPerSample) / 8)
			w.info = *info
			return nil
		default:
			if err := w.br.skip(int(chunkLen)); err != nil {
				return err
			}
		}
		if chunkLen%2 == 1 {
			if err := w.br.skip(1); err != nil { // RIFF chunks pad to an even length
				return err
			}
		}
	}
	return parseError("no fmt chunk found")
}

// readFmtChunk parses the common `fmt ` prefix and dispatches on format_tag.
func (w *wavReader) readFmtChunk(chunkLen uint32) (*AudioInfo, error) {
	if chunkLen < 16 {
		return nil, parseError("invalid fmt chunk size: %d", chunkLen)
	}

	formatTag, err := w.br.readU16LE()
	if err != nil {
		return nil, err
	}
	nChannels, err := w.br.readU16LE()
	if err != nil {
		return nil, err
	}
	sampleRate, err := w.br.readU32LE()
	if err != nil {
		return nil, err
	}
	bytesPerSec, err := w.br.readU32LE()
	if err != nil {
		return nil, err
	}
	blockAlign, err := w.br.readU16LE()
	if err != nil {
		return nil, err
	}
	bitsPerSample, err := w.br.readU16LE()
	if err != nil {
		return nil, err
	}

	if nChannels == 0 {
		return nil, parseError("number of channels is 0")
	}
	if uint32(bitsPerSample) != uint32(blockAlign/nChannels)*8 {
		return nil, parseError("inconsistent fmt chunk: bits_per_sample/block_align mismatch")
	}
	if bytesPerSec != uint32(blockAlign)*sampleRate {
		return nil, parseError("inconsistent fmt chunk: bytes_per_sec/block_align mismatch")
	}

	info := &AudioInfo{
		SampleRate:    sampleRate,
		BitsPerSample: uint8(bitsPerSample),
	}

	switch formatTag {
	case waveFormatPCM:
		return w.readPCMFmt(chunkLen, nChannels, info)
	case waveFormatIEEEFloat:
		return w.readIEEEFmt(chunkLen, nChannels, info)
	case waveFormatALaw:
		return w.readALawFmt(chunkLen, nChannels, info)
	case waveFormatMULaw:
		return w.readMULawFmt(chunkLen, nChannels, info)
	case waveFormatExtensible:
		return w.readExtensibleFmt(chunkLen, info)
	default:
		return nil, unsupportedError("wav: encoding format 0x%04x not supported", formatTag)
	}
}

func (w *wavReader) setStereoLayout(nChannels uint16, info *AudioInfo) error {
	switch nChannels {
	case 1:
		info.ChannelLayout = LayoutMono
		info.Channels = ChannelFC
	case 2:
		info.ChannelLayout = LayoutStereo
		info.Channels = ChannelFL | ChannelFR
	default:
		return parseError("only mono or stereo supported for this fmt dialect, got %d channels", nChannels)
	}
	return nil
}

func (w *wavReader) readPCMFmt(chunkLen uint32, nChannels uint16, info *AudioInfo) (*AudioInfo, error) {
	if chunkLen > 16 {
		if err := w.br.skip(int(chunkLen - 16)); err != nil {
			return nil, err
		}
	}
	switch info.BitsPerSample {
	case 8:
		info.CodecType = CodecPCMU8
	case 16:
		info.CodecType = CodecPCMS16LE
	case 24:
		info.CodecType = CodecPCMS24LE
	case 32:
		info.CodecType = CodecPCMS32LE
	default:
		return nil, parseError("bits_per_sample for fmt_pcm must be 8, 16, 24 or 32, got %d", info.BitsPerSample)
	}
	if err := w.setStereoLayout(nChannels, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (w *wavReader) readIEEEFmt(chunkLen uint32, nChannels uint16, info *AudioInfo) (*AudioInfo, error) {
	var extraSize uint16
	if chunkLen == 18 {
		v, err := w.br.readU16LE()
		if err != nil {
			return nil, err
		}
		extraSize = v
	}
	if extraSize != 0 || chunkLen > 18 {
		return nil, parseError("malformed fmt_ieee chunk")
	}
	switch info.BitsPerSample {
	case 32:
		info.CodecType = CodecPCMF32LE
	case 64:
		info.CodecType = CodecPCMF64LE
	default:
		return nil, parseError("bits_per_sample for fmt_ieee must be 32 or 64, got %d", info.BitsPerSample)
	}
	if err := w.setStereoLayout(nChannels, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (w *wavReader) readALawFmt(chunkLen uint32, nChannels uint16, info *AudioInfo) (*AudioInfo, error) {
	if chunkLen > 16 {
		if err := w.br.skip(int(chunkLen - 16)); err != nil {
			return nil, err
		}
	}
	info.CodecType = CodecPCMALaw
	if err := w.setStereoLayout(nChannels, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (w *wavReader) readMULawFmt(chunkLen uint32, nChannels uint16, info *AudioInfo) (*AudioInfo, error) {
	if chunkLen > 16 {
		if err := w.br.skip(int(chunkLen - 16)); err != nil {
			return nil, err
		}
	}
	info.CodecType = CodecPCMMULaw
	if err := w.setStereoLayout(nChannels, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (w *wavReader) readExtensibleFmt(chunkLen uint32, info *AudioInfo) (*AudioInfo, error) {
	if chunkLen < 40 {
		return nil, parseError("malformed fmt_ext chunk: length %d < 40", chunkLen)
	}
	extraSize, err := w.br.readU16LE()
	if err != nil {
		return nil, err
	}
	if extraSize != 22 {
		return nil, parseError("fmt_ext extra-size field must be 22, got %d", extraSize)
	}
	validBits, err := w.br.readU16LE()
	if err != nil {
		return nil, err
	}
	if validBits == 0 || validBits%8 != 0 {
		return nil, parseError("valid_bits_per_sample for fmt_ext must be a non-zero multiple of 8, got %d", validBits)
	}
	if validBits > uint16(info.BitsPerSample) {
		return nil, parseError("valid_bits_per_sample %d exceeds container bits_per_sample %d", validBits, info.BitsPerSample)
	}
	info.BitsPerSample = uint8(validBits)

	channelMask, err := w.br.readU32LE()
	if err != nil {
		return nil, err
	}
	var guid [16]byte
	if err := w.br.readExact(guid[:]); err != nil {
		return nil, err
	}

	switch guid {
	case subtypePCM:
		if validBits > 32 {
			return nil, parseError("bits_per_sample for fmt_ext PCM sub-type must be <= 32, got %d", validBits)
		}
		switch validBits {
		case 8:
			info.CodecType = CodecPCMU8
		case 16:
			info.CodecType = CodecPCMS16LE
		case 24:
			info.CodecType = CodecPCMS24LE
		case 32:
			info.CodecType = CodecPCMS32LE
		default:
			return nil, parseError("bits_per_sample for fmt_ext PCM sub-type must be 8, 16, 24 or 32, got %d", validBits)
		}
	case subtypeIEEEFloat:
		switch validBits {
		case 32:
			info.CodecType = CodecPCMF32LE
		case 64:
			info.CodecType = CodecPCMF64LE
		default:
			return nil, parseError("bits_per_sample for fmt_ext IEEE sub-type must be 32 or 64, got %d", validBits)
		}
	case subtypeALaw:
		info.CodecType = CodecPCMALaw
	case subtypeMULaw:
		info.CodecType = CodecPCMMULaw
	default:
		return nil, unsupportedError("fmt_ext: unrecognized sub-format GUID")
	}

	info.Channels = Channels(channelMask)
	info.ChannelLayout = layoutFromChannelMask(info.Channels)
	return info, nil
}

// readWAVSample pulls the next interleaved PCM sample directly from the
// underlying reader — WAV has no block abstraction, no buffering between
// samples.
func readWAVSample[T Sample](w *wavReader) (T, error) {
	return readPCM[T](w.br, w.info.CodecType)
}
