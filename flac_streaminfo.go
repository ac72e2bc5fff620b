package cauldron

import "bytes"

const flacMaxSampleRate = 655350

// flacReader decodes a native FLAC stream: the STREAMINFO metadata block
// (producing AudioInfo) followed by a sequence of frames, each yielding one
// decoded Block.
type flacReader struct {
	br   *byteReader
	info AudioInfo
}

func openFLAC(br *byteReader) (*flacReader, error) {
	f := &flacReader{br: br}
	if err := f.readHeader(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *flacReader) readHeader() error {
	var magic [4]byte
	if err := f.br.readExact(magic[:]); err != nil {
		return err
	}
	if !bytes.Equal(magic[:], []byte("fLaC")) {
		return parseError("no fLaC tag found")
	}

	var info *AudioInfo
	for {
		headerByte, err := f.br.readU8()
		if err != nil {
			return err
		}
		isLast := headerByte>>7 == 1
		blockType := headerByte & 0x7f
		length, err := f.br.readU24BE()
		if err != nil {
			return err
		}

		switch blockType {
		case 0:
			parsed, err := f.readStreamInfo(length)
			if err != nil {
				return err
			}
			info = parsed
		case 127:
			return parseError("invalid metadata block type 127")
		default:
			if err := f.br.skip(int(length)); err != nil {
				return err
			}
		}

		if isLast {
			break
		}
	}
	if info == nil {
		return parseError("no STREAMINFO block found")
	}
	f.info = *info
	return nil
}

// readStreamInfo parses the 34-byte STREAMINFO block.
// https://xiph.org/flac/format.html#metadata_block_streaminfo
func (f *flacReader) readStreamInfo(length uint32) (*AudioInfo, error) {
	if length != 34 {
		return nil, parseError("STREAMINFO block must be exactly 34 bytes, got %d", length)
	}

	minBlockSize, err := f.br.readU16BE()
	if err != nil {
		return nil, err
	}
	maxBlockSize, err := f.br.readU16BE()
	if err != nil {
		return nil, err
	}
	if minBlockSize < 16 {
		return nil, parseError("STREAMINFO minimum block size must be at least 16")
	}
	if minBlockSize > maxBlockSize {
		return nil, parseError("STREAMINFO minimum block size exceeds maximum")
	}

	minFrameSize, err := f.br.readU24BE()
	if err != nil {
		return nil, err
	}
	maxFrameSize, err := f.br.readU24BE()
	if err != nil {
		return nil, err
	}
	if minFrameSize > 0 && maxFrameSize > 0 && maxFrameSize < minFrameSize {
		return nil, parseError("STREAMINFO maximum frame size is smaller than minimum")
	}

	sampleRateMSB, err := f.br.readU16BE()
	if err != nil {
		return nil, err
	}
	sampleRateLSB, err := f.br.readU8()
	if err != nil {
		return nil, err
	}

	// 20-bit sample rate: the full first 16 bits plus the top 4 bits of the
	// next byte.
	sampleRate := (uint32(sampleRateMSB) << 4) | (uint32(sampleRateLSB) >> 4)
	if sampleRate == 0 || sampleRate > flacMaxSampleRate {
		return nil, parseError("STREAMINFO sample rate out of range: %d", sampleRate)
	}

	// 3-bit channel count minus one.
	nChannels := ((sampleRateLSB >> 1) & 0x07) + 1
	if nChannels < 1 || nChannels > 8 {
		return nil, parseError("STREAMINFO channel count out of range: %d", nChannels)
	}

	bpsBits, err := f.br.readU8()
	if err != nil {
		return nil, err
	}
	bitsPerSample := ((sampleRateLSB&1)<<4 | bpsBits>>4) + 1

	totalFramesLow, err := f.br.readU32BE()
	if err != nil {
		return nil, err
	}
	totalFrames := uint64(bpsBits&0x0f)<<32 | uint64(totalFramesLow)

	var md5 [16]byte
	if err := f.br.readExact(md5[:]); err != nil {
		return nil, err
	}

	layout := layoutFromChannelCount(int(nChannels))
	return &AudioInfo{
		CodecType:     CodecFLAC,
		SampleRate:    sampleRate,
		TotalSamples:  totalFrames * uint64(nChannels),
		BitsPerSample: bitsPerSample,
		Channels:      channelsFromCount(int(nChannels)),
		ChannelLayout: layout,
	}, nil
}
