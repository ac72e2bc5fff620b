package cauldron

// MPEG audio decoding is not implemented beyond frame-header and side-info
// field extraction: no Huffman-coded main-data, scale-factor, or synthesis
// filter-bank support. Requesting a sample iterator over an MP3 stream
// reports KindUnsupported.

// mpegVersion distinguishes the three MPEG audio versions relevant to
// layer 3, each with its own sample-rate and bit-rate table.
type mpegVersion int

const (
	mpegVersion1 mpegVersion = iota
	mpegVersion2
	mpegVersion2p5
)

// channelMode names the four MPEG audio channel configurations. Joint
// stereo additionally carries which of its two sub-modes are active,
// decided by the header's mode-extension bits; readMP3Header does not parse
// them, so that state is left at the zero value.
type channelMode int

const (
	channelModeStereo channelMode = iota
	channelModeDualMono
	channelModeMono
	channelModeJointStereo
)

type jointStereoMode struct {
	midSide   bool
	intensity bool
}

// emphasis records the pre-emphasis curve applied at encode time.
type emphasis int

const (
	emphasisNone emphasis = iota
	emphasisFifty15
	emphasisCcitJ17
)

var bitRatesMPEG1L3 = [15]uint32{
	0, 32_000, 40_000, 48_000, 56_000, 64_000, 80_000, 96_000, 112_000, 128_000, 160_000, 192_000,
	224_000, 256_000, 320_000,
}

var bitRatesMPEG2L3 = [15]uint32{
	0, 8_000, 16_000, 24_000, 32_000, 40_000, 48_000, 56_000, 64_000, 80_000, 96_000, 112_000,
	128_000, 144_000, 160_000,
}

// mp3FrameHeader is the fixed 4-byte MPEG audio frame header, plus the
// optional trailing CRC word.
//
//	AAAAAAAA AAABBCCD EEEEFFGH IIJJKLMM
//	A sync (eleven 1 bits)     H private bit
//	B MPEG version             I channel mode
//	C layer                    J mode extension
//	D CRC-present              K copyright
//	E bit rate                 L original
//	F sample rate              M emphasis
//	G padding bit
type mp3FrameHeader struct {
	version      mpegVersion
	bitrate      uint32
	sampleRate   uint32
	channelMode  channelMode
	jointStereo  jointStereoMode
	emphasis     emphasis
	hasPadding   bool
	frameSize    int
	crc          uint16
	hasCRC       bool
}

func (h *mp3FrameHeader) numChannels() int {
	if h.channelMode == channelModeMono {
		return 1
	}
	return 2
}

// numGranules is 2 for MPEG1, 1 for MPEG2/2.5.
func (h *mp3FrameHeader) numGranules() int {
	if h.version == mpegVersion1 {
		return 2
	}
	return 1
}

func (h *mp3FrameHeader) isIntensityStereo() bool {
	return h.channelMode == channelModeJointStereo && h.jointStereo.intensity
}

// blockType classifies a granule's window shape. For short blocks,
// granuleChannel.shortIsMixed records whether it is a mixed block.
type blockType int

const (
	blockTypeLong blockType = iota
	blockTypeStart
	blockTypeShort
	blockTypeEnd
)

// granuleChannel is the side-information for one channel of one granule.
type granuleChannel struct {
	part2_3Length       uint16
	bigValues           uint16
	globalGain          uint8
	scalefacCompressLen uint16
	blockType           blockType
	shortIsMixed        bool
	subblockGain        [3]uint8
	tableSelect         [3]uint8
	region0Count        uint8
	region1Count        uint8
	preflag             bool
	scalefacScale       bool
	count1TableSelect   bool
}

type granule struct {
	channels [2]granuleChannel
}

// mp3FrameInfo is the decoded side-information block that follows the
// frame header (and optional CRC).
type mp3FrameInfo struct {
	mainDataBegin uint16
	scfsi         [2][4]bool
	granules      [2]granule
}

// syncMP3Frame scans forward for the eleven-bit sync word (0xffe) that
// begins every MPEG audio frame header, returning the full 32-bit header
// word once found.
func syncMP3Frame(br *byteReader) (uint32, error) {
	var sync uint32
	for sync&0xffe0_0000 != 0xffe0_0000 {
		b, err := br.readU8()
		if err != nil {
			return 0, err
		}
		sync = sync<<8 | uint32(b)
	}
	return sync, nil
}

// readMP3Header decodes the fixed header fields out of a 32-bit header
// word already synchronized by syncMP3Frame, reading the trailing CRC
// word (if present) and computing the frame size.
func readMP3Header(br *byteReader, header uint32) (*mp3FrameHeader, error) {
	var h mp3FrameHeader

	switch (header & 0x0018_0000) >> 19 {
	case 0b00:
		h.version = mpegVersion2p5
	case 0b10:
		h.version = mpegVersion2
	case 0b11:
		h.version = mpegVersion1
	default:
		return nil, parseError("mp3: invalid MPEG version")
	}

	if (header&0x6_0000)>>17 != 1 {
		return nil, unsupportedError("mp3: only layer 3 is supported")
	}

	bitrateIndex := (header & 0x0_f000) >> 12
	switch bitrateIndex {
	case 0b0000:
		return nil, unsupportedError("mp3: free bitrate is not supported")
	case 0b1111:
		return nil, parseError("mp3: unsupported bitrate index")
	default:
		if h.version == mpegVersion1 {
			h.bitrate = bitRatesMPEG1L3[bitrateIndex]
		} else {
			h.bitrate = bitRatesMPEG2L3[bitrateIndex]
		}
	}

	sampleRateCode := (header & 0x0_0c00) >> 10
	switch {
	case sampleRateCode == 0b00 && h.version == mpegVersion1:
		h.sampleRate = 44_100
	case sampleRateCode == 0b01 && h.version == mpegVersion1:
		h.sampleRate = 48_000
	case sampleRateCode == 0b10 && h.version == mpegVersion1:
		h.sampleRate = 32_000
	case sampleRateCode == 0b00 && h.version == mpegVersion2:
		h.sampleRate = 22_050
	case sampleRateCode == 0b01 && h.version == mpegVersion2:
		h.sampleRate = 24_000
	case sampleRateCode == 0b10 && h.version == mpegVersion2:
		h.sampleRate = 16_000
	case sampleRateCode == 0b00 && h.version == mpegVersion2p5:
		h.sampleRate = 11_025
	case sampleRateCode == 0b01 && h.version == mpegVersion2p5:
		h.sampleRate = 12_000
	case sampleRateCode == 0b10 && h.version == mpegVersion2p5:
		h.sampleRate = 8_000
	default:
		return nil, parseError("mp3: invalid sample rate code")
	}

	switch (header & 0x0_00c0) >> 6 {
	case 0b00:
		h.channelMode = channelModeStereo
	case 0b10:
		h.channelMode = channelModeDualMono
	case 0b11:
		h.channelMode = channelModeMono
	case 0b01:
		h.channelMode = channelModeJointStereo
	}

	switch header & 0x0_0003 {
	case 0b00:
		h.emphasis = emphasisNone
	case 0b01:
		h.emphasis = emphasisFifty15
	case 0b11:
		h.emphasis = emphasisCcitJ17
	default:
		return nil, parseError("mp3: invalid emphasis, found reserved bits")
	}

	h.hasPadding = (header&0x0_0200)>>9 == 1

	// CRC-present bit is inverted: 0 means a CRC word follows.
	// https://www.codeproject.com/Articles/8295/MPEG-Audio-Frame-Header#CRC
	if header&0x1_0000 == 0 {
		crc, err := br.readU16BE()
		if err != nil {
			return nil, err
		}
		h.hasCRC = true
		h.crc = crc
	}

	bitsPerSlot := 144
	if h.version != mpegVersion1 {
		bitsPerSlot = 72
	}
	frameSize := bitsPerSlot*int(h.bitrate)/int(h.sampleRate) - 4
	if h.hasPadding {
		frameSize++
	}
	if h.hasCRC {
		frameSize -= 2
	}
	h.frameSize = frameSize

	return &h, nil
}

// sideDataLen reports the byte length of the side-information block that
// follows the header (and CRC), used to derive the main-data length.
func (h *mp3FrameHeader) sideDataLen() int {
	if h.version == mpegVersion1 {
		if h.numChannels() == 1 {
			return 17
		}
		return 32
	}
	if h.numChannels() == 1 {
		return 9
	}
	return 17
}

// readGranuleChannelSideInfo parses one channel's granule side-info.
// Region counts are read exactly once each — MPEG1 long-block framing
// reads region0_count (4 bits) then region1_count (3 bits) in sequence,
// not the same field twice.
func readGranuleChannelSideInfo(bs *bitStream, isMPEG1 bool, gc *granuleChannel) error {
	v, err := bs.readLenU16(12)
	if err != nil {
		return err
	}
	gc.part2_3Length = v

	v, err = bs.readLenU16(9)
	if err != nil {
		return err
	}
	gc.bigValues = v
	if gc.bigValues > 288 {
		return parseError("mp3: granule big_values > 288")
	}

	gg, err := bs.readLenU8(8)
	if err != nil {
		return err
	}
	gc.globalGain = gg

	if isMPEG1 {
		v, err = bs.readLenU16(4)
	} else {
		v, err = bs.readLenU16(9)
	}
	if err != nil {
		return err
	}
	gc.scalefacCompressLen = v

	windowSwitching, err := bs.readBit()
	if err != nil {
		return err
	}

	if windowSwitching {
		code, err := bs.readLenU8(2)
		if err != nil {
			return err
		}
		isMixed, err := bs.readBit()
		if err != nil {
			return err
		}

		switch code {
		case 0b00:
			return parseError("mp3: invalid block_type")
		case 0b01:
			gc.blockType = blockTypeStart
		case 0b10:
			gc.blockType = blockTypeShort
			gc.shortIsMixed = isMixed
		case 0b11:
			gc.blockType = blockTypeEnd
		}

		for i := 0; i < 2; i++ {
			t, err := bs.readLenU8(5)
			if err != nil {
				return err
			}
			gc.tableSelect[i] = t
		}
		for i := 0; i < 3; i++ {
			g, err := bs.readLenU8(3)
			if err != nil {
				return err
			}
			gc.subblockGain[i] = g
		}

		if isMPEG1 {
			gc.region0Count = 7
		} else if gc.blockType == blockTypeShort && !gc.shortIsMixed {
			gc.region0Count = 5
		} else {
			gc.region0Count = 7
		}
		gc.region1Count = 20 - gc.region0Count
	} else {
		gc.blockType = blockTypeLong

		for i := 0; i < 3; i++ {
			t, err := bs.readLenU8(5)
			if err != nil {
				return err
			}
			gc.tableSelect[i] = t
		}

		r0, err := bs.readLenU8(4)
		if err != nil {
			return err
		}
		r1, err := bs.readLenU8(3)
		if err != nil {
			return err
		}
		gc.region0Count = r0
		gc.region1Count = r1
	}

	if isMPEG1 {
		p, err := bs.readBit()
		if err != nil {
			return err
		}
		gc.preflag = p
	} else {
		// Pre-flag is determined implicitly for MPEG2: ISO/IEC 13818-3
		// section 2.4.3.4.
		gc.preflag = gc.scalefacCompressLen >= 500
	}

	scale, err := bs.readBit()
	if err != nil {
		return err
	}
	gc.scalefacScale = scale

	c1, err := bs.readBit()
	if err != nil {
		return err
	}
	gc.count1TableSelect = c1

	return nil
}

// readMP3SideInfo parses the side-information block following the frame
// header and optional CRC.
func readMP3SideInfo(br *byteReader, h *mp3FrameHeader) (*mp3FrameInfo, error) {
	var info mp3FrameInfo
	bs := newBitStream(br)

	numChannels := h.numChannels()
	isMPEG1 := h.version == mpegVersion1

	if isMPEG1 {
		v, err := bs.readLenU16(9)
		if err != nil {
			return nil, err
		}
		info.mainDataBegin = v

		if numChannels == 1 {
			if err := bs.skipLenU8(5); err != nil {
				return nil, err
			}
		} else {
			if err := bs.skipLenU8(3); err != nil {
				return nil, err
			}
		}

		for ch := 0; ch < numChannels; ch++ {
			for band := 0; band < 4; band++ {
				bit, err := bs.readBit()
				if err != nil {
					return nil, err
				}
				info.scfsi[ch][band] = bit
			}
		}
	} else {
		v, err := bs.readLenU16(8)
		if err != nil {
			return nil, err
		}
		info.mainDataBegin = v

		if numChannels == 1 {
			if err := bs.skipLenU8(1); err != nil {
				return nil, err
			}
		} else {
			if err := bs.skipLenU8(2); err != nil {
				return nil, err
			}
		}
	}

	for g := 0; g < h.numGranules(); g++ {
		for ch := 0; ch < numChannels; ch++ {
			if err := readGranuleChannelSideInfo(bs, isMPEG1, &info.granules[g].channels[ch]); err != nil {
				return nil, err
			}
		}
	}

	if !bs.isAligned() {
		return nil, parseError("mp3: side info did not end on a byte boundary")
	}

	return &info, nil
}

// mp3Reader exposes frame-header and side-info parsing only. It never
// produces an AudioInfo with a meaningful sample rate — open succeeds
// without reading any frame, matching the non-seekable, size-unknown
// nature of an MPEG audio stream until its first frame is located.
type mp3Reader struct {
	br   *byteReader
	info AudioInfo
}

func openMP3(br *byteReader) (*mp3Reader, error) {
	return &mp3Reader{
		br: br,
		info: AudioInfo{
			CodecType:     CodecMP3,
			Channels:      ChannelFC,
			ChannelLayout: LayoutMono,
		},
	}, nil
}

// ProbeMP3Frame synchronizes to the next frame, parses its header and
// side-information, and returns them without reading or decoding the
// main data that follows.
func ProbeMP3Frame(br *byteReader) (*mp3FrameHeader, *mp3FrameInfo, error) {
	sync, err := syncMP3Frame(br)
	if err != nil {
		return nil, nil, err
	}
	header, err := readMP3Header(br, sync)
	if err != nil {
		return nil, nil, err
	}
	info, err := readMP3SideInfo(br, header)
	if err != nil {
		return nil, nil, err
	}
	return header, info, nil
}
