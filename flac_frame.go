package cauldron

import (
	"encoding/binary"
	stderrors "errors"
	"io"
)

// channelType names how the two subframes of a stereo frame relate; for
// independent channels the channel count is kept in
// frameHeader.independentChannels.
type channelType int

const (
	chanIndependent channelType = iota
	chanLeftSide
	chanRightSide
	chanMidSide
)

type frameHeader struct {
	isVariable          bool
	frameOrSampleNumber uint64 // frame number (fixed strategy) or starting sample index (variable strategy)
	blockSize           uint16
	sampleRate          uint32
	chType              channelType
	independentChannels uint8 // valid only when chType == chanIndependent
	bitsPerSample       uint32
}

func (h *frameHeader) numberChannels() uint32 {
	if h.chType == chanIndependent {
		return uint32(h.independentChannels)
	}
	return 2
}

// block is one decoded chunk produced by a compressed container frame: a
// channel-major buffer (channel 0 samples, then channel 1, …).
type block struct {
	firstSampleIndex uint64
	blockSize        uint32
	numChannels      uint32
	bitsPerSample    uint32
	buffer           []int32
}

func (b *block) sampleCount() uint32   { return b.blockSize }
func (b *block) getSample(ch, i uint32) int32 {
	return b.buffer[ch*b.blockSize+i]
}

func readU8From(r io.Reader) (uint8, error) {
	var p [1]byte
	if _, err := io.ReadFull(r, p[:]); err != nil {
		return 0, ioError(err, "unexpected end of stream reading a frame header byte")
	}
	return p[0], nil
}

func readU16BEFrom(r io.Reader) (uint16, error) {
	var p [2]byte
	if _, err := io.ReadFull(r, p[:]); err != nil {
		return 0, ioError(err, "unexpected end of stream reading a frame header field")
	}
	return binary.BigEndian.Uint16(p[:]), nil
}

// readUTF8CodedInt reads a UTF-8-style variable-length integer (up to 36
// bits): the number of leading 1 bits in the first byte gives the
// continuation-byte count, each continuation byte contributing 6 payload
// bits and required to begin with `10`.
func readUTF8CodedInt(r io.Reader) (uint64, error) {
	first, err := readU8From(r)
	if err != nil {
		return 0, err
	}

	var extra uint
	maskMark := uint8(0x80)
	maskData := uint8(0x7f)
	for first&maskMark != 0 {
		extra++
		maskMark >>= 1
		maskData >>= 1
	}

	if extra > 0 {
		if extra == 1 {
			return 0, parseError("invalid UTF-8 coded integer: lone continuation byte")
		}
		extra--
	}

	result := uint64(first&maskData) << (6 * extra)
	for i := int(extra) - 1; i >= 0; i-- {
		b, err := readU8From(r)
		if err != nil {
			return 0, err
		}
		if b&0xc0 != 0x80 {
			return 0, parseError("invalid UTF-8 coded integer: malformed continuation byte")
		}
		result |= uint64(b&0x3f) << (6 * uint(i))
	}
	return result, nil
}

// readFrameHeader parses the frame header (minus the sync word, already
// consumed by the caller) through the CRC-8 accumulator, then checks the
// trailing CRC-8 byte.
// https://xiph.org/flac/format.html#frame_header
func readFrameHeader(cr *crc8Reader, info *AudioInfo, syncWord uint16) (*frameHeader, error) {
	if syncWord&0xfffc != 0xfff8 {
		return nil, parseError("frame sync code incorrect")
	}
	if syncWord&0x0002 != 0 {
		return nil, unsupportedError("frame header reserved bit set")
	}
	isVariable := syncWord&0x0001 != 0

	bsSR, err := readU8From(cr)
	if err != nil {
		return nil, err
	}

	var blockSize uint16
	var deferredBlockSize uint8 // 0 = none, 1 = one byte, 2 = two bytes
	switch bsSR >> 4 {
	case 0x0:
		return nil, unsupportedError("frame header: reserved block-size code")
	case 0x1:
		blockSize = 192
	case 0x2, 0x3, 0x4, 0x5:
		blockSize = 576 << ((bsSR >> 4) - 2)
	case 0x6:
		deferredBlockSize = 1
	case 0x7:
		deferredBlockSize = 2
	default:
		blockSize = 256 << ((bsSR >> 4) - 8)
	}

	var sampleRate uint32
	var deferredSampleRate uint8 // 0 = none, 1/2/3 as in the spec table
	switch bsSR & 0x0f {
	case 0x0:
		sampleRate = info.SampleRate
	case 0x1:
		sampleRate = 88200
	case 0x2:
		sampleRate = 176400
	case 0x3:
		sampleRate = 192000
	case 0x4:
		sampleRate = 8000
	case 0x5:
		sampleRate = 16000
	case 0x6:
		sampleRate = 22050
	case 0x7:
		sampleRate = 24000
	case 0x8:
		sampleRate = 32000
	case 0x9:
		sampleRate = 44100
	case 0xa:
		sampleRate = 48000
	case 0xb:
		sampleRate = 96000
	case 0xc:
		deferredSampleRate = 1
	case 0xd:
		deferredSampleRate = 2
	case 0xe:
		deferredSampleRate = 3
	default:
		return nil, parseError("frame header: invalid sample-rate code")
	}

	chBpsR, err := readU8From(cr)
	if err != nil {
		return nil, err
	}

	var h frameHeader
	switch chBpsR >> 4 {
	case 0x8:
		h.chType = chanLeftSide
	case 0x9:
		h.chType = chanRightSide
	case 0xa:
		h.chType = chanMidSide
	default:
		n := chBpsR >> 4
		if n >= 0x8 {
			return nil, unsupportedError("frame header: reserved channel-assignment code")
		}
		h.chType = chanIndependent
		h.independentChannels = n + 1
	}

	switch (chBpsR & 0x0e) >> 1 {
	case 0x0:
		h.bitsPerSample = uint32(info.BitsPerSample)
	case 0x1:
		h.bitsPerSample = 8
	case 0x2:
		h.bitsPerSample = 12
	case 0x4:
		h.bitsPerSample = 16
	case 0x5:
		h.bitsPerSample = 20
	case 0x6:
		h.bitsPerSample = 24
	default:
		return nil, unsupportedError("frame header: reserved bits-per-sample code")
	}

	if chBpsR&0x01 != 0 {
		return nil, unsupportedError("frame header: reserved bit set")
	}

	h.isVariable = isVariable
	num, err := readUTF8CodedInt(cr)
	if err != nil {
		return nil, err
	}
	h.frameOrSampleNumber = num

	if deferredBlockSize == 1 {
		v, err := readU8From(cr)
		if err != nil {
			return nil, err
		}
		blockSize = uint16(v) + 1
	} else if deferredBlockSize == 2 {
		v, err := readU16BEFrom(cr)
		if err != nil {
			return nil, err
		}
		blockSize = v + 1
	}
	h.blockSize = blockSize

	switch deferredSampleRate {
	case 1:
		v, err := readU8From(cr)
		if err != nil {
			return nil, err
		}
		sampleRate = uint32(v)
	case 2:
		v, err := readU16BEFrom(cr)
		if err != nil {
			return nil, err
		}
		sampleRate = uint32(v)
	case 3:
		v, err := readU16BEFrom(cr)
		if err != nil {
			return nil, err
		}
		sampleRate = uint32(v) * 10
	}
	h.sampleRate = sampleRate

	computed := cr.Sum()
	actual, err := readU8From(cr.Inner())
	if err != nil {
		return nil, err
	}
	if computed != actual {
		return nil, parseError("CRC match failed, invalid frame header")
	}

	return &h, nil
}

// decodeLeftSide converts a left+side buffer in place to left++right.
// side = left - right  =>  right = left - side.
func decodeLeftSide(buf []int32) {
	n := len(buf) / 2
	left, side := buf[:n], buf[n:]
	for i := range left {
		side[i] = int32(int64(left[i]) - int64(side[i]))
	}
}

// decodeRightSide converts a side+right buffer in place to left++right.
// side = left - right  =>  left = right + side.
func decodeRightSide(buf []int32) {
	n := len(buf) / 2
	side, right := buf[:n], buf[n:]
	for i := range side {
		side[i] = int32(int64(right[i]) + int64(side[i]))
	}
}

// decodeMidSide converts a mid+side buffer in place to left++right.
// mid = (left+right)/2, side = left-right; mid is doubled and corrected for
// truncated rounding before recovering left/right.
func decodeMidSide(buf []int32) {
	n := len(buf) / 2
	mid, side := buf[:n], buf[n:]
	for i := range mid {
		m := int64(mid[i])
		s := int64(side[i])
		doubled := m*2 | (s & 1)
		mid[i] = int32((doubled + s) / 2)
		side[i] = int32((doubled - s) / 2)
	}
}

// correctBufferLen reuses buf's backing array when it already has enough
// capacity, avoiding a reallocation on every frame.
func correctBufferLen(buf []int32, newLen int) []int32 {
	if cap(buf) < newLen {
		return make([]int32, newLen)
	}
	return buf[:newLen]
}

// decodeNextFrame reads one FLAC frame, reusing blockBuffer's backing array
// when possible. A clean end of stream (no bytes available where a new
// frame's sync word would start) reports (nil, blockBuffer, nil) — not an
// error.
func decodeNextFrame(br *byteReader, blockBuffer []int32, info *AudioInfo) (*block, []int32, error) {
	crc16 := newCRC16Reader(br)
	crc8 := newCRC8Reader(crc16)

	syncWord, err := readU16BEFrom(crc8)
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, blockBuffer, nil
		}
		return nil, blockBuffer, err
	}

	header, err := readFrameHeader(crc8, info, syncWord)
	if err != nil {
		return nil, blockBuffer, err
	}

	bs := int(header.blockSize)
	numChannels := int(header.numberChannels())
	blockBuffer = correctBufferLen(blockBuffer, numChannels*bs)

	bits := newBitStream(crc16)

	switch header.chType {
	case chanIndependent:
		for ch := 0; ch < numChannels; ch++ {
			if err := decodeSubframe(bits, header.bitsPerSample, blockBuffer[ch*bs:(ch+1)*bs]); err != nil {
				return nil, blockBuffer, err
			}
		}
	case chanLeftSide:
		if err := decodeSubframe(bits, header.bitsPerSample, blockBuffer[:bs]); err != nil {
			return nil, blockBuffer, err
		}
		if err := decodeSubframe(bits, header.bitsPerSample+1, blockBuffer[bs:bs*2]); err != nil {
			return nil, blockBuffer, err
		}
		decodeLeftSide(blockBuffer[:bs*2])
	case chanRightSide:
		if err := decodeSubframe(bits, header.bitsPerSample+1, blockBuffer[:bs]); err != nil {
			return nil, blockBuffer, err
		}
		if err := decodeSubframe(bits, header.bitsPerSample, blockBuffer[bs:bs*2]); err != nil {
			return nil, blockBuffer, err
		}
		decodeRightSide(blockBuffer[:bs*2])
	case chanMidSide:
		if err := decodeSubframe(bits, header.bitsPerSample, blockBuffer[:bs]); err != nil {
			return nil, blockBuffer, err
		}
		if err := decodeSubframe(bits, header.bitsPerSample+1, blockBuffer[bs:bs*2]); err != nil {
			return nil, blockBuffer, err
		}
		decodeMidSide(blockBuffer[:bs*2])
	}

	expected := crc16.Sum()
	actual, err := readU16BEFrom(crc16.Inner())
	if err != nil {
		return nil, blockBuffer, err
	}
	if expected != actual {
		return nil, blockBuffer, parseError("frame CRC mismatch")
	}

	var firstSampleIndex uint64
	if header.isVariable {
		firstSampleIndex = header.frameOrSampleNumber
	} else {
		firstSampleIndex = uint64(header.blockSize) * header.frameOrSampleNumber
	}

	return &block{
		firstSampleIndex: firstSampleIndex,
		blockSize:        uint32(header.blockSize),
		numChannels:      uint32(numChannels),
		bitsPerSample:    header.bitsPerSample,
		buffer:           blockBuffer,
	}, blockBuffer, nil
}
