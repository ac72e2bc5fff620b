package cauldron

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// buildPCMWAV assembles a minimal canonical-fmt RIFF/WAVE file.
func buildPCMWAV(t *testing.T, channels uint16, sampleRate uint32, bitsPerSample uint16, data []byte) []byte {
	t.Helper()
	blockAlign := channels * (bitsPerSample / 8)
	byteRate := sampleRate * uint32(blockAlign)

	var fmtChunk bytes.Buffer
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&fmtChunk, binary.LittleEndian, channels)
	binary.Write(&fmtChunk, binary.LittleEndian, sampleRate)
	binary.Write(&fmtChunk, binary.LittleEndian, byteRate)
	binary.Write(&fmtChunk, binary.LittleEndian, blockAlign)
	binary.Write(&fmtChunk, binary.LittleEndian, bitsPerSample)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(4+8+fmtChunk.Len()+8+len(data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(fmtChunk.Len()))
	buf.Write(fmtChunk.Bytes())
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

func TestWAVScenarioS1(t *testing.T) {
	samples := []int16{0, 16384, -16384, 32767, -32768}
	data := make([]byte, 4410*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}

	raw := buildPCMWAV(t, 1, 44100, 16, data)
	seg, err := ReadWithFormat(bytes.NewReader(raw), FormatWAV)
	if err != nil {
		t.Fatalf("ReadWithFormat: %v", err)
	}

	info := seg.Info()
	if info.CodecType != CodecPCMS16LE {
		t.Fatalf("CodecType = %v; want PCM_S16LE", info.CodecType)
	}
	if info.SampleRate != 44100 {
		t.Fatalf("SampleRate = %d; want 44100", info.SampleRate)
	}
	if info.TotalSamples != 4410 {
		t.Fatalf("TotalSamples = %d; want 4410", info.TotalSamples)
	}
	if info.BitsPerSample != 16 {
		t.Fatalf("BitsPerSample = %d; want 16", info.BitsPerSample)
	}
	if info.ChannelLayout != LayoutMono {
		t.Fatalf("ChannelLayout = %v; want Mono", info.ChannelLayout)
	}
	if seg.NumberChannels() != info.Channels.PopCount() {
		t.Fatalf("invariant violated: NumberChannels() != popcount(Channels)")
	}
	if seg.NumberChannels() != info.ChannelLayout.ChannelCount() {
		t.Fatalf("invariant violated: NumberChannels() != ChannelLayout.ChannelCount()")
	}

	it, err := Samples[int16](seg)
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}

	want := append(append([]int16{}, samples...), make([]int16, 4405)...)
	for i, w := range want {
		v, ok, err := it.Next()
		if err != nil {
			t.Fatalf("Next() at %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("Next() at %d: unexpected end of stream", i)
		}
		if v != w {
			t.Fatalf("sample %d = %d; want %d", i, v, w)
		}
	}
	if _, ok, err := it.Next(); ok || err != nil {
		t.Fatalf("expected clean end of stream, got ok=%v err=%v", ok, err)
	}
}

func TestWAVSamplesTwiceIsUnsupported(t *testing.T) {
	raw := buildPCMWAV(t, 1, 8000, 16, make([]byte, 4))
	seg, err := ReadWithFormat(bytes.NewReader(raw), FormatWAV)
	if err != nil {
		t.Fatalf("ReadWithFormat: %v", err)
	}

	if _, err := Samples[int16](seg); err != nil {
		t.Fatalf("first Samples() call: %v", err)
	}
	_, err = Samples[int16](seg)
	if err == nil {
		t.Fatalf("expected Unsupported requesting a second iterator")
	}
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindUnsupported {
		t.Fatalf("expected KindUnsupported, got %v", err)
	}
}

func TestWAVExtensibleScenarioS6(t *testing.T) {
	var fmtChunk bytes.Buffer
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(0xFFFE)) // extensible
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(6))      // channels
	binary.Write(&fmtChunk, binary.LittleEndian, uint32(48000))  // sample rate
	blockAlign := uint16(6 * 3)                                  // 24-bit samples
	binary.Write(&fmtChunk, binary.LittleEndian, uint32(48000)*uint32(blockAlign))
	binary.Write(&fmtChunk, binary.LittleEndian, blockAlign)
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(24)) // bits_per_encoded_sample
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(22)) // extra size
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(24)) // valid bits
	binary.Write(&fmtChunk, binary.LittleEndian, uint32(0x3F))
	fmtChunk.Write(subtypePCM[:])

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(4+8+fmtChunk.Len()+8))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(fmtChunk.Len()))
	buf.Write(fmtChunk.Bytes())
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	seg, err := ReadWithFormat(bytes.NewReader(buf.Bytes()), FormatWAV)
	if err != nil {
		t.Fatalf("ReadWithFormat: %v", err)
	}
	info := seg.Info()
	if info.CodecType != CodecPCMS24LE {
		t.Fatalf("CodecType = %v; want PCM_S24LE", info.CodecType)
	}
	if info.ChannelLayout != LayoutFivePointOne {
		t.Fatalf("ChannelLayout = %v; want 5.1", info.ChannelLayout)
	}
	if info.NumberChannels() != 6 {
		t.Fatalf("NumberChannels() = %d; want 6", info.NumberChannels())
	}
}

func TestWAVExtensibleMULawGUID(t *testing.T) {
	var fmtChunk bytes.Buffer
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(0xFFFE)) // extensible
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(1))      // channels
	binary.Write(&fmtChunk, binary.LittleEndian, uint32(8000))   // sample rate
	blockAlign := uint16(1)
	binary.Write(&fmtChunk, binary.LittleEndian, uint32(8000)*uint32(blockAlign))
	binary.Write(&fmtChunk, binary.LittleEndian, blockAlign)
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(8)) // bits_per_encoded_sample
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(22)) // extra size
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(8))  // valid bits
	binary.Write(&fmtChunk, binary.LittleEndian, uint32(0x4)) // FC
	fmtChunk.Write(subtypeMULaw[:])

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(4+8+fmtChunk.Len()+8))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(fmtChunk.Len()))
	buf.Write(fmtChunk.Bytes())
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	seg, err := ReadWithFormat(bytes.NewReader(buf.Bytes()), FormatWAV)
	if err != nil {
		t.Fatalf("ReadWithFormat: %v", err)
	}
	if seg.Info().CodecType != CodecPCMMULaw {
		t.Fatalf("CodecType = %v; want PCM_MULAW", seg.Info().CodecType)
	}
}

func TestWAVExtensibleInvalidBitsRejected(t *testing.T) {
	var fmtChunk bytes.Buffer
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(0xFFFE)) // extensible
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(1))      // channels
	binary.Write(&fmtChunk, binary.LittleEndian, uint32(8000))   // sample rate
	blockAlign := uint16(1)
	binary.Write(&fmtChunk, binary.LittleEndian, uint32(8000)*uint32(blockAlign))
	binary.Write(&fmtChunk, binary.LittleEndian, blockAlign)
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(8)) // bits_per_encoded_sample
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(22)) // extra size
	binary.Write(&fmtChunk, binary.LittleEndian, uint16(17))  // valid bits: not a multiple of 8
	binary.Write(&fmtChunk, binary.LittleEndian, uint32(0x4)) // FC
	fmtChunk.Write(subtypeALaw[:])

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(4+8+fmtChunk.Len()+8))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(fmtChunk.Len()))
	buf.Write(fmtChunk.Bytes())
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	_, err := ReadWithFormat(bytes.NewReader(buf.Bytes()), FormatWAV)
	if err == nil {
		t.Fatalf("expected an error for valid_bits_per_sample=17")
	}
}

