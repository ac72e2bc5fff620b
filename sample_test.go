package cauldron

import (
	"bytes"
	"testing"
)

func TestReadPCMS16LE(t *testing.T) {
	// 0, 16384, -16384, 32767, -32768 as little-endian i16.
	data := []byte{
		0x00, 0x00,
		0x00, 0x40,
		0x00, 0xC0,
		0xFF, 0x7F,
		0x00, 0x80,
	}
	br := newByteReader(bytes.NewReader(data))
	want := []int16{0, 16384, -16384, 32767, -32768}
	for i, w := range want {
		v, err := readPCM[int16](br, CodecPCMS16LE)
		if err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
		if v != w {
			t.Fatalf("sample %d = %d; want %d", i, v, w)
		}
	}
}

func TestReadPCMU8WidenedToI16(t *testing.T) {
	// scenario S2: stereo 8-bit PCM, bytes [0x00, 0xFF, 0x80, 0x80].
	data := []byte{0x00, 0xFF, 0x80, 0x80}

	br := newByteReader(bytes.NewReader(data))
	wantU8 := []uint8{0, 255, 128, 128}
	for i, w := range wantU8 {
		v, err := readPCM[uint8](br, CodecPCMU8)
		if err != nil || v != w {
			t.Fatalf("u8 sample %d = %v, %v; want %d, nil", i, v, err, w)
		}
	}

	br2 := newByteReader(bytes.NewReader(data))
	wantI16 := []int16{0, 255, 128, 128}
	for i, w := range wantI16 {
		v, err := readPCM[int16](br2, CodecPCMU8)
		if err != nil || v != w {
			t.Fatalf("i16-widened sample %d = %v, %v; want %d, nil", i, v, err, w)
		}
	}
}

func TestRiceToSigned(t *testing.T) {
	for n := int32(0); n < 1000; n++ {
		if got := riceToSigned(uint32(2 * n)); got != n {
			t.Fatalf("riceToSigned(%d) = %d; want %d", 2*n, got, n)
		}
		if got := riceToSigned(uint32(2*n + 1)); got != -(n + 1) {
			t.Fatalf("riceToSigned(%d) = %d; want %d", 2*n+1, got, -(n + 1))
		}
	}
}

func TestFromI32NarrowsToU8WithBias(t *testing.T) {
	v, err := fromI32[uint8](-1, 8)
	if err != nil {
		t.Fatalf("fromI32: %v", err)
	}
	if v != 127 {
		t.Fatalf("fromI32(-1, 8) as uint8 = %d; want 127", v)
	}
}

func TestFromI32RejectsOverflowingTarget(t *testing.T) {
	if _, err := fromI32[int16](1<<20, 24); err == nil {
		t.Fatalf("expected unsupported error narrowing a 24-bit sample into int16")
	}
}
