package cauldron

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFormatFlagFromExtension(t *testing.T) {
	cases := []struct {
		name string
		want FormatFlag
	}{
		{"song.wav", FormatWAV},
		{"song.flac", FormatFLAC},
		{"song.mp3", FormatMP3},
		{"song.aac", FormatAAC},
		{"song.ogg", FormatVorbis},
		{"song.raw", FormatPCM},
		{"song.pcm", FormatPCM},
	}
	for _, c := range cases {
		got, err := formatFlagFromExtension(c.name)
		if err != nil {
			t.Fatalf("formatFlagFromExtension(%q): %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("formatFlagFromExtension(%q) = %v; want %v", c.name, got, c.want)
		}
	}
}

func TestFormatFlagFromExtensionUnsupported(t *testing.T) {
	for _, name := range []string{"song", "song.", "song.mid"} {
		if _, err := formatFlagFromExtension(name); err == nil {
			t.Fatalf("formatFlagFromExtension(%q): expected an error", name)
		}
	}
}

func TestReadDispatchesOnExtensionAndCloses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.wav")
	raw := buildPCMWAV(t, 1, 8000, 16, []byte{0x01, 0x00, 0x02, 0x00})
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	seg, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if seg.Info().CodecType != CodecPCMS16LE {
		t.Fatalf("CodecType = %v; want PCM_S16LE", seg.Info().CodecType)
	}
	if err := seg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestReadUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.mid")
	if err := os.WriteFile(path, []byte("anything"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Read(path)
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindUnsupported {
		t.Fatalf("expected KindUnsupported for an unrecognized extension, got %v", err)
	}
}

func TestReadWithFormatUnknownFlag(t *testing.T) {
	_, err := ReadWithFormat(nil, FormatFlag(-1))
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindUnsupported {
		t.Fatalf("expected KindUnsupported for an unhandled format flag, got %v", err)
	}
}

func TestSampleIteratorDetectsClosedSegment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.wav")
	raw := buildPCMWAV(t, 1, 8000, 16, []byte{0x01, 0x00, 0x02, 0x00})
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	seg, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	it, err := Samples[int16](seg)
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if err := seg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, ok, err := it.Next()
	if err == nil {
		t.Fatalf("expected an error pulling from a closed segment")
	}
	if !ok {
		t.Fatalf("expected ok=true alongside the sticky error, per the iterator contract")
	}
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindUnsupported {
		t.Fatalf("expected KindUnsupported, got %v", err)
	}

	if _, ok2, err2 := it.Next(); ok2 || err2 != nil {
		t.Fatalf("expected clean end of stream after the closed-segment failure")
	}
}
