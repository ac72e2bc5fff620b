package cauldron

import "math/bits"

// Channels is a bitset of channel identifiers. Bit positions follow the
// WAV extensible channel mask convention.
type Channels uint32

// Channel bit positions (WAV extensible channel mask, §Glossary).
const (
	ChannelFL   Channels = 1 << iota // front left
	ChannelFR                        // front right
	ChannelFC                        // front center
	ChannelLFE                       // low-frequency effects
	ChannelBL                        // back left
	ChannelBR                        // back right
	ChannelFLoC                      // front left of center
	ChannelFRoC                      // front right of center
	ChannelBC                        // back center
	ChannelSL                        // side left
	ChannelSR                        // side right
	ChannelTC                        // top center
	ChannelTFL                       // top front left
	ChannelTFC                       // top front center
	ChannelTFR                       // top front right
	ChannelTBL                       // top back left
	ChannelTBC                       // top back center
	ChannelTBR                       // top back right
)

// PopCount returns the number of channels set.
func (c Channels) PopCount() int { return bits.OnesCount32(uint32(c)) }

// ChannelLayout is a derived mnemonic for a Channels bitset.
type ChannelLayout int

const (
	LayoutMono ChannelLayout = iota
	LayoutStereo
	LayoutTwoPointOne
	LayoutThreePointZero
	LayoutQuad
	LayoutFivePointZero
	LayoutFivePointOne
	LayoutSixPointOneBack
	LayoutSevenPointOne
)

func (l ChannelLayout) String() string {
	switch l {
	case LayoutMono:
		return "Mono"
	case LayoutStereo:
		return "Stereo"
	case LayoutTwoPointOne:
		return "2.1"
	case LayoutThreePointZero:
		return "3.0"
	case LayoutQuad:
		return "Quad"
	case LayoutFivePointZero:
		return "5.0"
	case LayoutFivePointOne:
		return "5.1"
	case LayoutSixPointOneBack:
		return "6.1-back"
	case LayoutSevenPointOne:
		return "7.1"
	default:
		return "Unknown"
	}
}

// ChannelCount returns the canonical number of channels for a layout.
func (l ChannelLayout) ChannelCount() int {
	switch l {
	case LayoutMono:
		return 1
	case LayoutStereo:
		return 2
	case LayoutTwoPointOne:
		return 3
	case LayoutThreePointZero:
		return 3
	case LayoutQuad:
		return 4
	case LayoutFivePointZero:
		return 5
	case LayoutFivePointOne:
		return 6
	case LayoutSixPointOneBack:
		return 7
	case LayoutSevenPointOne:
		return 8
	default:
		return 0
	}
}

// layoutFromChannelCount derives a channel layout from a bare channel count,
// used by FLAC (whose STREAMINFO carries only a count, never a mask).
func layoutFromChannelCount(n int) ChannelLayout {
	switch n {
	case 1:
		return LayoutMono
	case 2:
		return LayoutStereo
	case 3:
		return LayoutThreePointZero
	case 4:
		return LayoutQuad
	case 5:
		return LayoutFivePointZero
	case 6:
		return LayoutFivePointOne
	case 7:
		return LayoutSixPointOneBack
	case 8:
		return LayoutSevenPointOne
	default:
		return LayoutMono
	}
}

// channelsFromCount synthesizes a plausible Channels bitset for a bare
// channel count (FLAC has no channel mask). The chosen bit assignment for 7
// channels (6.1-back) uses FL,FR,FC,LFE,BC,SL,SR — the decision recorded in
// DESIGN.md's Open Question section, since FLAC itself never distinguishes
// 6.1 from 6.1-back.
func channelsFromCount(n int) Channels {
	switch n {
	case 1:
		return ChannelFC
	case 2:
		return ChannelFL | ChannelFR
	case 3:
		return ChannelFL | ChannelFR | ChannelFC
	case 4:
		return ChannelFL | ChannelFR | ChannelBL | ChannelBR
	case 5:
		return ChannelFL | ChannelFR | ChannelFC | ChannelBL | ChannelBR
	case 6:
		return ChannelFL | ChannelFR | ChannelFC | ChannelLFE | ChannelBL | ChannelBR
	case 7:
		return ChannelFL | ChannelFR | ChannelFC | ChannelLFE | ChannelBC | ChannelSL | ChannelSR
	case 8:
		return ChannelFL | ChannelFR | ChannelFC | ChannelLFE | ChannelBL | ChannelBR | ChannelSL | ChannelSR
	default:
		return ChannelFC
	}
}

// layoutFromChannelMask derives a layout from a WAV extensible channel mask
// by popcount, per spec.md §4.4's pragmatic fallback.
func layoutFromChannelMask(mask Channels) ChannelLayout {
	switch mask.PopCount() {
	case 2:
		return LayoutStereo
	case 3:
		return LayoutThreePointZero
	case 4:
		return LayoutQuad
	case 6:
		return LayoutFivePointOne
	case 8:
		return LayoutSevenPointOne
	default:
		return LayoutMono
	}
}

// CodecType names the concrete PCM layout for uncompressed audio, or the
// compressed codec identifier.
type CodecType int

const (
	CodecUnknown CodecType = iota
	CodecPCMU8
	CodecPCMS16LE
	CodecPCMS24LE
	CodecPCMS32LE
	CodecPCMF32LE
	CodecPCMF64LE
	CodecPCMALaw
	CodecPCMMULaw
	CodecFLAC
	CodecMP3
	CodecAAC
	CodecVorbis
)

func (c CodecType) String() string {
	switch c {
	case CodecPCMU8:
		return "PCM_U8"
	case CodecPCMS16LE:
		return "PCM_S16LE"
	case CodecPCMS24LE:
		return "PCM_S24LE"
	case CodecPCMS32LE:
		return "PCM_S32LE"
	case CodecPCMF32LE:
		return "PCM_F32LE"
	case CodecPCMF64LE:
		return "PCM_F64LE"
	case CodecPCMALaw:
		return "PCM_ALAW"
	case CodecPCMMULaw:
		return "PCM_MULAW"
	case CodecFLAC:
		return "FLAC"
	case CodecMP3:
		return "MP3"
	case CodecAAC:
		return "AAC"
	case CodecVorbis:
		return "VORBIS"
	default:
		return "UNKNOWN"
	}
}

// FormatFlag names the container/codec family used to select a reader.
type FormatFlag int

const (
	FormatAAC FormatFlag = iota
	FormatFLAC
	FormatMP3
	FormatPCM
	FormatWAV
	FormatVorbis
)

// AudioInfo is the immutable-after-header descriptor produced by reading a
// container's header.
type AudioInfo struct {
	CodecType     CodecType
	SampleRate    uint32
	TotalSamples  uint64
	BitsPerSample uint8
	Channels      Channels
	ChannelLayout ChannelLayout
}

// NumberChannels returns popcount(Channels). This equals
// ChannelLayout.ChannelCount() except for a WAV extensible channel mask with
// 0, 5, 7 or more than 8 bits set, whose layout falls back to LayoutMono.
func (a AudioInfo) NumberChannels() int { return a.Channels.PopCount() }

// Duration returns the playback duration in seconds.
func (a AudioInfo) Duration() float64 {
	nc := a.NumberChannels()
	if nc == 0 || a.SampleRate == 0 {
		return 0
	}
	return float64(a.TotalSamples) / (float64(nc) * float64(a.SampleRate))
}

// Bitrate returns the nominal bitrate in kbps.
func (a AudioInfo) Bitrate() float64 {
	return float64(a.SampleRate) / 1000 * float64(a.BitsPerSample) * float64(a.NumberChannels())
}
