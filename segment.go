package cauldron

import (
	"io"
	"os"
	"strings"
)

type segmentKind int

const (
	segmentWAV segmentKind = iota
	segmentFLAC
	segmentMP3
)

// AudioSegment is the entry point returned to callers: it carries the
// parsed AudioInfo and, internally, whichever container reader produced
// it. At most one sample iterator may ever be requested from it.
type AudioSegment struct {
	kind   segmentKind
	wav    *wavReader
	flac   *flacReader
	mp3    *mp3Reader
	info   AudioInfo
	closer io.Closer

	iteratorTaken bool
	generation    int
}

// Read opens the file at path and determines its container format from
// the file extension.
func Read(path string) (*AudioSegment, error) {
	flag, err := formatFlagFromExtension(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, ioError(err, "opening %s", path)
	}
	seg, err := ReadWithFormat(f, flag)
	if err != nil {
		f.Close()
		return nil, err
	}
	seg.closer = f
	return seg, nil
}

// ReadWithFormat parses source as the container named by flag, regardless
// of any file-extension hint.
func ReadWithFormat(source io.Reader, flag FormatFlag) (*AudioSegment, error) {
	br := newByteReader(source)
	switch flag {
	case FormatWAV:
		w, err := openWAV(br)
		if err != nil {
			return nil, err
		}
		return &AudioSegment{kind: segmentWAV, wav: w, info: w.info}, nil
	case FormatFLAC:
		f, err := openFLAC(br)
		if err != nil {
			return nil, err
		}
		return &AudioSegment{kind: segmentFLAC, flac: f, info: f.info}, nil
	case FormatMP3:
		m, err := openMP3(br)
		if err != nil {
			return nil, err
		}
		return &AudioSegment{kind: segmentMP3, mp3: m, info: m.info}, nil
	default:
		return nil, unsupportedError("codec flag not supported")
	}
}

func formatFlagFromExtension(filename string) (FormatFlag, error) {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 || idx == len(filename)-1 {
		return 0, unsupportedError("no decoder flag found for given file")
	}
	switch filename[idx+1:] {
	case "wav":
		return FormatWAV, nil
	case "flac":
		return FormatFLAC, nil
	case "mp3":
		return FormatMP3, nil
	case "aac":
		return FormatAAC, nil
	case "ogg":
		return FormatVorbis, nil
	case "raw", "pcm":
		return FormatPCM, nil
	default:
		return 0, unsupportedError("no decoder flag found for given file")
	}
}

// Info returns the audio info decoded from the container header.
func (s *AudioSegment) Info() AudioInfo { return s.info }

// NumberChannels returns the channel count.
func (s *AudioSegment) NumberChannels() int { return s.info.NumberChannels() }

// Duration returns the playback duration in seconds.
func (s *AudioSegment) Duration() float64 { return s.info.Duration() }

// Bitrate returns the nominal bitrate in kbps.
func (s *AudioSegment) Bitrate() float64 { return s.info.Bitrate() }

// Close releases the underlying file, if this segment was opened via Read,
// and invalidates any outstanding SampleIterator: their next pull reports
// KindUnsupported instead of reading through a closed container.
func (s *AudioSegment) Close() error {
	s.generation++
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// emptyBlock bootstraps a SampleIterator: its zero sample/channel counts
// make the very first Next() call fall straight into "decode the first
// block", with no special-cased nil check.
func emptyBlock() *block {
	return &block{}
}

// SampleIterator pulls channel-interleaved samples of type T out of an
// AudioSegment, one at a time, decoding containers blocks/frames lazily as
// they're consumed.
type SampleIterator[T Sample] struct {
	seg            *AudioSegment
	generation     int // seg.generation at the time Samples() was called
	currentBlock   *block
	samplesRead    uint32
	currentChannel uint32
	samplesLeft    uint64 // WAV only: total_samples countdown
	hasFailed      bool
}

// Samples requests the single channel-interleaved sample iterator an
// AudioSegment may ever produce. A second call on the same segment, or any
// call on an MP3 segment, reports KindUnsupported.
func Samples[T Sample](seg *AudioSegment) (*SampleIterator[T], error) {
	if seg.kind == segmentMP3 {
		return nil, unsupportedError("mp3 sample decoding not implemented")
	}
	if seg.iteratorTaken {
		return nil, unsupportedError("requesting iterator again")
	}
	seg.iteratorTaken = true
	return &SampleIterator[T]{
		seg:          seg,
		generation:   seg.generation,
		currentBlock: emptyBlock(),
		samplesLeft:  seg.info.TotalSamples,
	}, nil
}

// Next yields the next interleaved sample. (ok=false, err=nil) means clean
// end of stream; (ok=true, err=nil) is a sample; (ok=true, err!=nil) is a
// decode failure, after which every subsequent call also ends the stream.
func (it *SampleIterator[T]) Next() (T, bool, error) {
	var zero T
	if it.hasFailed {
		return zero, false, nil
	}
	if it.generation != it.seg.generation {
		it.hasFailed = true
		return zero, true, unsupportedError("sample iterator used after its segment was closed")
	}
	switch it.seg.kind {
	case segmentWAV:
		return it.nextWAV()
	case segmentFLAC:
		return it.nextFLAC()
	default:
		return zero, false, unsupportedError("mp3 sample decoding not implemented")
	}
}

func (it *SampleIterator[T]) nextWAV() (T, bool, error) {
	var zero T
	if it.samplesLeft == 0 {
		return zero, false, nil
	}
	v, err := readWAVSample[T](it.seg.wav)
	if err != nil {
		it.hasFailed = true
		return zero, true, err
	}
	it.samplesLeft--
	return v, true, nil
}

func (it *SampleIterator[T]) nextFLAC() (T, bool, error) {
	var zero T
	it.currentChannel++

	if it.currentChannel >= it.currentBlock.numChannels {
		it.currentChannel = 0
		it.samplesRead++

		if it.samplesRead >= it.currentBlock.sampleCount() {
			it.samplesRead = 0

			prevBuffer := it.currentBlock.buffer
			it.currentBlock = emptyBlock() // reused if decoding fails or ends cleanly
			next, _, err := it.seg.flac.nextBlock(prevBuffer)
			if err != nil {
				it.hasFailed = true
				return zero, true, err
			}
			if next == nil {
				return zero, false, nil
			}
			it.currentBlock = next
		}
	}

	sample := it.currentBlock.getSample(it.currentChannel, it.samplesRead)
	v, err := fromI32[T](sample, uint8(it.currentBlock.bitsPerSample))
	if err != nil {
		it.hasFailed = true
		return zero, true, err
	}
	return v, true, nil
}
