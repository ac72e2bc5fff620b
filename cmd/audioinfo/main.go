// Command audioinfo prints the container-level audio info (sample rate,
// channel layout, bit depth, duration, bitrate) for a WAV or FLAC file. An
// MP3 file is opened without reading any frame, so only its codec line is
// meaningful.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/x0f5c3/cauldron"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const (
	logPath    = "audioinfo.log"
	logMaxSize = 10 // MB
	logMaxAge  = 28 // days
	logBackups = 3
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <path>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(&lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxAge:     logMaxAge,
		MaxBackups: logBackups,
	}, nil))

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	logger.Info("opening audio file", "path", path)
	seg, err := cauldron.Read(path)
	if err != nil {
		logger.Error("failed to open audio file", "path", path, "error", err)
		fmt.Fprintf(os.Stderr, "audioinfo: %v\n", err)
		os.Exit(1)
	}
	defer seg.Close()

	info := seg.Info()
	fmt.Printf("codec:          %s\n", info.CodecType)
	fmt.Printf("sample rate:    %d Hz\n", info.SampleRate)
	fmt.Printf("channels:       %d (%s)\n", info.NumberChannels(), info.ChannelLayout)
	fmt.Printf("bits/sample:    %d\n", info.BitsPerSample)
	fmt.Printf("total samples:  %d\n", info.TotalSamples)
	fmt.Printf("duration:       %.3fs\n", seg.Duration())
	fmt.Printf("bitrate:        %.1f kb/s\n", seg.Bitrate())

	logger.Info("done", "path", path)
}
