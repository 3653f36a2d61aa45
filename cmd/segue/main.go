// ABOUTME: Entry point for the segue command line player
// ABOUTME: Gapless playlist playback and track probing from the terminal
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Segue-Audio/segue-go/internal/version"
	"github.com/Segue-Audio/segue-go/pkg/audio/probe"
	"github.com/Segue-Audio/segue-go/pkg/segue"
)

var (
	playVolume float64
	playQuiet  bool
)

var rootCmd = &cobra.Command{
	Use:   "segue",
	Short: "Gapless audio player",
	Long: `segue - gapless playback of local audio files.

Tracks hand off at the exact sample where the previous one ends: the next
file is decoded ahead of time and scheduled on the device clock, so album
sides and DJ mixes play through without a seam.

Supported formats: MP3, FLAC, WAV, Ogg Vorbis, Opus, raw s16le PCM.`,
}

var playCmd = &cobra.Command{
	Use:   "play <audio_file> [audio_file...]",
	Short: "Play audio files gaplessly in order",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlay,
}

var probeCmd = &cobra.Command{
	Use:   "probe <audio_file>",
	Short: "Print format, duration and channel layout of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runProbe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s (%s)\n", version.Product, version.Version, version.Manufacturer)
	},
}

func init() {
	playCmd.Flags().Float64VarP(&playVolume, "volume", "v", 1.0, "Playback volume (0.0-1.0)")
	playCmd.Flags().BoolVarP(&playQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.AddCommand(playCmd, probeCmd, versionCmd)
}

// queue walks a playlist: the player announces each track boundary and the
// queue responds by preloading whatever comes next.
type queue struct {
	mu    sync.Mutex
	files []string
	pos   int
	done  chan struct{}
}

func (q *queue) advance() (next string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pos++
	if q.pos+1 < len(q.files) {
		return q.files[q.pos+1], true
	}
	return "", false
}

func (q *queue) finished() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pos >= len(q.files)
}

func runPlay(cmd *cobra.Command, args []string) error {
	for _, f := range args {
		if !probe.Exists(f) {
			return fmt.Errorf("no such file: %s", f)
		}
	}

	q := &queue{files: args, done: make(chan struct{})}

	var player *segue.Player
	var err error
	player, err = segue.NewPlayer(segue.Config{
		Volume: playVolume,
		OnTrackBoundary: func() {
			next, ok := q.advance()
			if ok {
				player.PreloadNextTrack(next)
			}
			if q.finished() {
				close(q.done)
			}
		},
		OnError: func(err error) {
			log.Printf("Playback error: %v", err)
		},
	})
	if err != nil {
		return err
	}
	defer func() { _ = player.Close() }()

	if err := player.LoadTrack(args[0]); err != nil {
		return err
	}
	if len(args) > 1 {
		player.PreloadNextTrack(args[1])
	}
	player.Play()
	log.Printf("Playing %d track(s), starting with %s", len(args), args[0])

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var ticker *time.Ticker
	var tick <-chan time.Time
	if !playQuiet {
		ticker = time.NewTicker(time.Second)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-sigChan:
			log.Printf("Interrupted")
			player.Stop()
			return nil
		case <-q.done:
			// final track still sounding; wait for its natural end
			for player.IsPlaying() {
				time.Sleep(50 * time.Millisecond)
			}
			log.Printf("Playlist finished")
			return nil
		case <-tick:
			fmt.Printf("\r%s  %s / %s   ",
				player.ActiveTrackPath(),
				player.CurrentTime().Round(time.Second),
				player.Duration().Round(time.Second))
		}
	}
}

func runProbe(cmd *cobra.Command, args []string) error {
	info, err := probe.Probe(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("File:        %s\n", info.Filename)
	fmt.Printf("Format:      %s\n", info.Format)
	fmt.Printf("Duration:    %s\n", info.Duration.Round(time.Millisecond))
	fmt.Printf("Sample rate: %d Hz\n", info.SampleRate)
	fmt.Printf("Channels:    %d\n", info.Channels)
	fmt.Printf("Size:        %d bytes\n", info.SizeBytes)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
