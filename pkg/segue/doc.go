// ABOUTME: Package documentation for the segue public API
// ABOUTME: Describes the gapless playback model and typical usage
// Package segue provides gapless playback of local audio files.
//
// A Player holds at most two tracks: the current one and a preloaded next
// one. Feed it the current track with LoadTrack, the upcoming track with
// PreloadNextTrack, and the engine schedules the handoff at the exact
// sample where the current track ends. OnTrackBoundary fires once per
// handoff so the caller can advance its queue and preload again:
//
//	player, err := segue.NewPlayer(segue.Config{
//		OnTrackBoundary: func() { /* preload the next queue entry */ },
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer player.Close()
//
//	if err := player.LoadTrack("a.flac"); err != nil {
//		log.Fatal(err)
//	}
//	player.PreloadNextTrack("b.flac")
//	player.Play()
//
// Positions come from the device clock, the count of frames the device has
// rendered, so CurrentTime is sample-accurate and never runs backwards.
// Supported formats: MP3, FLAC, WAV, Ogg Vorbis, Opus and raw s16le PCM.
package segue
