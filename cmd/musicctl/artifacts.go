package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Sixshoes/ai-music-assistant-sub000/pkg/client"
)

// writeArtifacts saves every non-empty artifact as <command-id>.<ext> under dir.
func writeArtifacts(res *client.Result, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	files := []struct {
		ext  string
		data []byte
	}{
		{"mid", res.MusicData.MIDIData},
		{"wav", res.MusicData.AudioData},
		{"musicxml", res.MusicData.ScoreData.MusicXML},
		{"pdf", res.MusicData.ScoreData.PDF},
	}

	var written []string
	for _, f := range files {
		if len(f.data) == 0 {
			continue
		}
		path := filepath.Join(dir, res.CommandID+"."+f.ext)
		if err := os.WriteFile(path, f.data, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}
