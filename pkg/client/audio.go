package client

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// AudioDataURL reads a recording and encodes it as a base64 data URL with its sniffed type.
func AudioDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return EncodeAudio(data)
}

// EncodeAudio wraps raw audio bytes in a data URL.
func EncodeAudio(data []byte) (string, error) {
	mime, ok := audioType(mimetype.Detect(data))
	if !ok {
		return "", fmt.Errorf("content looks like %s, not audio", mimetype.Detect(data).String())
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func audioType(mt *mimetype.MIME) (string, bool) {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return m.String(), true
		}
	}
	// browser recordings come in generic containers
	switch {
	case mt.Is("video/webm"):
		return "audio/webm", true
	case mt.Is("application/ogg"):
		return "audio/ogg", true
	}
	return "", false
}
