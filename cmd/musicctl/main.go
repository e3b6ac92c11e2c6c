package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sixshoes/ai-music-assistant-sub000/pkg/client"
)

var (
	serverURL    string
	userID       string
	pollInterval string
)

var rootCmd = &cobra.Command{
	Use:           "musicctl",
	Short:         "musicctl - drive the AI music assistant API",
	Long:          `musicctl submits music creation commands, follows their progress and downloads the rendered MIDI, WAV, MusicXML and PDF files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	defaultURL := os.Getenv("MUSIC_API_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultURL, "API base URL (env MUSIC_API_URL)")
	rootCmd.PersistentFlags().StringVar(&userID, "user", os.Getenv("MUSIC_API_USER"), "caller id sent as X-User-ID when the API runs behind a gateway")
	rootCmd.PersistentFlags().StringVar(&pollInterval, "poll", "1s", "status poll interval")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(resultCmd)
	rootCmd.AddCommand(waitCmd)
}

func newClient() (*client.Client, error) {
	interval, err := parseDuration(pollInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid --poll: %w", err)
	}
	opts := []client.Option{client.WithPollInterval(interval)}
	if userID != "" {
		opts = append(opts, client.WithHeader("X-User-ID", userID))
	}
	return client.New(serverURL, opts...), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		os.Exit(1)
	}
}
