package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sixshoes/ai-music-assistant-sub000/pkg/client"
)

var submitFlags struct {
	commandType string
	audioPath   string
	melodyPath  string
	key         string
	genre       string
	mood        string
	instruments []string
	tempo       int
	duration    int
	complexity  int
	enhance     bool
	wait        bool
	outDir      string
}

var submitCmd = &cobra.Command{
	Use:   "submit [text]",
	Short: "Queue a music creation command",
	Long: `Queue a command from a text prompt, a melody JSON file or an audio recording.
Explicit flags override anything the server derives from the text.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSubmit,
}

var statusCmd = &cobra.Command{
	Use:   "status <command-id>",
	Short: "Show the lifecycle state of a command",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		st, err := c.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printStatus(st)
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <command-id>",
	Short: "Cancel a pending or processing command",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.Cancel(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s %s (%s)\n", color.YellowString(res.Message), res.CommandID, res.Status)
		return nil
	},
}

var resultOutDir string

var resultCmd = &cobra.Command{
	Use:   "result <command-id>",
	Short: "Download the artifacts of a completed command",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.Result(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(res, resultOutDir)
	},
}

var waitOutDir string

var waitCmd = &cobra.Command{
	Use:   "wait <command-id>",
	Short: "Poll a command until it finishes, then download its artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		return waitAndSave(cmd.Context(), c, args[0], waitOutDir)
	},
}

func init() {
	f := submitCmd.Flags()
	f.StringVarP(&submitFlags.commandType, "type", "t", "", "command type (text_to_music, melody_to_arrangement, pitch_correction, music_analysis, style_transfer, improvisation)")
	f.StringVar(&submitFlags.audioPath, "audio", "", "audio recording to upload")
	f.StringVar(&submitFlags.melodyPath, "melody", "", `melody JSON file ({"notes":[{"pitch":60,"start_time":0,"duration":0.5,"velocity":90}]})`)
	f.StringVar(&submitFlags.key, "key", "", `key, e.g. "A minor"`)
	f.StringVar(&submitFlags.genre, "genre", "", "genre")
	f.StringVar(&submitFlags.mood, "mood", "", "mood")
	f.StringSliceVar(&submitFlags.instruments, "instrument", nil, "instrument (repeatable)")
	f.IntVar(&submitFlags.tempo, "tempo", 0, "tempo in BPM")
	f.IntVar(&submitFlags.duration, "duration", 0, "length in seconds")
	f.IntVar(&submitFlags.complexity, "complexity", 0, "complexity 1-10")
	f.BoolVar(&submitFlags.enhance, "enhance", false, "let the language model refine the parameters")
	f.BoolVarP(&submitFlags.wait, "wait", "w", false, "wait for the result and download it")
	f.StringVarP(&submitFlags.outDir, "out", "o", ".", "directory for downloaded artifacts")

	resultCmd.Flags().StringVarP(&resultOutDir, "out", "o", ".", "directory for downloaded artifacts")
	waitCmd.Flags().StringVarP(&waitOutDir, "out", "o", ".", "directory for downloaded artifacts")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	text := ""
	if len(args) == 1 {
		text = args[0]
	}
	params := submitParameters()

	var sub *client.Submission
	if submitFlags.audioPath != "" {
		dataURL, err := client.AudioDataURL(submitFlags.audioPath)
		if err != nil {
			return err
		}
		sub, err = c.SubmitAudio(cmd.Context(), client.AudioRequest{
			AudioDataURL:   dataURL,
			AdditionalText: text,
			Parameters:     params,
			CommandType:    submitFlags.commandType,
			Enhance:        submitFlags.enhance,
		})
		if err != nil {
			return err
		}
	} else {
		req := client.TextRequest{
			Text:        text,
			Parameters:  params,
			CommandType: submitFlags.commandType,
			Enhance:     submitFlags.enhance,
		}
		if submitFlags.melodyPath != "" {
			raw, err := os.ReadFile(submitFlags.melodyPath)
			if err != nil {
				return err
			}
			var melody client.Melody
			if err := json.Unmarshal(raw, &melody); err != nil {
				return fmt.Errorf("parse %s: %w", submitFlags.melodyPath, err)
			}
			req.Melody = &melody
		}
		sub, err = c.SubmitText(cmd.Context(), req)
		if err != nil {
			return err
		}
	}

	fmt.Printf("%s %s\n", color.GreenString("Queued"), color.CyanString(sub.CommandID))
	if !submitFlags.wait {
		return nil
	}
	return waitAndSave(cmd.Context(), c, sub.CommandID, submitFlags.outDir)
}

func submitParameters() *client.Parameters {
	var p client.Parameters
	set := false
	if submitFlags.key != "" {
		p.Key, set = &submitFlags.key, true
	}
	if submitFlags.genre != "" {
		p.Genre, set = &submitFlags.genre, true
	}
	if submitFlags.mood != "" {
		p.Mood, set = &submitFlags.mood, true
	}
	if len(submitFlags.instruments) > 0 {
		p.Instruments, set = submitFlags.instruments, true
	}
	if submitFlags.tempo > 0 {
		p.Tempo, set = &submitFlags.tempo, true
	}
	if submitFlags.duration > 0 {
		p.Duration, set = &submitFlags.duration, true
	}
	if submitFlags.complexity > 0 {
		p.Complexity, set = &submitFlags.complexity, true
	}
	if !set {
		return nil
	}
	return &p
}

// waitAndSave cancels the command if the user interrupts the wait.
func waitAndSave(ctx context.Context, c *client.Client, id, outDir string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	last := ""
	res, err := c.WaitForResult(ctx, id, func(st *client.Status) {
		if st.Status != last {
			fmt.Printf("  %s %s\n", color.HiBlackString(time.Now().Format("15:04:05")), statusColor(st.Status))
			last = st.Status
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			cancelCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, cerr := c.Cancel(cancelCtx, id); cerr == nil {
				fmt.Println(color.YellowString("Interrupted, command cancelled"))
			}
		}
		return err
	}
	return printResult(res, outDir)
}

func printStatus(st *client.Status) {
	fmt.Printf("%s  %s  %s\n", color.CyanString(st.CommandID), st.CommandType, statusColor(st.Status))
	if st.Error != "" {
		fmt.Printf("  %s %s\n", color.RedString("error:"), st.Error)
	}
	if st.CompletedAt != nil {
		fmt.Printf("  finished %s\n", st.CompletedAt.Local().Format(time.RFC3339))
	}
}

func printResult(res *client.Result, outDir string) error {
	a := res.Analysis
	bold := color.New(color.Bold)
	bold.Println("Analysis")
	fmt.Printf("  key %s, %d BPM, %s", a.Key, a.Tempo, a.TimeSignature)
	if a.Genre != "" {
		fmt.Printf(", %s", a.Genre)
	}
	if a.Mood != "" {
		fmt.Printf(", %s", a.Mood)
	}
	fmt.Println()
	if len(a.Instruments) > 0 {
		fmt.Printf("  instruments: %s\n", strings.Join(a.Instruments, ", "))
	}
	if len(a.ChordProgression) > 0 {
		fmt.Printf("  chords: %s\n", strings.Join(a.ChordProgression, " "))
	}
	if len(a.Structure) > 0 {
		fmt.Printf("  structure: %s\n", strings.Join(a.Structure, " "))
	}
	if res.CacheHit {
		fmt.Println(color.HiBlackString("  served from cache"))
	}

	if len(res.Suggestions) > 0 {
		bold.Println("Suggestions")
		for _, s := range res.Suggestions {
			fmt.Printf("  - %s\n", s)
		}
	}

	written, err := writeArtifacts(res, outDir)
	if err != nil {
		return err
	}
	bold.Println("Files")
	for _, path := range written {
		fmt.Printf("  %s\n", color.GreenString(path))
	}
	return nil
}

func statusColor(status string) string {
	switch status {
	case client.StatusCompleted:
		return color.GreenString(status)
	case client.StatusError:
		return color.RedString(status)
	case client.StatusCancelled:
		return color.YellowString(status)
	default:
		return color.BlueString(status)
	}
}
