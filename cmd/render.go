package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"txt2tube/internal/pkg/ffmpeg"
	"txt2tube/internal/pkg/textenc"
	"txt2tube/internal/pkg/tts"
	"txt2tube/internal/service"
)

var renderCmd = &cobra.Command{
	Use:   "render <input.txt>",
	Short: "Render a Japanese text file into mp3 + srt + mp4",
	Long: `Split the input text into sentences, synthesize each sentence,
join the audio with punctuation-based pauses, write an SRT subtitle track
and burn it into an MP4 video.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	flags := renderCmd.Flags()
	flags.Bool("short", false, "render the vertical short-form profile")
	flags.String("output-dir", "", "output directory (default: next to the input file)")
	flags.String("tts-credentials-file", "", "Google Cloud service account JSON")

	_ = viper.BindPFlag("render.output_dir", flags.Lookup("output-dir"))
	_ = viper.BindPFlag("tts.credentials_file", flags.Lookup("tts-credentials-file"))
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	// Validate config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	synth, err := tts.NewClient(ctx, tts.Config{
		CredentialsFile: cfg.TTS.CredentialsFile,
		LanguageCode:    cfg.TTS.LanguageCode,
		SpeakingRate:    cfg.TTS.SpeakingRate,
	})
	if err != nil {
		return err
	}
	defer synth.Close()

	voices := cfg.TTS.Voices
	if len(voices) == 0 {
		voices = tts.DefaultVoices
	}

	svc := service.NewRenderService(
		cfg.Render,
		synth,
		ffmpeg.NewClient(ffmpeg.Config{
			FFmpegPath:  cfg.FFmpeg.FFmpegPath,
			FFprobePath: cfg.FFmpeg.FFprobePath,
		}),
		tts.NewRandomVoiceSelector(voices, nil),
		textenc.NewDecoder(),
	)

	profile := service.ProfileStandard
	if short, _ := cmd.Flags().GetBool("short"); short {
		profile = service.ProfileShort
	}

	res, err := svc.Render(ctx, &service.RenderRequest{
		InputPath: args[0],
		Profile:   profile,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("run_id", res.RunID).
		Int("sentences", res.Sentences).
		Float64("duration", res.Duration).
		Str("video", res.VideoPath).
		Msg("完成")
	return nil
}
