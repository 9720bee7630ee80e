package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"txt2tube/internal/pkg/metadata"
	"txt2tube/internal/pkg/storage"
	"txt2tube/internal/pkg/storagefactory"
	"txt2tube/internal/pkg/youtube"
	"txt2tube/internal/service"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [video.mp4]",
	Short: "Upload a video with metadata from its matching text file",
	Long: `Resolve the companion text file of a video (same-directory fuzzy match,
fallback names, recursive search), build title and description from it,
upload to YouTube and move the related files into the done area.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	flags := uploadCmd.Flags()

	// Video
	flags.String("video", "", "video path (takes precedence over the positional argument)")

	// Metadata
	flags.String("mode", service.ModeNone, "preset switch (joyuu/kashu/kankyou/yakuza/none)")
	flags.String("privacy-status", "public", "privacy status (public/unlisted/private)")
	flags.String("category-id", "", "YouTube categoryId (default: from mode or config)")
	flags.String("prefix", "", "title prefix (default: from mode or config)")
	flags.String("tags", "", "comma separated tags (default: from mode or config)")

	// Matching
	flags.Float64("txt-similarity", 0.90, "similarity threshold for the text file match")
	flags.Bool("loose-txt", false, "loosen the threshold (down to 0.80 at most)")
	flags.String("search-root", "", "root directory for the recursive text search")
	flags.Bool("no-recursive", false, "disable the recursive text search")
	flags.Bool("confirm", false, "ask y/N before adopting a recursive candidate")

	// Behaviour
	flags.Bool("dry-run", false, "resolve and print metadata without uploading")
	flags.Bool("no-move", false, "keep files in place after a successful upload")
	flags.Bool("no-progress", false, "do not print upload progress")
	flags.String("done-dir", "done", "done directory (relative to the video directory)")

	// Auth
	flags.String("token-file", "token.json", "OAuth token cache")
	flags.String("credentials-file", "client_secret.json", "OAuth client secret JSON")
	flags.Int("port", youtube.DefaultOAuthPort, "local port for the OAuth callback")

	// Bind flags to viper
	_ = viper.BindPFlag("upload.privacy_status", flags.Lookup("privacy-status"))
	_ = viper.BindPFlag("upload.token_file", flags.Lookup("token-file"))
	_ = viper.BindPFlag("upload.credentials_file", flags.Lookup("credentials-file"))
	_ = viper.BindPFlag("upload.oauth_port", flags.Lookup("port"))
	_ = viper.BindPFlag("upload.no_move", flags.Lookup("no-move"))
	_ = viper.BindPFlag("match.threshold", flags.Lookup("txt-similarity"))
	_ = viper.BindPFlag("match.search_root", flags.Lookup("search-root"))
	_ = viper.BindPFlag("match.confirm", flags.Lookup("confirm"))
	_ = viper.BindPFlag("storage.local.base_path", flags.Lookup("done-dir"))
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	flags := cmd.Flags()

	// 反向开关只在显式指定时覆盖配置
	if flags.Changed("no-recursive") {
		v, _ := flags.GetBool("no-recursive")
		cfg.Match.Recursive = !v
	}
	if flags.Changed("no-progress") {
		v, _ := flags.GetBool("no-progress")
		cfg.Upload.ShowProgress = !v
	}

	// Validate config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	var ov service.Overrides
	for name, dst := range map[string]**string{
		"prefix":      &ov.Prefix,
		"tags":        &ov.Tags,
		"category-id": &ov.CategoryID,
	} {
		if flags.Changed(name) {
			v, _ := flags.GetString(name)
			*dst = &v
		}
	}
	mode, _ := flags.GetString("mode")
	settings, err := service.ResolveSettings(cfg.Upload, mode, ov)
	if err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	videoFlag, _ := flags.GetString("video")
	var positional string
	if len(args) > 0 {
		positional = args[0]
	}
	videoPath, err := service.ResolveVideoPath(videoFlag, positional, wd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	newUploader := func(ctx context.Context) (service.Uploader, error) {
		httpClient, err := youtube.Authenticate(ctx, youtube.AuthConfig{
			CredentialsFile: cfg.Upload.CredentialsFile,
			TokenFile:       cfg.Upload.TokenFile,
			Port:            cfg.Upload.OAuthPort,
			Timeout:         cfg.Upload.OAuthTimeout,
		})
		if err != nil {
			return nil, err
		}
		client, err := youtube.NewClient(ctx, httpClient, youtube.Options{
			MaxRetries:   cfg.Upload.MaxRetries,
			ChunkSize:    cfg.Upload.ChunkSize,
			ShowProgress: cfg.Upload.ShowProgress,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	newStorage := func(ctx context.Context, baseDir string) (storage.Storage, error) {
		return storagefactory.NewStorage(ctx, &cfg.Storage, baseDir)
	}

	var confirm metadata.ConfirmFunc
	if cfg.Match.Confirm {
		confirm = metadata.NewConsoleConfirm(cmd.InOrStdin(), cmd.OutOrStdout())
	}

	dryRun, _ := flags.GetBool("dry-run")
	looseTxt, _ := flags.GetBool("loose-txt")

	svc := service.NewUploadService(newUploader, newStorage, metadata.NewExtractor(nil), cmd.OutOrStdout())
	res, err := svc.Upload(ctx, &service.UploadRequest{
		VideoPath: videoPath,
		Settings:  settings,
		Match:     cfg.Match,
		LooseTxt:  looseTxt,
		Confirm:   confirm,
		DryRun:    dryRun,
		NoMove:    cfg.Upload.NoMove,
	})
	if err != nil {
		// 上传失败已输出给操作者，文件保持原位
		if errors.Is(err, youtube.ErrUploadFailed) {
			log.Error().Err(err).Str("video", videoPath).Msg("上传失败")
			return nil
		}
		return err
	}

	if res.VideoID != "" {
		log.Info().Str("video_id", res.VideoID).Str("url", res.URL).Msg("完成")
	}
	return nil
}
