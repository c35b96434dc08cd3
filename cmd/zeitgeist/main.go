package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/mathieu-neron/zeitgeist/internal/acquire"
	"github.com/mathieu-neron/zeitgeist/internal/classifier"
	"github.com/mathieu-neron/zeitgeist/internal/middleware"
	"github.com/mathieu-neron/zeitgeist/internal/model"
	"github.com/mathieu-neron/zeitgeist/internal/service"
)

var version = "dev"

var (
	serverFlag = &cli.StringFlag{
		Name:    "server",
		Usage:   "Classification service base URL",
		Value:   "http://127.0.0.1:8000",
		Sources: cli.EnvVars("CLASSIFIER_URL"),
	}
	modeFlag = &cli.StringFlag{
		Name:    "mode",
		Usage:   "How YouTube videos reach the classifier [upload, remote]",
		Value:   service.ModeUpload,
		Sources: cli.EnvVars("CLASSIFIER_MODE"),
	}
	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [table, json, yaml]",
		Value: formatTable,
	}
	ytdlpFlag = &cli.StringFlag{
		Name:    "ytdlp",
		Usage:   "Path to the yt-dlp binary",
		Value:   "yt-dlp",
		Sources: cli.EnvVars("YTDLP_PATH"),
	}
	resolutionFlag = &cli.IntFlag{
		Name:  "resolution",
		Usage: "Download height in pixels",
		Value: 360,
	}
	workDirFlag = &cli.StringFlag{
		Name:  "work-dir",
		Usage: "Directory for downloaded videos (default: a temp dir removed on exit)",
	}
	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "Classifier request timeout",
		Value: 5 * time.Minute,
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Print verbose logs to stderr",
	}
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "zeitgeist",
		Usage:   "Classify a video for harmful content and print the score tables",
		Version: version,
		Flags: []cli.Flag{
			serverFlag,
			modeFlag,
			formatFlag,
			ytdlpFlag,
			resolutionFlag,
			workDirFlag,
			timeoutFlag,
			debugFlag,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			initLogging(cmd.Bool(debugFlag.Name))
			if _, err := parseFormat(cmd.String(formatFlag.Name)); err != nil {
				return ctx, err
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:      "url",
				Usage:     "Classify a YouTube video",
				ArgsUsage: "<youtube-url>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					raw, errMsg := middleware.ValidateYouTubeURL(cmd.Args().First())
					if errMsg != "" {
						return cli.Exit(errMsg, 2)
					}
					return run(ctx, cmd, func(svc *service.ClassificationService) (*model.ClassificationResponse, error) {
						return svc.ClassifyURL(ctx, raw)
					})
				},
			},
			{
				Name:      "file",
				Usage:     "Classify a local video file",
				ArgsUsage: "<path>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path := cmd.Args().First()
					name, errMsg := middleware.ValidateUploadName(path)
					if errMsg != "" {
						return cli.Exit(errMsg, 2)
					}
					f, err := os.Open(path)
					if err != nil {
						return fmt.Errorf("opening video: %w", err)
					}
					defer f.Close()

					return run(ctx, cmd, func(svc *service.ClassificationService) (*model.ClassificationResponse, error) {
						return svc.ClassifyUpload(ctx, name, f)
					})
				},
			},
		},
	}
}

func run(ctx context.Context, cmd *cli.Command, classify func(*service.ClassificationService) (*model.ClassificationResponse, error)) error {
	workDir := cmd.String(workDirFlag.Name)
	if workDir == "" {
		tmp, err := os.MkdirTemp("", "zeitgeist-")
		if err != nil {
			return fmt.Errorf("creating work dir: %w", err)
		}
		defer os.RemoveAll(tmp)
		workDir = tmp
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return fmt.Errorf("resolving work dir: %w", err)
	}

	cl := classifier.New(classifier.Config{
		BaseURL: cmd.String(serverFlag.Name),
		Timeout: cmd.Duration(timeoutFlag.Name),
	})
	dl := acquire.NewYtDlp(cmd.String(ytdlpFlag.Name), int(cmd.Int(resolutionFlag.Name)))
	svc := service.NewClassificationService(cl, dl, nil, workDir, cmd.String(modeFlag.Name))

	log.Debug().Str("classifier", cl.BaseURL()).Str("work_dir", workDir).Msg("classifying")
	resp, err := classify(svc)
	if err != nil {
		return err
	}

	format, _ := parseFormat(cmd.String(formatFlag.Name))
	return render(cmd.Root().Writer, format, resp)
}

func initLogging(debug bool) {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().
		Timestamp().
		Logger()
}
