package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/reelchat/reelchat/internal/application"
	"github.com/reelchat/reelchat/internal/application/usecase"
	"github.com/reelchat/reelchat/internal/infrastructure/config"
	"github.com/reelchat/reelchat/internal/infrastructure/logger"
	"github.com/reelchat/reelchat/internal/interfaces/cli"
)

// ─── One-shot commands ───

// loadCLIApp builds the in-process app for terminal commands. Logs go to
// stderr at warn level unless --verbose is set, so stdout stays readable.
func loadCLIApp(cmd *cobra.Command) (*application.App, func(), error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	logCfg := loggerConfig(cfg)
	if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
		logCfg.Level = "warn"
		logCfg.Format = "console"
		if logCfg.OutputPath == "stdout" {
			logCfg.OutputPath = "stderr"
		}
	}
	log, err := logger.NewLogger(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("logger init: %w", err)
	}

	app, err := application.NewAppCLI(cfg, log)
	if err != nil {
		log.Sync()
		return nil, nil, fmt.Errorf("init: %w", err)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Stop(ctx); err != nil {
			log.Warn("Shutdown failed", zap.Error(err))
		}
		log.Sync()
	}
	return app, cleanup, nil
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newSession(app *application.App, conversationID string) *cli.Session {
	cfg := app.AppConfig()
	toolCount := 0
	if reg := app.ToolRegistry(); reg != nil {
		toolCount = len(reg.List())
	}
	return cli.NewSession(
		app.ProcessMessageUseCase(),
		app.ConversationUseCase(),
		cli.SessionConfig{
			ConversationID:     conversationID,
			SingleConversation: cfg.SingleConversation(),
			Banner: cli.BannerInfo{
				Model:     cfg.Agent.Model,
				ToolCount: toolCount,
				ChatMode:  cfg.Chat.Mode,
			},
		},
		os.Stdin, os.Stdout, app.Logger(),
	)
}

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [--conversation ID] <message...>",
		Short: "Run one chat turn and print the transcript",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := loadCLIApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signalContext()
			defer cancel()

			conversationID, _ := cmd.Flags().GetString("conversation")
			session := newSession(app, conversationID)

			msgs, err := session.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(session.Renderer().RenderTranscript(msgs))
			fmt.Fprintf(os.Stderr, "\nconversation: %s\n", session.ConversationID())
			return nil
		},
	}
	cmd.Flags().String("conversation", "", "continue an existing conversation")
	cmd.Flags().BoolP("verbose", "v", false, "log at the configured level")
	return cmd
}

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [--conversation ID]",
		Short: "Interactive chat in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := loadCLIApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signalContext()
			defer cancel()

			conversationID, _ := cmd.Flags().GetString("conversation")
			return newSession(app, conversationID).Run(ctx)
		},
	}
	cmd.Flags().String("conversation", "", "continue an existing conversation")
	cmd.Flags().BoolP("verbose", "v", false, "log at the configured level")
	return cmd
}

func newProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "probe [" + strings.Join(usecase.AvailableProbes, "|") + "]",
		Short:     "Check the LLM and TMDB wiring",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: usecase.AvailableProbes,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := loadCLIApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signalContext()
			defer cancel()

			test := ""
			if len(args) > 0 {
				test = args[0]
			}
			res, err := app.ProbeUseCase().Run(ctx, test)
			if err != nil {
				return fmt.Errorf("%w (available: %s)", err, strings.Join(usecase.AvailableProbes, ", "))
			}
			fmt.Println(cli.NewRenderer(0).RenderProbe(res))
			if !res.Success {
				return fmt.Errorf("probe %s failed", res.Test)
			}
			return nil
		},
	}
	cmd.Flags().BoolP("verbose", "v", false, "log at the configured level")
	return cmd
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration (secrets masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			out, err := yaml.Marshal(cfg.Redacted())
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}
}
