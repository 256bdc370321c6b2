package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/application/usecase"
	"github.com/reelchat/reelchat/internal/domain/entity"
	domainErrors "github.com/reelchat/reelchat/pkg/errors"
)

// SessionConfig configures a terminal chat session.
type SessionConfig struct {
	ConversationID     string // continue this conversation; empty starts a new one
	SingleConversation bool   // server-side single-conversation mode
	Banner             BannerInfo
	Width              int
}

// Session is an interactive chat over the orchestrator, one turn per line.
type Session struct {
	chat          *usecase.ProcessMessageUseCase
	conversations *usecase.ConversationUseCase
	renderer      *Renderer
	config        SessionConfig
	in            io.Reader
	out           io.Writer
	logger        *zap.Logger

	conversationID string
}

// NewSession creates a session reading from in and writing to out.
func NewSession(
	chat *usecase.ProcessMessageUseCase,
	conversations *usecase.ConversationUseCase,
	cfg SessionConfig,
	in io.Reader,
	out io.Writer,
	logger *zap.Logger,
) *Session {
	return &Session{
		chat:           chat,
		conversations:  conversations,
		renderer:       NewRenderer(cfg.Width),
		config:         cfg,
		in:             in,
		out:            out,
		logger:         logger,
		conversationID: cfg.ConversationID,
	}
}

// ConversationID returns the conversation the session is writing to.
func (s *Session) ConversationID() string { return s.conversationID }

// Renderer returns the session renderer.
func (s *Session) Renderer() *Renderer { return s.renderer }

// Ask runs one orchestrated turn and returns the full transcript. In
// multi-conversation mode a conversation is created on first use.
func (s *Session) Ask(ctx context.Context, message string) ([]*entity.Message, error) {
	if !s.config.SingleConversation && s.conversationID == "" {
		conv, err := s.conversations.Create(ctx)
		if err != nil {
			return nil, err
		}
		s.conversationID = conv.ID
	}

	msgs, err := s.chat.Execute(ctx, usecase.SendMessageInput{
		Message:        message,
		ConversationID: s.conversationID,
	})
	if err != nil {
		return nil, err
	}
	if len(msgs) > 0 {
		s.conversationID = msgs[len(msgs)-1].ConversationID()
	}
	return msgs, nil
}

// Run starts the read-eval-print loop. It returns on /exit, EOF or ctx done.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprint(s.out, RenderBanner(s.config.Banner))

	scanner := bufio.NewScanner(s.in)
	// Allow long input lines
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(s.out, "\n› ")

		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if cmd := ParseSlashCommand(input); cmd != nil {
			if quit := s.handleCommand(ctx, cmd); quit {
				fmt.Fprintln(s.out, "Goodbye! 🍿")
				return nil
			}
			continue
		}

		if err := s.turn(ctx, input); err != nil {
			fmt.Fprintln(s.out, s.renderer.RenderNotice("Error: "+domainErrors.PublicMessage(err, err.Error())))
			s.logger.Error("Chat turn failed", zap.Error(err))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	fmt.Fprintln(s.out, "\nGoodbye! 🍿")
	return nil
}

func (s *Session) turn(ctx context.Context, input string) error {
	fmt.Fprintln(s.out, s.renderer.RenderThinking())

	start := time.Now()
	msgs, err := s.Ask(ctx, input)
	if err != nil {
		return err
	}

	reply := msgs[len(msgs)-1]
	fmt.Fprintln(s.out, s.renderer.RenderMessage(reply))
	fmt.Fprintln(s.out, s.renderer.RenderElapsed(time.Since(start)))
	return nil
}

// handleCommand runs a slash command and reports whether to quit.
func (s *Session) handleCommand(ctx context.Context, cmd *SlashCommand) bool {
	res := ExecuteCommand(cmd)
	if res.Output != "" {
		fmt.Fprintln(s.out, res.Output)
	}

	switch res.Action {
	case ActionQuit:
		return true
	case ActionNew:
		if s.config.SingleConversation {
			fmt.Fprintln(s.out, s.renderer.RenderNotice("Single-conversation mode keeps one transcript"))
			return false
		}
		s.conversationID = ""
	case ActionList:
		list, err := s.conversations.List(ctx)
		if err != nil {
			fmt.Fprintln(s.out, s.renderer.RenderNotice("Error: "+err.Error()))
			return false
		}
		fmt.Fprintln(s.out, s.renderer.RenderConversations(list, s.conversationID))
	case ActionOpen:
		detail, err := s.conversations.Get(ctx, res.Target)
		if err != nil {
			fmt.Fprintln(s.out, s.renderer.RenderNotice("Error: "+domainErrors.PublicMessage(err, err.Error())))
			return false
		}
		s.conversationID = detail.ID
		fmt.Fprintln(s.out, s.renderer.RenderTranscript(detail.Messages))
	case ActionHistory:
		if s.conversationID == "" && !s.config.SingleConversation {
			fmt.Fprintln(s.out, s.renderer.RenderTranscript(nil))
			return false
		}
		msgs, err := s.chat.GetTranscript(ctx, s.conversationID)
		if err != nil {
			fmt.Fprintln(s.out, s.renderer.RenderNotice("Error: "+domainErrors.PublicMessage(err, err.Error())))
			return false
		}
		fmt.Fprintln(s.out, s.renderer.RenderTranscript(msgs))
	}
	return false
}
