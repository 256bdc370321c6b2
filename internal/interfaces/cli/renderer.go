package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/reelchat/reelchat/internal/application/usecase"
	"github.com/reelchat/reelchat/internal/domain/entity"
)

// Renderer handles all output rendering: markdown, transcripts, probes
type Renderer struct {
	glamour *glamour.TermRenderer
	width   int
}

// NewRenderer creates a renderer with the given terminal width
func NewRenderer(width int) *Renderer {
	if width <= 0 {
		width = 80
	}
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	return &Renderer{
		glamour: r,
		width:   width,
	}
}

// RenderMarkdown renders markdown text to styled terminal output
func (r *Renderer) RenderMarkdown(md string) string {
	if r.glamour == nil {
		return md
	}
	out, err := r.glamour.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

// RenderMessage renders one transcript entry with its role label.
// Agent replies are markdown; user text is printed as typed.
func (r *Renderer) RenderMessage(m *entity.Message) string {
	if m == nil {
		return ""
	}
	timeStyle := lipgloss.NewStyle().Foreground(colorDim)
	stamp := timeStyle.Render(m.CreatedAt().Local().Format("15:04"))

	if m.IsFromAgent() {
		label := lipgloss.NewStyle().Foreground(colorCyan).Bold(true).Render("🎬 ReelChat")
		return fmt.Sprintf("%s %s\n%s", label, stamp, r.RenderMarkdown(m.Content()))
	}
	label := lipgloss.NewStyle().Foreground(colorGreen).Bold(true).Render("› You")
	body := lipgloss.NewStyle().Foreground(colorWhite).Render(m.Content())
	return fmt.Sprintf("%s %s\n  %s", label, stamp, body)
}

// RenderTranscript renders messages in order, separated by blank lines
func (r *Renderer) RenderTranscript(msgs []*entity.Message) string {
	if len(msgs) == 0 {
		return lipgloss.NewStyle().Foreground(colorGray).Render("  (no messages yet)")
	}
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, r.RenderMessage(m))
	}
	return strings.Join(parts, "\n\n")
}

// RenderConversations renders the conversation list, newest first
func (r *Renderer) RenderConversations(list []entity.ConversationSummary, current string) string {
	if len(list) == 0 {
		return lipgloss.NewStyle().Foreground(colorGray).Render("  (no conversations)")
	}
	idStyle := lipgloss.NewStyle().Foreground(colorDimCyan)
	titleStyle := lipgloss.NewStyle().Foreground(colorWhite)
	countStyle := lipgloss.NewStyle().Foreground(colorGray)

	var sb strings.Builder
	for _, s := range list {
		marker := "  "
		if s.ID == current {
			marker = lipgloss.NewStyle().Foreground(colorGreen).Render("▸ ")
		}
		sb.WriteString(fmt.Sprintf("%s%s  %s %s\n",
			marker,
			idStyle.Render(s.ID),
			titleStyle.Render(s.Title),
			countStyle.Render(fmt.Sprintf("(%d)", s.MessageCount)),
		))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RenderProbe renders a diagnostics result
func (r *Renderer) RenderProbe(res *usecase.ProbeResult) string {
	if res == nil {
		return ""
	}
	nameStyle := lipgloss.NewStyle().Foreground(colorCyan).Bold(true)

	icon := lipgloss.NewStyle().Foreground(colorGreen).Render("✓")
	if !res.Success {
		icon = lipgloss.NewStyle().Foreground(colorRed).Render("✗")
	}
	head := fmt.Sprintf("  %s %s", icon, nameStyle.Render(res.Test))

	switch {
	case res.Error != "":
		return head + "\n  " + lipgloss.NewStyle().Foreground(colorRed).Render(res.Error)
	case res.Response != "":
		return head + "\n" + r.RenderMarkdown(res.Response)
	case res.Result != nil:
		data, err := json.MarshalIndent(res.Result, "  ", "  ")
		if err != nil {
			return head
		}
		return head + "\n  " + string(data)
	}
	return head
}

// RenderThinking renders a waiting indicator
func (r *Renderer) RenderThinking() string {
	style := lipgloss.NewStyle().Foreground(colorDimCyan).Italic(true)
	return style.Render("  🍿 finding something to watch...")
}

// RenderNotice renders a dim informational line
func (r *Renderer) RenderNotice(text string) string {
	return lipgloss.NewStyle().Foreground(colorYellow).Render("  " + text)
}

// RenderElapsed renders how long a turn took
func (r *Renderer) RenderElapsed(d time.Duration) string {
	return lipgloss.NewStyle().Foreground(colorGray).Render("  (" + formatDuration(d) + ")")
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
