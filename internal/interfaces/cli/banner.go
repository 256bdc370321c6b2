package cli

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/lipgloss"
)

// Version is the application version shown by the CLI.
const Version = "0.1.0"

// brand colors
var (
	colorCyan    = lipgloss.Color("#00D7FF")
	colorDimCyan = lipgloss.Color("#00AFAF")
	colorGray    = lipgloss.Color("#6C6C6C")
	colorWhite   = lipgloss.Color("#FFFFFF")
	colorDim     = lipgloss.Color("#4E4E4E")
	colorGreen   = lipgloss.Color("#00FF87")
	colorYellow  = lipgloss.Color("#FFD75F")
	colorRed     = lipgloss.Color("#FF5F5F")
)

// Gradient colors left→right (cyan → violet)
var logoGradient = []lipgloss.Color{
	lipgloss.Color("#00FFFF"),
	lipgloss.Color("#00CFFF"),
	lipgloss.Color("#009FFF"),
	lipgloss.Color("#006FFF"),
	lipgloss.Color("#5F5FFF"),
}

const logoText = "REELCHAT"

// BannerInfo carries dynamic stats shown in the welcome banner
type BannerInfo struct {
	Model     string
	ToolCount int
	ChatMode  string
}

// RenderBanner returns the styled welcome banner
func RenderBanner(info BannerInfo) string {
	labelStyle := lipgloss.NewStyle().Foreground(colorGray)
	valueStyle := lipgloss.NewStyle().Foreground(colorWhite)
	tipStyle := lipgloss.NewStyle().Foreground(colorDim)
	greenStyle := lipgloss.NewStyle().Foreground(colorGreen)
	versionStyle := lipgloss.NewStyle().Foreground(colorDimCyan)

	logo := " 🎬 "
	for i, ch := range logoText {
		c := logoGradient[i%len(logoGradient)]
		logo += lipgloss.NewStyle().Foreground(c).Bold(true).Render(string(ch)) + " "
	}

	ver := versionStyle.Render(fmt.Sprintf("  v%s", Version))

	modelLine := fmt.Sprintf("  %s %s", labelStyle.Render("Model"), valueStyle.Render(info.Model))
	toolsLine := fmt.Sprintf("  %s %s", labelStyle.Render("Tools"),
		greenStyle.Render(fmt.Sprintf("%d loaded", info.ToolCount)))
	modeLine := fmt.Sprintf("  %s %s", labelStyle.Render("Chat "), valueStyle.Render(info.ChatMode))
	envLine := fmt.Sprintf("  %s %s/%s", labelStyle.Render("Env  "),
		labelStyle.Render(runtime.GOOS), labelStyle.Render(runtime.GOARCH))

	tips := tipStyle.Render("  Enter to ask · /help for commands · /exit to quit")

	return fmt.Sprintf("\n%s\n%s\n\n%s\n%s\n%s\n%s\n\n%s\n",
		logo, ver,
		modelLine, toolsLine, modeLine, envLine,
		tips,
	)
}
