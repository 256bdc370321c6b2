package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// SlashCommand represents a parsed slash command
type SlashCommand struct {
	Name string
	Args []string
}

// ParseSlashCommand parses a slash command from user input
func ParseSlashCommand(input string) *SlashCommand {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	parts := strings.Fields(input)
	name := strings.TrimPrefix(parts[0], "/")
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return &SlashCommand{Name: name, Args: args}
}

// CommandAction tells the session what to do after a command.
type CommandAction int

const (
	ActionNone CommandAction = iota
	ActionQuit
	ActionNew
	ActionList
	ActionOpen
	ActionHistory
)

// CommandResult is the output of executing a slash command
type CommandResult struct {
	Output string
	Action CommandAction
	Target string // conversation id for ActionOpen
}

// ExecuteCommand maps a slash command to an action. Commands that need
// storage are carried out by the session.
func ExecuteCommand(cmd *SlashCommand) CommandResult {
	switch cmd.Name {
	case "help", "h":
		return CommandResult{Output: renderHelp()}
	case "exit", "quit", "q":
		return CommandResult{Action: ActionQuit}
	case "new", "reset":
		return CommandResult{Output: "🔄 Started a new conversation", Action: ActionNew}
	case "list", "ls":
		return CommandResult{Action: ActionList}
	case "history":
		return CommandResult{Action: ActionHistory}
	case "open":
		if len(cmd.Args) == 0 {
			return CommandResult{Output: "Usage: /open <conversation-id>"}
		}
		return CommandResult{Action: ActionOpen, Target: cmd.Args[0]}
	case "version":
		return CommandResult{Output: fmt.Sprintf("ReelChat v%s", Version)}
	default:
		return CommandResult{Output: fmt.Sprintf("Unknown command: /%s  type /help for the list", cmd.Name)}
	}
}

func renderHelp() string {
	titleStyle := lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	cmdStyle := lipgloss.NewStyle().Foreground(colorGreen)
	descStyle := lipgloss.NewStyle().Foreground(colorGray)

	cmds := []struct {
		name string
		desc string
	}{
		{"/help", "show this help"},
		{"/new", "start a new conversation"},
		{"/list", "list conversations"},
		{"/open <id>", "continue a conversation"},
		{"/history", "show the current transcript"},
		{"/version", "version info"},
		{"/exit", "quit"},
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("◇ Commands"))
	sb.WriteString("\n\n")

	for _, c := range cmds {
		sb.WriteString(fmt.Sprintf("  %s  %s\n",
			cmdStyle.Render(fmt.Sprintf("%-16s", c.name)),
			descStyle.Render(c.desc),
		))
	}

	return sb.String()
}
