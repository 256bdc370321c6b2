package prompt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Merge modes for an instructions file.
const (
	ModeReplace = "replace" // file body replaces the default persona
	ModeAppend  = "append"  // file body is appended after the default persona
)

// InstructionsFile is a parsed instructions .md file.
type InstructionsFile struct {
	Mode    string `yaml:"mode"`
	Content string `yaml:"-"`
	Path    string `yaml:"-"`
}

// ParseInstructionsFile reads a .md file with optional YAML frontmatter.
//
// Expected format:
//
//	---
//	mode: append
//	---
//	Always answer in French.
//
// Without frontmatter the whole file replaces the default instructions.
func ParseInstructionsFile(path string) (*InstructionsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instructions file: %w", err)
	}
	return parseInstructions(path, string(data))
}

func parseInstructions(path, content string) (*InstructionsFile, error) {
	f := &InstructionsFile{Mode: ModeReplace, Path: path}

	content = strings.TrimPrefix(content, "\ufeff")
	if !strings.HasPrefix(content, "---") {
		f.Content = strings.TrimSpace(content)
		return f, nil
	}

	lines := strings.Split(content, "\n")
	closingIdx := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			closingIdx = i
			break
		}
	}
	if closingIdx == -1 {
		return nil, fmt.Errorf("unclosed YAML frontmatter in %s", path)
	}

	frontmatter := strings.Join(lines[1:closingIdx], "\n")
	if err := yaml.Unmarshal([]byte(frontmatter), f); err != nil {
		return nil, fmt.Errorf("parse frontmatter in %s: %w", path, err)
	}
	switch f.Mode {
	case "":
		f.Mode = ModeReplace
	case ModeReplace, ModeAppend:
	default:
		return nil, fmt.Errorf("unknown mode %q in %s", f.Mode, path)
	}

	f.Content = strings.TrimSpace(strings.Join(lines[closingIdx+1:], "\n"))
	return f, nil
}

// Compose applies the file to the default instructions.
func (f *InstructionsFile) Compose(defaults string) string {
	if f.Content == "" {
		return defaults
	}
	if f.Mode == ModeAppend {
		return defaults + "\n\n" + f.Content
	}
	return f.Content
}
