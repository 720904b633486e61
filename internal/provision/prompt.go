package provision

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter gathers interactive choices. Select and MultiSelect report
// ok=false when the operator declines to choose, which callers treat as an
// abort before any cloud call is made.
type Prompter interface {
	Select(label string, options []string) (choice string, ok bool, err error)
	MultiSelect(label string, options []string) (choices []string, err error)
	Confirm(label string) (bool, error)
}

// ConsolePrompter reads choices from an interactive terminal. A single
// buffered reader is held across prompts so piped input survives consecutive
// reads; a fresh reader per prompt would swallow whatever the first one had
// buffered.
type ConsolePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsolePrompter creates a prompter over the given streams.
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{in: bufio.NewReader(in), out: out}
}

// Select shows a numbered menu and returns the chosen option. An empty line
// or "q" declines the choice.
func (p *ConsolePrompter) Select(label string, options []string) (string, bool, error) {
	fmt.Fprintf(p.out, "%s\n", label)
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %2d) %s\n", i+1, opt)
	}
	fmt.Fprintf(p.out, "Enter number (or q to abort): ")

	line, err := p.readLine()
	if err != nil {
		return "", false, err
	}
	if line == "" || strings.EqualFold(line, "q") {
		return "", false, nil
	}

	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(options) {
		return "", false, nil
	}
	return options[n-1], true, nil
}

// MultiSelect shows a numbered menu and accepts a comma-separated list of
// numbers, or "all". An empty line selects nothing.
func (p *ConsolePrompter) MultiSelect(label string, options []string) ([]string, error) {
	fmt.Fprintf(p.out, "%s\n", label)
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %2d) %s\n", i+1, opt)
	}
	fmt.Fprintf(p.out, "Enter numbers separated by commas (or 'all', empty for none): ")

	line, err := p.readLine()
	if err != nil {
		return nil, err
	}
	if line == "" {
		return nil, nil
	}
	if strings.EqualFold(line, "all") {
		return append([]string(nil), options...), nil
	}

	var choices []string
	seen := make(map[int]bool)
	for _, part := range strings.Split(line, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 || n > len(options) || seen[n] {
			continue
		}
		seen[n] = true
		choices = append(choices, options[n-1])
	}
	return choices, nil
}

// Confirm asks a yes/no question. Only "y" or "yes" confirms.
func (p *ConsolePrompter) Confirm(label string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", label)
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(line)
	return answer == "y" || answer == "yes", nil
}

func (p *ConsolePrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
