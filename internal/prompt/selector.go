// Package prompt implements the line-based interactive questions: a numbered
// menu, a free-text answer and a yes/no confirmation.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var ErrNoOptions = errors.New("no options to choose from")

var (
	menuTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#85DCB0"))
	indexStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#E8A87C")).Bold(true)
	questionStyle  = lipgloss.NewStyle().Bold(true)
	rejectStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E85D75"))
)

// Selector asks questions on Out and reads answers from In. It keeps one
// buffered reader so consecutive questions do not lose typed-ahead input.
type Selector struct {
	out    io.Writer
	reader *bufio.Reader
}

func NewSelector(in io.Reader, out io.Writer) *Selector {
	return &Selector{out: out, reader: bufio.NewReader(in)}
}

// Select shows options as a 1-based menu and returns the 0-based index of the
// chosen option. Invalid answers are reported and asked again; only the end of
// input stops the loop without a choice.
func (s *Selector) Select(prompt string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, ErrNoOptions
	}

	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, menuTitleStyle.Render("Available options:"))
	for i, option := range options {
		fmt.Fprintf(s.out, "%s %s\n", indexStyle.Render(fmt.Sprintf("%d.", i+1)), option)
	}

	for {
		fmt.Fprintf(s.out, "\n%s ", questionStyle.Render(prompt))
		line, err := s.readLine()
		if err != nil {
			return 0, err
		}

		choice, convErr := strconv.Atoi(line)
		if convErr != nil {
			fmt.Fprintln(s.out, rejectStyle.Render("Invalid input. Please enter a number."))
			continue
		}
		if choice < 1 || choice > len(options) {
			fmt.Fprintln(s.out, rejectStyle.Render(fmt.Sprintf("Invalid choice. Please enter a number between 1 and %d.", len(options))))
			continue
		}
		return choice - 1, nil
	}
}

// Ask reads a free-text answer. Blank answers are asked again.
func (s *Selector) Ask(prompt string) (string, error) {
	for {
		fmt.Fprintf(s.out, "%s ", questionStyle.Render(prompt))
		line, err := s.readLine()
		if err != nil {
			return "", err
		}
		if line != "" {
			return line, nil
		}
	}
}

// Confirm asks a yes/no question. Anything but y/yes counts as no.
func (s *Selector) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(s.out, "%s ", questionStyle.Render(prompt+" [y/N]:"))
	line, err := s.readLine()
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(line)
	return answer == "y" || answer == "yes", nil
}

func (s *Selector) readLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return "", fmt.Errorf("read answer: %w", io.ErrUnexpectedEOF)
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
