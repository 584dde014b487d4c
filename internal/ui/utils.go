package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
)

// Colors for consistent UI
const (
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorReset  = "\033[0m"
)

// Out and In are the terminal streams of the interactive UI.
var (
	Out io.Writer     = os.Stdout
	In  *bufio.Reader = bufio.NewReader(os.Stdin)
)

func PrintBanner() {
	figure1 := figure.NewFigure("Salinity", "isometric1", true)
	figure2 := figure.NewFigure("Indices", "isometric1", true)
	bannercolor.New(bannercolor.FgCyan).Fprintln(Out, figure1.String())
	bannercolor.New(bannercolor.FgCyan).Fprintln(Out, figure2.String())
	fmt.Fprintln(Out)
}

// PrintWarning displays a warning message with consistent formatting
func PrintWarning(message string) {
	fmt.Fprintf(Out, "%s\nWarning:%s\n", ColorYellow, ColorReset)
	fmt.Fprintf(Out, "%s%s%s\n", ColorYellow, message, ColorReset)
}

func PrintError(message string) {
	fmt.Fprintf(Out, "\n%sError: %s%s\n", ColorRed, message, ColorReset)
}

func PrintSuccess(message string) {
	fmt.Fprintf(Out, "\n%s%s%s\n", ColorGreen, message, ColorReset)
}

func PrintInfo(message string) {
	fmt.Fprintf(Out, "%s%s%s", ColorBlue, message, ColorReset)
}

// PrintList prints items as a green bulleted list under title.
func PrintList(title string, items []string) {
	fmt.Fprintf(Out, "%s\n%s:%s\n", ColorGreen, title, ColorReset)
	for _, item := range items {
		fmt.Fprintf(Out, "%s- %s%s\n", ColorGreen, item, ColorReset)
	}
}

// inputClosed is set once In is exhausted.
var inputClosed bool

// ReadString reads a line with trimming
func ReadString(prompt string) string {
	PrintInfo(prompt)
	input, err := In.ReadString('\n')
	if err == io.EOF && input == "" {
		inputClosed = true
	}
	return strings.TrimSpace(input)
}

// ReadInt reads an integer in [min, max].
func ReadInt(prompt string, min, max int) (int, error) {
	input := ReadString(prompt)
	value, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", input)
	}
	if value < min || value > max {
		return 0, fmt.Errorf("value must be between %d and %d", min, max)
	}
	return value, nil
}

// ReadChoice lists options and returns the selected one.
func ReadChoice(title string, options []string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("%s: nothing to choose from", strings.ToLower(title))
	}
	fmt.Fprintf(Out, "%s\n%s:%s\n", ColorGreen, title, ColorReset)
	for i, opt := range options {
		fmt.Fprintf(Out, "%s%d. %s%s\n", ColorGreen, i+1, opt, ColorReset)
	}
	choice, err := ReadInt("Enter the number of your choice: ", 1, len(options))
	if err != nil {
		return "", err
	}
	return options[choice-1], nil
}

// ReadYesNo reads y/n, returning def on empty input.
func ReadYesNo(prompt string, def bool) bool {
	switch strings.ToLower(ReadString(prompt)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	}
	return def
}
