package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

type ConsoleStyle int

const (
	StyleNormal ConsoleStyle = iota
	StyleError
	StyleWarning
	StyleSuccess
	StyleInfo
)

type Console struct {
	useColors bool
}

func NewConsole() *Console {
	return &Console{
		useColors: colorsEnabled(),
	}
}

// colorsEnabled disables styling for dumb terminals and NO_COLOR, on
// top of the tty detection fatih/color already does.
func colorsEnabled() bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return !color.NoColor
}

func (c *Console) formatMessage(style ConsoleStyle, message string) string {
	if !c.useColors {
		return message
	}

	switch style {
	case StyleError:
		return color.New(color.FgRed, color.Bold).Sprint(message)
	case StyleWarning:
		return color.New(color.FgYellow).Sprint(message)
	case StyleSuccess:
		return color.New(color.FgGreen).Sprint(message)
	case StyleInfo:
		return color.New(color.FgBlue).Sprint(message)
	default:
		return message
	}
}

func (c *Console) PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s\n", c.formatMessage(StyleError, "Error: "+message))
}

func (c *Console) PrintWarning(message string) {
	fmt.Fprintf(os.Stderr, "%s\n", c.formatMessage(StyleWarning, "Warning: "+message))
}

func (c *Console) PrintSuccess(message string) {
	fmt.Printf("%s\n", c.formatMessage(StyleSuccess, message))
}

func (c *Console) PrintInfo(message string) {
	fmt.Printf("%s\n", c.formatMessage(StyleInfo, message))
}

func (c *Console) FormatErrorMessage(context, cause, suggestion string) string {
	var parts []string

	if context != "" {
		parts = append(parts, context)
	}

	if cause != "" {
		parts = append(parts, fmt.Sprintf("Cause: %s", cause))
	}

	if suggestion != "" {
		parts = append(parts, fmt.Sprintf("Suggestion: %s", suggestion))
	}

	return strings.Join(parts, "\n")
}
