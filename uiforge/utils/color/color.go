package color

import (
	"github.com/fatih/color"
)

var (
	promptColor   = color.New(color.FgCyan, color.Bold)
	infoColor     = color.New(color.FgGreen)
	warningColor  = color.New(color.FgYellow, color.Bold)
	errorColor    = color.New(color.FgRed, color.Bold)
	codeColor     = color.New(color.FgHiBlue)
	explainColor  = color.New(color.FgHiYellow, color.Bold)
	successColor  = color.New(color.FgGreen, color.Bold)
	degradedColor = color.New(color.FgMagenta, color.Bold)
)

func ColorPrompt(s string) string {
	return promptColor.Sprint(s)
}

func ColorInfo(s string) string {
	return infoColor.Sprint(s)
}

func ColorWarning(s string) string {
	return warningColor.Sprint(s)
}

func ColorError(s string) string {
	return errorColor.Sprint(s)
}

// ColorCode is used for generated JSX/CSS in the terminal.
func ColorCode(s string) string {
	return codeColor.Sprint(s)
}

func ColorExplanation(s string) string {
	return explainColor.Sprint(s)
}

func ColorSuccess(s string) string {
	return successColor.Sprint(s)
}

// ColorDegraded marks results salvaged without structured JSON.
func ColorDegraded(s string) string {
	return degradedColor.Sprint(s)
}
