package themes

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme holds all color definitions for the UI
type Theme struct {
	// Primary colors
	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Accent  lipgloss.Color

	// Text colors
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color

	// UI colors
	Background lipgloss.Color
	Border     lipgloss.Color
}

// Default returns the default color theme
func Default() Theme {
	return Theme{
		Primary: lipgloss.Color("#7C3AED"), // Purple
		Success: lipgloss.Color("#10B981"), // Green
		Warning: lipgloss.Color("#F59E0B"), // Orange
		Error:   lipgloss.Color("#EF4444"), // Red
		Accent:  lipgloss.Color("#06B6D4"), // Cyan

		TextPrimary:   lipgloss.Color("#E5E7EB"),
		TextSecondary: lipgloss.Color("#9CA3AF"),
		TextMuted:     lipgloss.Color("#6B7280"),

		Background: lipgloss.Color("#1F2937"),
		Border:     lipgloss.Color("#374151"),
	}
}

// Current is the theme used by all commands
var Current = Default()

// StatusColor picks a color for an apcupsd STATUS value. The value is a
// space separated set of flags such as "ONLINE" or "ONBATT LOWBATT".
func (t Theme) StatusColor(status string) lipgloss.Color {
	switch {
	case status == "":
		return t.TextMuted
	case containsFlag(status, "LOWBATT"), containsFlag(status, "COMMLOST"),
		containsFlag(status, "SHUTTING"), containsFlag(status, "REPLACEBATT"):
		return t.Error
	case containsFlag(status, "ONBATT"), containsFlag(status, "OVERLOAD"),
		containsFlag(status, "CAL"), containsFlag(status, "TRIM"), containsFlag(status, "BOOST"):
		return t.Warning
	case containsFlag(status, "ONLINE"):
		return t.Success
	default:
		return t.Warning
	}
}

// LevelColor colors a 0-100 reading. When highIsGood is set, large values
// are green (battery charge); otherwise small values are (load).
func (t Theme) LevelColor(percent float64, highIsGood bool) lipgloss.Color {
	if highIsGood {
		percent = 100 - percent
	}
	if percent < 60 {
		return t.Success
	} else if percent < 80 {
		return t.Warning
	}
	return t.Error
}

func containsFlag(status, flag string) bool {
	for _, f := range strings.Fields(status) {
		if f == flag {
			return true
		}
	}
	return false
}
