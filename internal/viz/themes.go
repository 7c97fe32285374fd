package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the color scheme of the live view.
type Theme struct {
	Name     string
	Title    lipgloss.Color
	Text     lipgloss.Color
	Muted    lipgloss.Color
	Stiff    lipgloss.Color
	NonStiff lipgloss.Color
	Switch   lipgloss.Color
	Chart    lipgloss.Color
	Error    lipgloss.Color
}

var (
	ThemeNight = Theme{
		Name:     "night",
		Title:    lipgloss.Color("#00ffff"),
		Text:     lipgloss.Color("#e0e0e0"),
		Muted:    lipgloss.Color("#666688"),
		Stiff:    lipgloss.Color("#ff6b6b"),
		NonStiff: lipgloss.Color("#00ff88"),
		Switch:   lipgloss.Color("#ffcc00"),
		Chart:    lipgloss.Color("49"),
		Error:    lipgloss.Color("#ff4444"),
	}

	ThemeOcean = Theme{
		Name:     "ocean",
		Title:    lipgloss.Color("#00a8cc"),
		Text:     lipgloss.Color("#e0f0ff"),
		Muted:    lipgloss.Color("#4488aa"),
		Stiff:    lipgloss.Color("#ff9ff3"),
		NonStiff: lipgloss.Color("#5fd068"),
		Switch:   lipgloss.Color("#ffd700"),
		Chart:    lipgloss.Color("#0077be"),
		Error:    lipgloss.Color("#ff4757"),
	}

	ThemeMono = Theme{
		Name:     "mono",
		Title:    lipgloss.Color("#ffffff"),
		Text:     lipgloss.Color("#cccccc"),
		Muted:    lipgloss.Color("#888888"),
		Stiff:    lipgloss.Color("#ffffff"),
		NonStiff: lipgloss.Color("#aaaaaa"),
		Switch:   lipgloss.Color("#ffffff"),
		Chart:    lipgloss.Color("#cccccc"),
		Error:    lipgloss.Color("#ffffff"),
	}

	Themes = []Theme{ThemeNight, ThemeOcean, ThemeMono}
)

// GetTheme returns a theme by name, falling back to night.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeNight
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

func nextTheme(cur Theme) Theme {
	for i, t := range Themes {
		if t.Name == cur.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return ThemeNight
}
