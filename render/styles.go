package render

import "github.com/charmbracelet/lipgloss"

// Brand palette.
var (
	Brand       = lipgloss.Color("#0B6E4F")
	BrandLight  = lipgloss.Color("#E8F5EE")
	Foreground  = lipgloss.Color("#1F2933")
	MutedColor  = lipgloss.Color("#7B8794")
	Destructive = lipgloss.Color("#D64545")
)

type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Card     lipgloss.Style
	CardHead lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Muted    lipgloss.Style
	Alert    lipgloss.Style
	Chip     lipgloss.Style
	ChipKey  lipgloss.Style
	ChipVal  lipgloss.Style
	Header   lipgloss.Style
	Cell     lipgloss.Style
	Focused  lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(Brand),
		Subtitle: lipgloss.NewStyle().Foreground(MutedColor),
		Card:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Brand).Padding(0, 1),
		CardHead: lipgloss.NewStyle().Bold(true).Foreground(Foreground).MarginBottom(1),
		Label:    lipgloss.NewStyle().Foreground(MutedColor),
		Value:    lipgloss.NewStyle().Foreground(Foreground),
		Muted:    lipgloss.NewStyle().Foreground(MutedColor).Italic(true),
		Alert:    lipgloss.NewStyle().Foreground(Destructive),
		Chip:     lipgloss.NewStyle().Background(BrandLight).Padding(0, 1).MarginRight(1),
		ChipKey:  lipgloss.NewStyle().Foreground(MutedColor),
		ChipVal:  lipgloss.NewStyle().Bold(true).Foreground(Brand),
		Header:   lipgloss.NewStyle().Bold(true).Foreground(Brand).Padding(0, 1),
		Cell:     lipgloss.NewStyle().Padding(0, 1),
		Focused:  lipgloss.NewStyle().Bold(true).Foreground(Brand),
	}
}

// PlainStyles renders without colour or decoration; used for piped output
// and tests.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title:    plain,
		Subtitle: plain,
		Card:     plain,
		CardHead: plain,
		Label:    plain,
		Value:    plain,
		Muted:    plain,
		Alert:    plain,
		Chip:     plain.MarginRight(2),
		ChipKey:  plain,
		ChipVal:  plain,
		Header:   plain.Padding(0, 1),
		Cell:     plain.Padding(0, 1),
		Focused:  plain,
	}
}
