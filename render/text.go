package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Summary renders the summary card body: chips or the placeholder.
func Summary(p Page, s Styles) string {
	if len(p.Chips) == 0 {
		return s.Muted.Render(p.SummaryPlaceholder)
	}
	chips := make([]string, 0, len(p.Chips))
	for _, c := range p.Chips {
		chips = append(chips, s.Chip.Render(s.ChipKey.Render(c.Label)+"\n"+s.ChipVal.Render(c.Value)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, chips...)
}

// Schedule renders the repayment table or the placeholder.
func Schedule(p Page, s Styles) string {
	if len(p.Rows) == 0 {
		return s.Muted.Render(p.SchedulePlaceholder)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(MutedColor)).
		Headers(ScheduleHeaders...).
		Rows(p.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := s.Cell
			if row == table.HeaderRow {
				style = s.Header
			}
			if col >= 2 {
				style = style.Align(lipgloss.Right)
			}
			return style
		})
	return t.String()
}

// Text renders the whole page for a non-interactive terminal.
func Text(p Page, s Styles) string {
	var sb strings.Builder

	sb.WriteString(s.Title.Render(Title))
	sb.WriteString("\n")
	sb.WriteString(s.Subtitle.Render(Subtitle))
	sb.WriteString("\n\n")

	sb.WriteString(s.CardHead.Render("Inputs"))
	sb.WriteString("\n")
	field := func(label, value string) {
		sb.WriteString(s.Label.Render(label+": ") + s.Value.Render(value) + "\n")
	}
	field("Loan Type", selectedLabel(p))
	field("Rate (per month)", p.RateLabel)
	field("Default Months", p.DefaultMonths)
	field("Months", p.Months)
	field("Principal (KES)", p.Principal)
	field("Start Date", p.StartDate)
	if p.Error != "" {
		sb.WriteString(s.Alert.Render(p.Error))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(s.CardHead.Render("Summary"))
	sb.WriteString("\n")
	sb.WriteString(Summary(p, s))
	sb.WriteString("\n\n")

	sb.WriteString(s.CardHead.Render("Repayment Schedule"))
	sb.WriteString("\n")
	sb.WriteString(Schedule(p, s))
	sb.WriteString("\n\n")

	sb.WriteString(s.Muted.Render(Note))
	sb.WriteString("\n")
	return sb.String()
}

func selectedLabel(p Page) string {
	for _, o := range p.Products {
		if o.Selected {
			return o.Label
		}
	}
	return NoProductsOption
}
