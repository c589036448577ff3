package formatter

import (
	"sort"
	"strings"

	"github.com/harunnryd/mcprelay/internal/tool"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

type TableFormatter struct {
	headerStyle  lipgloss.Style
	cellStyle    lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return &TableFormatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		cellStyle: lipgloss.NewStyle().
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(purple),
	}
}

// FormatTools renders one row per tool: name, source, required params, description.
func (f *TableFormatter) FormatTools(tools []tool.ToolDescriptor) string {
	if len(tools) == 0 {
		return "No tools registered"
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		}).
		Headers("Name", "Source", "Required", "Description")

	for _, d := range tools {
		t.Row(
			d.Name,
			source(d.Metadata),
			truncateString(strings.Join(d.Required, ", "), 25),
			truncateString(d.Description, 60),
		)
	}
	return t.String()
}

// FormatTool renders the parameters of a single tool.
func (f *TableFormatter) FormatTool(d tool.ToolDescriptor) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return f.headerStyle
			}
			return f.cellStyle
		})

	t.Row("Name", d.Name)
	t.Row("Source", source(d.Metadata))
	t.Row("Description", truncateString(d.Description, 80))
	for _, name := range propertyNames(d.Parameters) {
		label := name
		for _, req := range d.Required {
			if req == name {
				label += " *"
				break
			}
		}
		t.Row("param", label)
	}
	return t.String()
}

func source(m tool.ToolMetadata) string {
	if m.Server == "" {
		return m.Source
	}
	return m.Source + ":" + m.Server
}

func propertyNames(schema map[string]interface{}) []string {
	props, ok := schema["properties"].(map[string]interface{})
	if !ok {
		return nil
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
