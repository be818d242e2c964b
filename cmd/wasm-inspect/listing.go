package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-embed/runtime"
	"github.com/wippyai/wasm-embed/value"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA"))

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD580")).
			Width(8)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func renderListing(filename string, mod *runtime.Module) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Module"))
	b.WriteString(" ")
	b.WriteString(filename)
	b.WriteString("\n\n")

	imports := mod.ImportDescriptors()
	b.WriteString(headerStyle.Render(fmt.Sprintf("Imports (%d)", len(imports))))
	b.WriteString("\n")
	for _, d := range imports {
		params, results, ok := d.Signature()
		b.WriteString("  ")
		b.WriteString(kindStyle.Render(d.Kind.String()))
		b.WriteString(" ")
		b.WriteString(d.Module + "." + d.Name)
		b.WriteString(describe(d.Kind, params, results, ok, d.Limits, d.GlobalType))
		b.WriteString("\n")
	}

	exports := mod.ExportDescriptors()
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("Exports (%d)", len(exports))))
	b.WriteString("\n")
	for _, d := range exports {
		params, results, ok := d.Signature()
		b.WriteString("  ")
		b.WriteString(kindStyle.Render(d.Kind.String()))
		b.WriteString(" ")
		if d.Kind == value.KindFunction {
			b.WriteString(funcStyle.Render(d.Name))
		} else {
			b.WriteString(d.Name)
		}
		b.WriteString(describe(d.Kind, params, results, ok, d.Limits, d.GlobalType))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func describe(kind value.Kind, params, results []value.Type, sigOK bool,
	limits func() (runtime.Limits, bool), global func() (runtime.GlobalType, bool)) string {
	switch kind {
	case value.KindFunction:
		if !sigOK {
			return typeStyle.Render(" (unsupported signature)")
		}
		return typeStyle.Render(formatSignature(params, results))
	case value.KindMemory, value.KindTable:
		lim, ok := limits()
		if !ok {
			return ""
		}
		if lim.Max != nil {
			return typeStyle.Render(fmt.Sprintf(" {min %d, max %d}", lim.Min, *lim.Max))
		}
		return typeStyle.Render(fmt.Sprintf(" {min %d}", lim.Min))
	case value.KindGlobal:
		gt, ok := global()
		if !ok || !value.Supported(gt.ValType) {
			return ""
		}
		mut := ""
		if gt.Mutable {
			mut = "mut "
		}
		return typeStyle.Render(" " + mut + value.TypeFromEngine(gt.ValType).String())
	default:
		return ""
	}
}

func formatSignature(params, results []value.Type) string {
	ps := make([]string, len(params))
	for i, p := range params {
		ps[i] = p.String()
	}
	out := "(" + strings.Join(ps, ", ") + ")"
	switch len(results) {
	case 0:
	case 1:
		out += " -> " + results[0].String()
	default:
		rs := make([]string, len(results))
		for i, r := range results {
			rs[i] = r.String()
		}
		out += " -> (" + strings.Join(rs, ", ") + ")"
	}
	return out
}
