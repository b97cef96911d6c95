// Package ui отрисовывает текстовый отчет по результатам анализа.
package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/skalibog/ictscan/internal/analysis/aggregator"
	"github.com/skalibog/ictscan/internal/analysis/orderblock"
	"github.com/skalibog/ictscan/internal/analysis/session"
	"github.com/skalibog/ictscan/internal/config"
	"github.com/skalibog/ictscan/pkg/models"
)

// Сигналы с баллом от этого значения выделяются
const highlightScore = 7

// Стили отчета
var (
	primaryColor   = lipgloss.Color("#0077cc")
	secondaryColor = lipgloss.Color("#333333")
	errorColor     = lipgloss.Color("#cc3300")
	successColor   = lipgloss.Color("#33cc33")
	warningColor   = lipgloss.Color("#cccc00")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primaryColor).
			Padding(0, 1)
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(secondaryColor).
			Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor).
			Padding(0, 1)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
)

// Render возвращает отчет по всем символам в алфавитном порядке
func Render(results map[string]*aggregator.Result, cfg config.UIConfig) string {
	symbols := make([]string, 0, len(results))
	for symbol := range results {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	if len(symbols) == 0 {
		return mutedStyle.Render("Нет данных") + "\n"
	}

	blocks := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		blocks = append(blocks, RenderResult(results[symbol], cfg))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...) + "\n"
}

// RenderResult отрисовывает отчет одного символа
func RenderResult(res *aggregator.Result, cfg config.UIConfig) string {
	var b strings.Builder

	title := fmt.Sprintf("%s %s", res.Symbol, res.Timeframe)
	if res.HTFZonesUsed {
		title += " (зоны " + res.HTFTimeframe + ")"
	}
	b.WriteString(titleStyle.Render(title) + "\n")

	fmt.Fprintf(&b, "Цена: %.2f  Тренд: %s  Сессия: %s\n",
		res.LastPrice, formatBias(res.Bias), formatSession(res.LastTime))
	fmt.Fprintf(&b, "PD: %.2f - %.2f  EQ: %.2f\n", res.PD.Low, res.PD.High, res.PD.Equilibrium)
	if res.Alert != nil {
		b.WriteString(lipgloss.NewStyle().Foreground(warningColor).Bold(true).Render(
			fmt.Sprintf("Цена у ордер-блока %s %.2f - %.2f",
				res.Alert.Zone.Direction, res.Alert.Zone.PriceLow, res.Alert.Zone.PriceHigh)) + "\n")
	}

	b.WriteString("\n" + headerStyle.Render("ЗОНЫ") + "\n")
	b.WriteString(formatZones(res, cfg.MaxRows))

	b.WriteString("\n" + headerStyle.Render("СТАТИСТИКА") + "\n")
	b.WriteString(formatStats(res.Stats) + "\n")

	b.WriteString("\n" + headerStyle.Render("СИГНАЛЫ") + "\n")
	b.WriteString(formatEntries(res.Entries, cfg.MaxRows))

	if cfg.ShowRejects {
		rejected := len(res.RawEntries) - len(res.Entries)
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Отфильтровано сигналов: %d", rejected)) + "\n")
	}

	return sectionStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func formatStats(s models.BacktestStats) string {
	pnlStyle := lipgloss.NewStyle().Foreground(successColor)
	if s.NetPnL < 0 {
		pnlStyle = lipgloss.NewStyle().Foreground(errorColor)
	}
	return fmt.Sprintf("Сделок: %d (W %d / L %d, ожидают %d)  Win rate: %.1f%%  PnL: %s  Max DD: $%.2f",
		s.TradeCount, s.Wins, s.Losses, s.Pending, s.WinRate,
		pnlStyle.Render(fmt.Sprintf("$%.2f", s.NetPnL)), s.MaxDrawdown)
}

func formatEntries(entries []models.EntrySignal, maxRows int) string {
	if len(entries) == 0 {
		return mutedStyle.Render("  Сигналов нет") + "\n"
	}
	if maxRows > 0 && len(entries) > maxRows {
		entries = entries[len(entries)-maxRows:]
	}

	var b strings.Builder
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		line := fmt.Sprintf("  %s %-5s %-4s %3d  %.2f  SL %.2f  TP %.2f  R:R %.2f  %s  %s",
			time.Unix(e.Time, 0).UTC().Format("02.01 15:04"),
			e.Type, gradeOrDash(e.SetupGrade), e.Score,
			e.Price, e.SL, e.TP, e.RiskReward(),
			formatOutcome(e), e.SetupName)
		if e.Score >= highlightScore {
			line = lipgloss.NewStyle().Bold(true).Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func formatOutcome(e models.EntrySignal) string {
	switch e.BacktestResult {
	case models.Win:
		return lipgloss.NewStyle().Foreground(successColor).Render(fmt.Sprintf("WIN %+.2f", e.BacktestPnL))
	case models.Loss:
		return lipgloss.NewStyle().Foreground(errorColor).Render(fmt.Sprintf("LOSS %+.2f", e.BacktestPnL))
	}
	return lipgloss.NewStyle().Foreground(warningColor).Render("PENDING")
}

func formatBias(d models.Direction) string {
	switch d {
	case models.Bullish:
		return lipgloss.NewStyle().Foreground(successColor).Render("бычий")
	case models.Bearish:
		return lipgloss.NewStyle().Foreground(errorColor).Render("медвежий")
	}
	return mutedStyle.Render("не определен")
}

func formatSession(t int64) string {
	kz := session.KillzoneAt(t)
	out := string(kz)
	if kz == session.None {
		out = "вне сессий"
	}
	if session.MacroWindow(t) {
		out += " (макро)"
	}
	return out
}

// formatZones выводит число активных зон и неотработанные зоны старшего таймфрейма
func formatZones(res *aggregator.Result, maxRows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "OB: активных %d из %d  FVG: %d\n",
		len(orderblock.Active(res.OrderBlocks)), len(res.OrderBlocks), len(res.FVGs))

	if res.HTFTimeframe == "" || len(res.HTFOrderBlocks) == 0 {
		return b.String()
	}
	active := orderblock.Active(res.HTFOrderBlocks)
	fmt.Fprintf(&b, "OB %s: активных %d из %d  FVG %s: %d\n",
		res.HTFTimeframe, len(active), len(res.HTFOrderBlocks), res.HTFTimeframe, len(res.HTFFVGs))
	if maxRows > 0 && len(active) > maxRows {
		active = active[len(active)-maxRows:]
	}
	for i := len(active) - 1; i >= 0; i-- {
		z := active[i]
		fmt.Fprintf(&b, "  %s %s %s %.2f - %.2f\n",
			z.Timeframe, z.Direction, z.Subtype, z.PriceLow, z.PriceHigh)
	}
	return b.String()
}

func gradeOrDash(grade string) string {
	if grade == "" {
		return "-"
	}
	return grade
}
