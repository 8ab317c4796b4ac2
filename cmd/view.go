package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/node-pulse/apcupsd-exporter/cmd/themes"
	"github.com/node-pulse/apcupsd-exporter/internal/apcaccess"
	"github.com/node-pulse/apcupsd-exporter/internal/config"
	"github.com/node-pulse/apcupsd-exporter/internal/logger"
	"github.com/spf13/cobra"
)

// viewCmd represents the view command
var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "View live UPS status in terminal UI",
	Long:  `Displays the apcupsd status in a terminal dashboard, refreshed at the configured interval.`,
	RunE:  runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := quietLogging(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	client := apcaccess.NewClient(cfg.Apcupsd.Host, cfg.Apcupsd.Port, cfg.Apcupsd.Timeout, cfg.Apcupsd.StripUnits)

	p := tea.NewProgram(
		initialModel(cfg, client),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	return nil
}

// quietLogging keeps log output off the dashboard. Warnings still reach a
// configured log file, anything bound for the terminal is dropped.
func quietLogging(cfg logger.Config) error {
	if cfg.Output != "file" && cfg.Output != "both" {
		logger.Discard()
		return nil
	}

	cfg.Output = "file"
	if level := strings.ToLower(cfg.Level); level != "error" {
		cfg.Level = "warn"
	}
	return logger.Initialize(cfg)
}

type tickMsg time.Time

type snapshotMsg struct {
	snap apcaccess.Snapshot
	at   time.Time
}

type model struct {
	cfg            *config.Config
	client         *apcaccess.Client
	snap           apcaccess.Snapshot
	fetchedAt      time.Time
	chargeProgress progress.Model
	loadProgress   progress.Model
	err            error
	width          int
	height         int
	quitting       bool
}

func initialModel(cfg *config.Config, client *apcaccess.Client) model {
	th := themes.Current

	return model{
		cfg:    cfg,
		client: client,
		chargeProgress: progress.New(
			progress.WithGradient(string(th.Error), string(th.Success)),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
		loadProgress: progress.New(
			progress.WithGradient(string(th.Accent), string(th.Error)),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
		width:  80,
		height: 24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.cfg.Exporter.Interval),
		fetchStatus(m.client),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, fetchStatus(m.client)
		}

	case tickMsg:
		return m, tea.Batch(
			fetchStatus(m.client),
			tickCmd(m.cfg.Exporter.Interval),
		)

	case snapshotMsg:
		m.snap = msg.snap
		m.fetchedAt = msg.at
		m.err = nil
		return m, nil

	case error:
		// Keep showing the last snapshot underneath the error
		m.err = msg
		return m, nil
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return lipgloss.NewStyle().
			Foreground(themes.Current.Success).
			Bold(true).
			Render("Dashboard closed\n")
	}

	return m.renderDashboard()
}

func (m model) renderDashboard() string {
	th := themes.Current

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(th.Primary).
		Background(th.Background).
		Padding(0, 2).
		MarginBottom(1).
		Render("apcupsd " + m.client.Addr())

	sections := []string{title}

	if m.err != nil {
		sections = append(sections, lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(th.Error).
			Padding(0, 2).
			Width(m.width-4).
			Render(lipgloss.NewStyle().Foreground(th.Error).Render(fmt.Sprintf("Error: %v", m.err))))
	}

	if m.snap == nil {
		if m.err == nil {
			sections = append(sections, lipgloss.NewStyle().
				Foreground(th.Accent).
				Render("Fetching status..."))
		}
		sections = append(sections, m.renderFooter())
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	sections = append(sections, m.renderOverview(), m.renderDetails(), m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m model) renderOverview() string {
	th := themes.Current
	s := m.snap

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(th.Border).
		Padding(1, 2).
		Width(m.width - 4)

	var content strings.Builder

	status := s["STATUS"]
	if status == "" {
		status = "UNKNOWN"
	}
	content.WriteString(
		lipgloss.NewStyle().Foreground(th.TextSecondary).Render("Status  ") +
			lipgloss.NewStyle().Bold(true).Foreground(th.StatusColor(s["STATUS"])).Render(status) +
			lipgloss.NewStyle().Foreground(th.TextMuted).Render("  "+s["UPSNAME"]+"  "+s["MODEL"]) +
			"\n\n",
	)

	if charge, ok := numericValue(s, "BCHARGE"); ok {
		content.WriteString(
			lipgloss.NewStyle().Foreground(th.LevelColor(charge, true)).Bold(true).
				Render(fmt.Sprintf("BATT %5.1f%%", charge)) +
				"  " + m.chargeProgress.ViewAs(clampPercent(charge)) + "\n",
		)
	}

	if load, ok := numericValue(s, "LOADPCT"); ok {
		content.WriteString(
			lipgloss.NewStyle().Foreground(th.LevelColor(load, false)).Bold(true).
				Render(fmt.Sprintf("LOAD %5.1f%%", load)) +
				"  " + m.loadProgress.ViewAs(clampPercent(load)) + "\n",
		)
	}

	content.WriteString("\n")

	if v, ok := numericValue(s, "TIMELEFT"); ok {
		content.WriteString(renderStatLine("Time left", formatMinutes(v)))
	}
	if v, ok := numericValue(s, "LINEV"); ok {
		content.WriteString(renderStatLine("Line voltage", fmt.Sprintf("%.1f V", v)))
	}
	if v, ok := numericValue(s, "BATTV"); ok {
		content.WriteString(renderStatLine("Battery voltage", fmt.Sprintf("%.1f V", v)))
	}
	if v, ok := s.Get("LASTXFER"); ok {
		content.WriteString(renderStatLine("Last transfer", v))
	}

	return boxStyle.Render(strings.TrimRight(content.String(), "\n"))
}

func (m model) renderDetails() string {
	th := themes.Current

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(th.Border).
		Padding(0, 2).
		Width(m.width - 4)

	keys := m.snap.Keys()

	// Whatever is left of the screen after the overview, title and footer
	room := m.height - 22
	if room < 3 {
		room = 3
	}

	var content strings.Builder
	for i, k := range keys {
		if i == room && len(keys) > room {
			content.WriteString(lipgloss.NewStyle().Foreground(th.TextMuted).
				Render(fmt.Sprintf("... %d more, see 'apcupsd-exporter status'", len(keys)-room)))
			break
		}
		content.WriteString(renderStatLine(k, m.snap[k]))
	}

	return boxStyle.Render(strings.TrimRight(content.String(), "\n"))
}

func (m model) renderFooter() string {
	updated := "never"
	if !m.fetchedAt.IsZero() {
		updated = m.fetchedAt.Format("15:04:05")
	}
	return lipgloss.NewStyle().Foreground(themes.Current.TextMuted).Render(
		"[q] quit • [r] refresh • Updates every " + m.cfg.Exporter.Interval.String() + " • Last update " + updated,
	)
}

// Helper functions

func renderStatLine(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Foreground(themes.Current.TextMuted).
		Width(16)
	valueStyle := lipgloss.NewStyle().
		Foreground(themes.Current.TextPrimary)
	return labelStyle.Render(label+":") + " " + valueStyle.Render(value) + "\n"
}

// numericValue parses the leading number of a status value, so it works
// whether or not units were stripped
func numericValue(s apcaccess.Snapshot, key string) (float64, bool) {
	fields := strings.Fields(s[key])
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 1
	}
	return p / 100
}

func formatMinutes(minutes float64) string {
	d := time.Duration(minutes * float64(time.Minute))
	if d < time.Hour {
		return fmt.Sprintf("%.1f min", minutes)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchStatus(client *apcaccess.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*client.Timeout)
		defer cancel()

		snap, err := client.Fetch(ctx)
		if err != nil {
			return err
		}
		return snapshotMsg{snap: snap, at: time.Now()}
	}
}
