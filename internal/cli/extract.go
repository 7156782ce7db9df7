package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/guiyumin/socialdl/internal/core/config"
	"github.com/guiyumin/socialdl/internal/core/downloader"
	"github.com/guiyumin/socialdl/internal/core/envelope"
	"github.com/guiyumin/socialdl/internal/core/logging"
	"github.com/guiyumin/socialdl/internal/core/platform"
)

var (
	extractQuality  string
	extractPlatform string
	extractJSON     bool
	extractVerbose  bool
)

var (
	extractInfoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	extractDoneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	extractErrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	extractHintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("248"))
	extractNoteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
)

var extractCmd = &cobra.Command{
	Use:   "extract <url>",
	Short: "Resolve media links for a single post",
	Example: `  socialdl extract https://www.tiktok.com/@user/video/123
  socialdl extract -q hd https://youtu.be/dQw4w9WgXcQ
  socialdl extract --json https://x.com/user/status/123 | jq .data.downloads`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(args[0])
	},
}

func addExtractFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&extractQuality, "quality", "q", "auto", "preferred quality: hd, sd or auto")
	cmd.Flags().StringVarP(&extractPlatform, "platform", "p", "", "require the URL to belong to this platform")
	cmd.Flags().BoolVar(&extractJSON, "json", false, "print the raw JSON response")
	cmd.Flags().BoolVarP(&extractVerbose, "verbose", "v", false, "log extraction steps to stderr")
	registerExtractCompletions(cmd)
}

func init() {
	addExtractFlags(extractCmd)
	rootCmd.AddCommand(extractCmd)
}

func runExtract(rawURL string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := zap.NewNop()
	if extractVerbose {
		log, err = logging.New(config.LoggingConfig{Level: "debug", Format: "console"})
		if err != nil {
			return err
		}
		defer log.Sync()
	}

	tag := platform.Unknown
	if extractPlatform != "" {
		var ok bool
		if tag, ok = platform.Parse(extractPlatform); !ok {
			return fmt.Errorf("unknown platform %q", extractPlatform)
		}
	}

	req, err := downloader.NewRequest(rawURL, extractQuality)
	if err != nil {
		return err
	}

	svc, err := downloader.NewFromConfig(cfg, log)
	if err != nil {
		return err
	}

	run := func() envelope.DownloadResponse {
		ctx := context.Background()
		if tag != platform.Unknown {
			return svc.DownloadFor(ctx, tag, req)
		}
		return svc.Download(ctx, req)
	}

	interactive := !extractJSON && !extractVerbose && term.IsTerminal(int(os.Stdout.Fd()))
	if !interactive {
		resp := run()
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
		if !resp.Success {
			return errReported
		}
		return nil
	}

	resp, err := runExtractWithSpinner(req.URL, run)
	if err != nil {
		return err
	}
	if !resp.Success {
		return errReported
	}
	return nil
}

// extractState holds extraction state
type extractState struct {
	mu   sync.RWMutex
	done bool
	resp envelope.DownloadResponse
}

func (s *extractState) setDone(resp envelope.DownloadResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.resp = resp
}

func (s *extractState) get() (bool, envelope.DownloadResponse) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done, s.resp
}

type extractTickMsg time.Time

type extractModel struct {
	spinner spinner.Model
	url     string
	state   *extractState
}

func newExtractModel(url string, state *extractState) extractModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return extractModel{
		spinner: s,
		url:     url,
		state:   state,
	}
}

func extractTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return extractTickMsg(t)
	})
}

func (m extractModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, extractTickCmd())
}

func (m extractModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case extractTickMsg:
		if done, _ := m.state.get(); done {
			return m, tea.Quit
		}
		return m, extractTickCmd()
	}

	return m, nil
}

func (m extractModel) View() string {
	done, resp := m.state.get()
	if !done {
		return fmt.Sprintf("\n  %s Resolving: %s\n\n",
			m.spinner.View(),
			extractInfoStyle.Render(m.url),
		)
	}
	return renderResponse(resp)
}

// renderResponse formats an envelope for the terminal
func renderResponse(resp envelope.DownloadResponse) string {
	var b strings.Builder

	if !resp.Success {
		fmt.Fprintf(&b, "\n  %s %s [%s]\n", extractErrStyle.Render("✗"), resp.Error.Message, resp.Error.Code)
		if resp.Error.Details != "" {
			fmt.Fprintf(&b, "  %s\n", extractHintStyle.Render(resp.Error.Details))
		}
		b.WriteString("\n")
		return b.String()
	}

	d := resp.Data
	fmt.Fprintf(&b, "\n  %s %s\n", extractDoneStyle.Render("✓"), d.Title)
	fmt.Fprintf(&b, "  %s %s", extractHintStyle.Render("by"), extractInfoStyle.Render(d.Author))
	if p, ok := platform.Parse(resp.Platform); ok {
		fmt.Fprintf(&b, " %s", extractHintStyle.Render("on "+p.DisplayName()))
	}
	if d.Duration > 0 {
		fmt.Fprintf(&b, " %s", extractHintStyle.Render(fmt.Sprintf("(%ds)", d.Duration)))
	}
	b.WriteString("\n\n")

	if len(d.Downloads.Video) > 0 {
		labels := make([]string, 0, len(d.Downloads.Video))
		for label := range d.Downloads.Video {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		b.WriteString("  Video:\n")
		for _, label := range labels {
			fmt.Fprintf(&b, "    • %s %s\n", strings.ToUpper(label), d.Downloads.Video[label])
		}
	}
	if d.Downloads.Audio != "" {
		fmt.Fprintf(&b, "  Audio:\n    • %s\n", d.Downloads.Audio)
	}
	if len(d.Downloads.Images) > 0 {
		fmt.Fprintf(&b, "  Images (%d):\n", len(d.Downloads.Images))
		for i, img := range d.Downloads.Images {
			fmt.Fprintf(&b, "    • [%d] %s\n", i+1, img)
		}
	}
	if d.Downloads.Note != "" {
		fmt.Fprintf(&b, "  %s %s\n", extractNoteStyle.Render("ℹ"), d.Downloads.Note)
	}
	b.WriteString("\n")
	return b.String()
}

// runExtractWithSpinner runs extraction with a spinner TUI
func runExtractWithSpinner(url string, run func() envelope.DownloadResponse) (envelope.DownloadResponse, error) {
	state := &extractState{}

	go func() {
		state.setDone(run())
	}()

	model := newExtractModel(url, state)
	p := tea.NewProgram(model)
	if _, err := p.Run(); err != nil {
		return envelope.DownloadResponse{}, err
	}

	done, resp := state.get()
	if !done {
		fmt.Fprintln(os.Stderr, color.YellowString("  cancelled"))
		return envelope.DownloadResponse{}, errReported
	}
	return resp, nil
}
