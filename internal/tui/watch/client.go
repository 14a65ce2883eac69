package watch

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// --- Message types ---

type healthMsg struct {
	Status          string `json:"status"`
	HooksLoaded     int    `json:"hooks_loaded"`
	AllowlistRanges int    `json:"allowlist_ranges"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
}

type logsMsg string

type tickMsg time.Time

type errMsg error

// --- Commands ---

var client = &http.Client{Timeout: 5 * time.Second}

// fetchHealth polls GET /health.
func fetchHealth(baseURL string) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.Get(baseURL + "/health")
		if err != nil {
			return errMsg(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return errMsg(fmt.Errorf("health: unexpected status %d", resp.StatusCode))
		}

		var h healthMsg
		if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
			return errMsg(err)
		}
		return h
	}
}

// fetchLogs polls GET /logs.
func fetchLogs(baseURL string) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.Get(baseURL + "/logs")
		if err != nil {
			return errMsg(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
		if err != nil {
			return errMsg(err)
		}
		return logsMsg(body)
	}
}

// tick schedules the next poll.
func tick() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}
