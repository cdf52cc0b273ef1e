package main

import (
	"fmt"
	"strings"
	"time"

	"novelchat/pkg/wire"
	"novelchat/services/api"
	"novelchat/services/transport"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#10B981") // self
	mutedColor     = lipgloss.Color("#9CA3AF")
	errorColor     = lipgloss.Color("#EF4444")
	warnColor      = lipgloss.Color("#F59E0B")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	selfStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	peerStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	attachmentStyle = lipgloss.NewStyle().
			Foreground(warnColor).
			Underline(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)
)

func renderMessage(m wire.ChatMessage, self wire.ID) string {
	name := m.SenderNickname
	if name == "" {
		name = "#" + m.SenderID.String()
	}

	nameStyle := peerStyle
	if m.SenderID == self {
		nameStyle = selfStyle
	}

	var body string
	switch m.Kind {
	case wire.KindImage:
		body = attachmentStyle.Render("[image] " + m.FileName + " " + m.FileURL)
	case wire.KindFile:
		body = attachmentStyle.Render(fmt.Sprintf("[file] %s (%s) %s", m.FileName, humanSize(m.FileSize), m.FileURL))
	default:
		body = m.Content
	}

	return fmt.Sprintf("%s %s %s", mutedStyle.Render(clock(m.Timestamp)), nameStyle.Render(name+":"), body)
}

// clock shortens an ISO-8601 timestamp to local HH:MM.
func clock(ts string) string {
	for _, layout := range []string{api.TimestampLayout, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Local().Format("15:04")
		}
	}
	return "--:--"
}

func humanSize(s wire.Size) string {
	const unit = 1024
	n := int64(s)
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func renderState(s transport.State) string {
	switch s {
	case transport.StateOpen:
		return selfStyle.Render("● connected")
	case transport.StateConnecting:
		return mutedStyle.Render("○ connecting...")
	default:
		return errorStyle.Render("○ disconnected, retrying")
	}
}

func renderUsers(users []api.User) string {
	if len(users) == 0 {
		return mutedStyle.Render("No other users.")
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("Users") + "\n")
	for _, u := range users {
		status := mutedStyle.Render("offline")
		if u.Online {
			status = selfStyle.Render("online")
		}
		fmt.Fprintf(&b, "%6s  %-20s %s\n", u.ID.String(), u.DisplayName(), status)
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderConversations(convs []api.Conversation) string {
	if len(convs) == 0 {
		return mutedStyle.Render("No conversations yet.")
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("Conversations") + "\n")
	for _, c := range convs {
		name := c.TargetNickname
		if name == "" {
			name = "#" + c.TargetUserID.String()
		}
		unread := ""
		if c.UnreadCount > 0 {
			unread = errorStyle.Render(fmt.Sprintf(" (%d)", c.UnreadCount))
		}
		fmt.Fprintf(&b, "%6s  %-20s%s  %s\n", c.TargetUserID.String(), name, unread, mutedStyle.Render(c.LastMessageContent))
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderPalette(palette []string) string {
	parts := make([]string, len(palette))
	for i, e := range palette {
		parts[i] = fmt.Sprintf("%d %s", i+1, e)
	}
	return strings.Join(parts, "  ")
}
