package main

import (
	"campus-chat/domain"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

const clock = "2006-01-02 15:04"

func success(label string) string { return color.New(color.FgGreen, color.OpBold).Render(label) }

func failure(label string) string { return color.New(color.FgRed, color.OpBold).Render(label) }

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func renderInbox(out io.Writer, me domain.UserID, conversations []domain.Conversation) {
	if len(conversations) == 0 {
		fmt.Fprintln(out, color.Gray.Render("no conversations"))
		return
	}
	table := newTable(out, "Conversation", "With", "Last message", "Updated")
	for _, c := range conversations {
		with := "-"
		if p, ok := c.Counterpart(me); ok {
			with = string(p.UserID)
			if p.User != nil {
				with = p.User.DisplayName()
			}
		}
		last := ""
		if c.LastMessage != nil {
			last = truncate(c.LastMessage.Content, 40)
			if !c.LastMessage.Read && c.LastMessage.SenderID != me {
				last = color.Bold.Render(last)
			}
		}
		table.Append([]string{string(c.ID), with, last, local(c.UpdatedAt)})
	}
	table.Render()
}

func renderMessages(out io.Writer, messages []domain.Message) {
	if len(messages) == 0 {
		fmt.Fprintln(out, color.Gray.Render("no messages"))
		return
	}
	table := newTable(out, "Sent", "From", "Message", "Read")
	for _, m := range messages {
		table.Append([]string{local(m.CreatedAt), senderName(m), m.Content, readMark(m.Read)})
	}
	table.Render()
}

func renderUsers(out io.Writer, users []domain.UserInfo) {
	if len(users) == 0 {
		fmt.Fprintln(out, color.Gray.Render("no users"))
		return
	}
	table := newTable(out, "User", "Name", "Email", "Avatar")
	for _, u := range users {
		table.Append([]string{string(u.ID), u.DisplayName(), u.Email, u.AvatarURL})
	}
	table.Render()
}

func formatMessage(m domain.Message) string {
	return fmt.Sprintf("%s %s %s", color.Gray.Render(local(m.CreatedAt)), color.Cyan.Render(senderName(m)+":"), m.Content)
}

func senderName(m domain.Message) string {
	if m.Sender != nil {
		return m.Sender.DisplayName()
	}
	return string(m.SenderID)
}

func readMark(read bool) string {
	if read {
		return "yes"
	}
	return "no"
}

func local(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(clock)
}

func truncate(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
