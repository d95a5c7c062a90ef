package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"lapsecam/internal/ipc"
)

var statusTitle = cases.Title(language.English)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded timelapse sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Sessions(limit)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Sessions) == 0 {
					fmt.Fprintln(stdout, "No sessions recorded")
					return nil
				}

				fmt.Fprintln(stdout, sessionsTable(resp.Sessions))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions to list (0 for all)")
	return cmd
}

// sessionsTable renders the session history with the frame columns
// right-aligned so ranges and counts line up across rows.
func sessionsTable(sessions []ipc.SessionRecord) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Status", "Started", "Frames", "Count", "Sent", "Result"})
	for _, session := range sessions {
		tw.AppendRow(table.Row{
			shortID(session.ID),
			titleCase(session.Status),
			formatSessionTime(session.StartedAt),
			fmt.Sprintf("%d-%d", session.FirstFrame, session.LastFrame),
			session.FrameCount,
			yesNo(session.Transferred),
			sessionOutcome(session),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func titleCase(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	return statusTitle.String(value)
}

func formatSessionTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04")
}

func sessionOutcome(session ipc.SessionRecord) string {
	switch session.Status {
	case "complete":
		return session.VideoPath
	case "failed":
		if session.Failure != "" {
			return session.Failure
		}
		return "failed"
	default:
		return "in progress"
	}
}
