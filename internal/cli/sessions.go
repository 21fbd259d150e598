package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/soyeahso/dewey/internal/config"
	"github.com/soyeahso/dewey/internal/domain"
	"github.com/soyeahso/dewey/internal/store"
	"github.com/spf13/cobra"
)

var (
	listHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	listIDStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	listCountStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	listDateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List persisted chat sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			db, err := store.Open(paths.DBPath(cfg), log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			registry, err := store.NewRegistryStore(store.NewSQLiteKV(db), log)
			if err != nil {
				return fmt.Errorf("loading chats: %w", err)
			}

			reg := registry.Snapshot()
			if reg.Len() == 0 {
				fmt.Println(listHeaderStyle.Render("No chats found"))
				return nil
			}

			fmt.Println(listHeaderStyle.Render(fmt.Sprintf("Found %d chat(s)", reg.Len())))
			fmt.Println()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, listHeaderStyle.Render("ID")+"\t"+
				listHeaderStyle.Render("Messages")+"\t"+
				listHeaderStyle.Render("Created")+"\t"+
				listHeaderStyle.Render("First message")+"\t")

			for _, id := range reg.Order {
				sess, _ := reg.Get(id)
				marker := ""
				if id == reg.ActiveID {
					marker = " *"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
					listIDStyle.Render(id+marker),
					listCountStyle.Render(strconv.Itoa(len(sess.Messages))),
					listDateStyle.Render(createdFromID(id)),
					preview(sess))
			}
			return w.Flush()
		},
	}
}

// createdFromID recovers a creation time from a millisecond-timestamp chat
// id. Ids that do not parse render as a dash.
func createdFromID(id string) string {
	ms, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}

// preview returns the first user message, truncated for the table.
func preview(sess *domain.ChatSession) string {
	for _, msg := range sess.Messages {
		if msg.IsUser {
			text := strings.ReplaceAll(msg.Content, "\n", " ")
			if len(text) > 50 {
				text = text[:47] + "..."
			}
			return text
		}
	}
	return "(empty)"
}
