package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sanverite/statusboard/internal/broadcast"
	"github.com/sanverite/statusboard/internal/client"
)

// clientFlags are shared by every subcommand that talks to a daemon.
type clientFlags struct {
	addr string
	json bool
}

func (f *clientFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.addr, "addr", "a", envOr("STATUSBOARD_ADDR", client.DefaultAddr), "Daemon address (host:port or URL)")
	fs.BoolVar(&f.json, "json", false, "Print raw JSON")
}

func (f *clientFlags) client() (*client.Client, error) {
	return client.New(f.addr, nil)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// displayTitle flattens the line breaks used by displays.
func displayTitle(s string) string {
	return strings.ReplaceAll(s, "<br>", " · ")
}

func newSetCmd() *cobra.Command {
	var cf clientFlags
	cmd := &cobra.Command{
		Use:   "set <key>",
		Short: "Set the current mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cf.client()
			if err != nil {
				return err
			}
			return c.SetMode(cmd.Context(), args[0])
		},
	}
	cf.register(cmd.Flags())
	return cmd
}

func newDoNotDisturbCmd() *cobra.Command {
	var cf clientFlags
	cmd := &cobra.Command{
		Use:   "dnd",
		Short: "Toggle do-not-disturb",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := cf.client()
			if err != nil {
				return err
			}
			on, err := c.ToggleDoNotDisturb(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cf.json {
				return printJSON(out, map[string]bool{"do_not_disturb": on})
			}
			state := "off"
			if on {
				state = "on"
			}
			fmt.Fprintf(out, "do-not-disturb %s\n", state)
			return nil
		},
	}
	cf.register(cmd.Flags())
	return cmd
}

func newCycleCmd() *cobra.Command {
	var cf clientFlags
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Advance to the next mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := cf.client()
			if err != nil {
				return err
			}
			m, err := c.Cycle(cmd.Context())
			if err != nil {
				return err
			}
			if cf.json {
				return printJSON(cmd.OutOrStdout(), m)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", m.Key, displayTitle(m.Title))
			return nil
		},
	}
	cf.register(cmd.Flags())
	return cmd
}

func newStatusCmd() *cobra.Command {
	var cf clientFlags
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := cf.client()
			if err != nil {
				return err
			}
			st, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cf.json {
				return printJSON(out, st)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "mode\t%s %s\n", st.Mode.Key, displayTitle(st.Mode.Title))
			if st.Mode.Note != "" {
				fmt.Fprintf(tw, "note\t%s\n", st.Mode.Note)
			}
			fmt.Fprintf(tw, "do-not-disturb\t%v\n", st.DoNotDisturb)
			fmt.Fprintf(tw, "subscribers\t%d\n", st.Subscribers)
			return tw.Flush()
		},
	}
	cf.register(cmd.Flags())
	return cmd
}

func newModesCmd() *cobra.Command {
	var cf clientFlags
	cmd := &cobra.Command{
		Use:   "modes",
		Short: "List configured modes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := cf.client()
			if err != nil {
				return err
			}
			mr, err := c.Modes(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cf.json {
				return printJSON(out, mr)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tTITLE\tTRIGGERS\t")
			for _, m := range mr.Modes {
				key := m.Key
				if key == mr.Default {
					key += "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%v\t\n", key, displayTitle(m.Title), m.Triggers)
			}
			return tw.Flush()
		},
	}
	cf.register(cmd.Flags())
	return cmd
}

func newWatchCmd() *cobra.Command {
	var cf clientFlags
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream mode changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := cf.client()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			return c.Watch(ctx, func(m broadcast.Message) error {
				if cf.json {
					return json.NewEncoder(out).Encode(m)
				}
				_, err := fmt.Fprintf(out, "%s %s %s\n", m.Key, m.Emoji, displayTitle(m.Title))
				return err
			})
		},
	}
	cf.register(cmd.Flags())
	return cmd
}
