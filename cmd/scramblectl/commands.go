package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
)

func promptsCommand() *cli.Command {
	return &cli.Command{
		Name:  "prompts",
		Usage: "List the prompts the server offers",
		Action: func(c *cli.Context) error {
			prompts, err := newClient(c).Prompts(c.Context)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE")
			for _, p := range prompts {
				fmt.Fprintf(w, "%s\t%s\n", p.ID, p.Title)
			}
			return w.Flush()
		},
	}
}

func providersCommand() *cli.Command {
	return &cli.Command{
		Name:  "providers",
		Usage: "List provider backends and the selected one",
		Action: func(c *cli.Context) error {
			infos, err := newClient(c).Providers(c.Context)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tHOSTED\tSELECTED")
			for _, p := range infos {
				fmt.Fprintf(w, "%s\t%s\t%v\t%v\n", p.ID, p.Name, p.Hosted, p.Selected)
			}
			return w.Flush()
		},
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Show adapter availability",
		Action: func(c *cli.Context) error {
			h, err := newClient(c).Health(c.Context)
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(h.Adapters))
			for id := range h.Adapters {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "status: %s (provider %s)\n", h.Status, h.Provider)
			for _, id := range ids {
				s := h.Adapters[id]
				mark := " "
				if s.Selected {
					mark = "*"
				}
				fmt.Fprintf(w, "%s %s\t%v\t%s\n", mark, id, s.Available, s.Reason)
			}
			return w.Flush()
		},
	}
}

func enhanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "enhance",
		Usage:     "Enhance text given as arguments or on stdin",
		ArgsUsage: "[TEXT...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "prompt",
				Aliases: []string{"p"},
				Usage:   "prompt `ID`",
				Value:   "fix_grammar",
			},
		},
		Action: func(c *cli.Context) error {
			text := strings.Join(c.Args().Slice(), " ")
			if text == "" {
				raw, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(raw)
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("missing required argument: TEXT (or pipe it on stdin)")
			}

			res, err := newClient(c).Enhance(c.Context, c.String("prompt"), text)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, res.Text)
			if c.Bool("verbose") {
				fmt.Fprintf(c.App.ErrWriter, "[%s/%s, %dms]\n", res.Provider, res.Model, res.Elapsed.Milliseconds())
			}
			return nil
		},
	}
}
