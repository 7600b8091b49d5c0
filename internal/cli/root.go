package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imrishuroy/go-shoplist/internal/client"
	"github.com/imrishuroy/go-shoplist/internal/items"
)

const defaultAPIURL = "http://localhost:3000"

type app struct {
	v   *viper.Viper
	api client.API
}

// NewRootCommand builds the shoplist command tree. Flags can also be set
// through SHOPLIST_* environment variables.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	a.v.SetEnvPrefix("SHOPLIST")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "shoplist",
		Short: "Manage the shopping list from the terminal",
		Long: `shoplist talks to the shopping list API.

Configuration (in order of precedence):
  1. flags (--api-url, --timeout)
  2. environment (SHOPLIST_API_URL, SHOPLIST_TIMEOUT)
  3. defaults`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			a.api = client.NewHTTPClient(a.v.GetString("api-url"), a.v.GetDuration("timeout"))
			return nil
		},
	}
	root.PersistentFlags().String("api-url", defaultAPIURL, "base URL of the shopping list API")
	root.PersistentFlags().Duration("timeout", client.DefaultTimeout, "per-request timeout")
	root.PersistentFlags().StringP("output", "o", FormatTable, "output format: table, json or yaml")

	root.AddCommand(
		a.lsCommand(),
		a.addCommand(),
		a.setCommand(),
		a.toggleCommand(),
		a.rmCommand(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fail(stderr, err.Error())
		return 1
	}
	return 0
}

// Main is the entry point used by cmd/shoplist.
func Main() int {
	return Execute(os.Args[1:], os.Stdout, os.Stderr)
}

func (a *app) lsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List items, remaining first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var f items.Filter
			if cmd.Flags().Changed("purchased") {
				b, _ := cmd.Flags().GetBool("purchased")
				f.Purchased = &b
			}
			s := client.NewState(a.api)
			if err := s.Load(cmd.Context(), f); err != nil {
				return a.explain(err)
			}
			return render(cmd.OutOrStdout(), s, a.v.GetString("output"))
		},
	}
	cmd.Flags().Bool("purchased", false, "only purchased (=true) or remaining (=false) items")
	return cmd
}

func (a *app) addCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name> <quantity> <unit>",
		Short: "Add an item",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity must be a number: %q", args[1])
			}
			in := items.NewItem{Name: args[0], Quantity: qty, Unit: args[2]}
			if cmd.Flags().Changed("purchased") {
				b, _ := cmd.Flags().GetBool("purchased")
				in.Purchased = &b
			}
			return a.mutate(cmd, func(ctx context.Context, s *client.State) (string, error) {
				it, err := s.Create(ctx, in)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("added #%d %s", it.ID, it.Name), nil
			})
		},
	}
	cmd.Flags().Bool("purchased", false, "add the item as already purchased")
	return cmd
}

func (a *app) setCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Change some fields of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var p items.Patch
			flags := cmd.Flags()
			if flags.Changed("name") {
				name, _ := flags.GetString("name")
				p.Name = &name
			}
			if flags.Changed("quantity") {
				qty, _ := flags.GetInt("quantity")
				p.Quantity = &qty
			}
			if flags.Changed("unit") {
				unit, _ := flags.GetString("unit")
				p.Unit = &unit
			}
			if flags.Changed("purchased") {
				b, _ := flags.GetBool("purchased")
				p.Purchased = &b
			}
			return a.mutate(cmd, func(ctx context.Context, s *client.State) (string, error) {
				it, err := s.Update(ctx, id, p)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("updated #%d %s", it.ID, it.Name), nil
			})
		},
	}
	cmd.Flags().String("name", "", "new name")
	cmd.Flags().Int("quantity", 0, "new quantity")
	cmd.Flags().String("unit", "", "new unit")
	cmd.Flags().Bool("purchased", false, "set the purchased flag")
	return cmd
}

func (a *app) toggleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip the purchased flag of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.mutate(cmd, func(ctx context.Context, s *client.State) (string, error) {
				it, err := s.Toggle(ctx, id)
				if err != nil {
					return "", err
				}
				if it.Purchased {
					return fmt.Sprintf("#%d %s marked as purchased", it.ID, it.Name), nil
				}
				return fmt.Sprintf("#%d %s marked as not purchased", it.ID, it.Name), nil
			})
		},
	}
}

func (a *app) rmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.mutate(cmd, func(ctx context.Context, s *client.State) (string, error) {
				if err := s.Delete(ctx, id); err != nil {
					return "", err
				}
				return fmt.Sprintf("deleted #%d", id), nil
			})
		},
	}
}

// mutate loads the list, applies one confirmed mutation and renders the result.
func (a *app) mutate(cmd *cobra.Command, op func(context.Context, *client.State) (string, error)) error {
	ctx := cmd.Context()
	s := client.NewState(a.api)
	if err := s.Load(ctx, items.Filter{}); err != nil {
		return a.explain(err)
	}
	msg, err := op(ctx, s)
	if err != nil {
		return a.explain(err)
	}

	out := cmd.OutOrStdout()
	format := a.v.GetString("output")
	if format == FormatTable || format == "" {
		ok(out, msg)
	}
	return render(out, s, format)
}

// explain names the API URL when no response arrived at all.
func (a *app) explain(err error) error {
	var ae *client.APIError
	if errors.As(err, &ae) && ae.Status == 0 {
		return fmt.Errorf("cannot reach %s: %w", a.v.GetString("api-url"), err)
	}
	return err
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
