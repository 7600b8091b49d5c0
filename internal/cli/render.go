package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/imrishuroy/go-shoplist/internal/client"
	"github.com/imrishuroy/go-shoplist/internal/items"
)

// Output formats accepted by -o.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// render writes the state's items in format. The table groups remaining
// items above purchased ones.
func render(w io.Writer, s *client.State, format string) error {
	switch format {
	case FormatJSON:
		b, err := json.MarshalIndent(s.Items(), "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s.Items()); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTable, "":
		renderTable(w, s.Remaining(), s.Purchased())
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

func renderTable(w io.Writer, remaining, purchased []items.Item) {
	if len(remaining)+len(purchased) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("the list is empty"))
		return
	}

	lines := []string{titleStyle.Render(fmt.Sprintf("To buy (%d)", len(remaining)))}
	for _, it := range remaining {
		lines = append(lines, pendingStyle.Render(boxUnchecked)+" "+itemLine(it))
	}
	if len(purchased) > 0 {
		lines = append(lines, "", titleStyle.Render(fmt.Sprintf("Purchased (%d)", len(purchased))))
		for _, it := range purchased {
			lines = append(lines, successStyle.Render(boxChecked)+" "+doneStyle.Render(itemLine(it)))
		}
	}
	total := len(remaining) + len(purchased)
	lines = append(lines, "", mutedStyle.Render(fmt.Sprintf("%d/%d purchased", len(purchased), total)))
	panel(w, lines)
}

func itemLine(it items.Item) string {
	return fmt.Sprintf("#%-3d %s  %d %s", it.ID, it.Name, it.Quantity, it.Unit)
}
