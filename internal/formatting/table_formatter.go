package formatting

import (
	"fmt"

	"ocbridge/internal/oauth"
	pkgstrings "ocbridge/pkg/strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{
		options: options,
	}
}

// FormatMachines renders one row per machine followed by a summary footer.
func (f *TableFormatter) FormatMachines(listing *oauth.MachineListing) error {
	out := f.options.out()

	if len(listing.Machines) == 0 {
		fmt.Fprintln(out, f.formatEmptyMessage("📋", "No machines found"))
	} else {
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{
			f.header("SERIAL NUMBER"),
			f.header("NAME"),
			f.header("MODEL"),
			f.header("TYPE"),
			f.header("YEAR"),
		})
		for _, m := range newListingView(listing).Values {
			t.AppendRow(table.Row{
				m.SerialNumber,
				pkgstrings.Truncate(m.Name, pkgstrings.DefaultCellMaxLen),
				pkgstrings.Truncate(m.Model, pkgstrings.DefaultCellMaxLen),
				pkgstrings.Truncate(m.Type, pkgstrings.DefaultCellMaxLen),
				m.Year,
			})
		}
		t.Render()
	}

	if f.options.Quiet {
		return nil
	}

	fmt.Fprintf(out, "\n%s %s %s\n",
		f.colorize(text.FgHiBlue, "Total:"),
		f.colorize(text.FgHiWhite, fmt.Sprint(len(listing.Machines))),
		f.colorize(text.FgHiBlue, "machines"))
	if listing.Skipped > 0 {
		fmt.Fprintln(out, f.colorize(text.FgYellow,
			fmt.Sprintf("%d records could not be read and were skipped", listing.Skipped)))
	}
	if listing.Truncated {
		fmt.Fprintln(out, f.colorize(text.FgYellow, "The result page was full; more machines may exist"))
	}
	return nil
}

func (f *TableFormatter) header(s string) string {
	return f.colorize(text.FgHiCyan, s)
}

func (f *TableFormatter) colorize(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}

func (f *TableFormatter) formatEmptyMessage(icon, message string) string {
	return fmt.Sprintf("%s %s", f.colorize(text.FgYellow, icon), f.colorize(text.FgYellow, message))
}

// SetOptions updates the formatter options
func (f *TableFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *TableFormatter) GetOptions() Options {
	return f.options
}
