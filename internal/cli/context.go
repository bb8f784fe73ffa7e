package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"

	"github.com/fileguard-project/fileguard/pkg/color"
	"github.com/fileguard-project/fileguard/pkg/model"
)

func fmtErr(w io.Writer, format string, args ...any) {
	prefix := "fileguard: "
	if color.Enabled() {
		prefix = color.Error("fileguard:") + " "
	}
	fmt.Fprintf(w, prefix+format+"\n", args...)
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// newTable returns a borderless table for listing output.
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	tbl := tablewriter.NewWriter(w)
	tbl.SetAutoFormatHeaders(false)
	tbl.SetAutoWrapText(false)
	tbl.SetBorder(false)
	tbl.SetHeader(header)
	return tbl
}

// formatReport renders a change report with colored markers.
func formatReport(r *model.ChangeReport) string {
	var sb strings.Builder

	sb.WriteString(color.Header("Changes to ") + color.Path(r.Path) + "\n")
	if r.Deleted {
		sb.WriteString("  " + color.Removed("(deleted)") + "\n")
	}
	for _, c := range r.Added {
		sb.WriteString("  " + color.Added("+ "+c.Path) + "\n")
	}
	for _, c := range r.Removed {
		sb.WriteString("  " + color.Removed("- "+c.Path) + "\n")
	}
	for _, c := range r.Modified {
		line := "~ " + c.Path
		if c.OldSize != c.Size {
			line += fmt.Sprintf(" (%d -> %d bytes)", c.OldSize, c.Size)
		}
		sb.WriteString("  " + color.Modified(line) + "\n")
	}
	if r.Empty() {
		sb.WriteString("  " + color.Dim("no changes") + "\n")
	}
	return sb.String()
}
