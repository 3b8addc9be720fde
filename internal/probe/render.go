package probe

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
)

type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatTable:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or table)", s)
	}
}

// Write renders the report in the given format.
func Write(w io.Writer, r *Report, f Format) error {
	switch f {
	case FormatText, "":
		return WriteText(w, r)
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatTable:
		return WriteTable(w, r)
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

const (
	reportTitle = "SentencePiece Test Results:"
	headerRule  = "=================================================="
	caseRule    = "------------------------------"
)

// WriteText prints one labeled block per case.
func WriteText(w io.Writer, r *Report) error {
	var b strings.Builder
	b.WriteString(reportTitle)
	b.WriteByte('\n')
	if r.Model != "" {
		fmt.Fprintf(&b, "Model: %s\n", r.Model)
	}
	b.WriteString(headerRule)
	b.WriteByte('\n')

	for _, c := range r.Cases {
		fmt.Fprintf(&b, "Text: %s\n", strconv.Quote(c.Text))
		fmt.Fprintf(&b, "Pieces: %s\n", FormatPieces(c.Pieces))
		fmt.Fprintf(&b, "IDs: %s\n", FormatIDs(c.IDs))
		fmt.Fprintf(&b, "Decoded: %s\n", strconv.Quote(c.Decoded))
		b.WriteString(caseRule)
		b.WriteByte('\n')
	}

	s := r.Summary()
	fmt.Fprintf(&b, "Round trips: %d/%d, tokens: %d\n", s.RoundTrips, s.Cases, s.Tokens)
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON prints the report and its summary as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	out := struct {
		*Report
		Summary Summary `json:"summary"`
	}{r, r.Summary()}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteTable prints one row per case.
func WriteTable(w io.Writer, r *Report) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "TEXT", "PIECES", "IDS", "DECODED", "ROUND TRIP"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for i, c := range r.Cases {
		table.Append([]string{
			strconv.Itoa(i + 1),
			strconv.Quote(c.Text),
			FormatPieces(c.Pieces),
			FormatIDs(c.IDs),
			strconv.Quote(c.Decoded),
			strconv.FormatBool(c.RoundTrip),
		})
	}
	table.Render()
	return nil
}

// FormatPieces renders pieces as a bracketed list of quoted strings.
func FormatPieces(pieces []string) string {
	quoted := make([]string, len(pieces))
	for i, p := range pieces {
		quoted[i] = strconv.Quote(p)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// FormatIDs renders ids as a bracketed, comma separated list.
func FormatIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
