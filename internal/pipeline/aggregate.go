package pipeline

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/docverify/internal/extract"
)

// aggregated is the merged view of the page loop.
type aggregated struct {
	Text       string
	Confidence float64
	Processed  int
	Words      int
	Lines      int
}

// aggregate merges page outcomes in page order. Each page with text becomes
// "--- Page N ---\n<text>"; a failed page becomes "--- Page N ---\n[Error: msg]".
// Sections are separated by a blank line. Only pages that contributed text
// count toward confidence and the processed total.
func aggregate(pages []extract.PageOutcome) aggregated {
	var (
		sections []string
		sum      float64
		out      aggregated
	)
	for _, pg := range pages {
		switch {
		case pg.Err != "":
			sections = append(sections, fmt.Sprintf("--- Page %d ---\n[Error: %s]", pg.PageNumber, pg.Err))
		case pg.Contributed():
			sections = append(sections, fmt.Sprintf("--- Page %d ---\n%s", pg.PageNumber, *pg.Text))
			if pg.Confidence != nil {
				sum += *pg.Confidence
			}
			out.Processed++
			out.Words += pg.Words
			out.Lines += pg.Lines
		}
	}
	out.Text = strings.Join(sections, "\n\n")
	if out.Processed > 0 {
		out.Confidence = clamp(sum / float64(out.Processed))
	}
	return out
}

func clamp(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	default:
		return c
	}
}
