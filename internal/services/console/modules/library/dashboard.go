package library

import (
	"math"
	"sort"

	"github.com/a-h/templ"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/apiclient"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/views"
	"golang.org/x/text/message"
)

// Word cloud font sizes in rem.
const (
	MinFontRem = 0.8
	MaxFontRem = 2.0
)

// Share is one bar of the entity distribution chart.
type Share struct {
	Name    string
	Count   int
	Percent float64
}

// Shares converts a distribution into percentages of its total, largest
// first.
func Shares(distribution map[string]int) []Share {
	total := 0
	for _, n := range distribution {
		if n > 0 {
			total += n
		}
	}
	out := make([]Share, 0, len(distribution))
	for name, n := range distribution {
		if n <= 0 {
			continue
		}
		out = append(out, Share{Name: name, Count: n, Percent: float64(n) * 100 / float64(total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Name < out[j].Name
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// FontSize interpolates value over [min,max] into the word cloud range. A
// flat range uses the smallest size.
func FontSize(value float64, lo float64, hi float64) float64 {
	if hi <= lo {
		return MinFontRem
	}
	ratio := (value - lo) / (hi - lo)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return MinFontRem + ratio*(MaxFontRem-MinFontRem)
}

func termRange(terms []apiclient.WordCloudTerm) (float64, float64) {
	if len(terms) == 0 {
		return 0, 0
	}
	lo, hi := terms[0].Value, terms[0].Value
	for _, t := range terms[1:] {
		lo = math.Min(lo, t.Value)
		hi = math.Max(hi, t.Value)
	}
	return lo, hi
}

func entityChartView(tr Translator, p *message.Printer, distribution map[string]int) templ.Component {
	shares := Shares(distribution)
	if len(shares) == 0 {
		return views.Empty(tr.T("library_no_entities", nil))
	}
	return views.Func(func(w *views.Writer) {
		for _, s := range shares {
			pct := p.Sprintf("%.1f%%", s.Percent)
			w.Rawf(`<div class="bar-row"><span class="bar-label">%s</span><span class="bar-track"><span class="bar" style="width:%.1f%%"></span></span><span class="bar-value">%s</span></div>`,
				views.Esc(s.Name), s.Percent, views.Esc(pct))
		}
	})
}

func wordCloudView(tr Translator, p *message.Printer, terms []apiclient.WordCloudTerm) templ.Component {
	if len(terms) == 0 {
		return views.Empty(tr.T("library_no_terms", nil))
	}
	lo, hi := termRange(terms)
	return views.Func(func(w *views.Writer) {
		for _, t := range terms {
			w.Rawf(`<span class="word" style="font-size:%.2frem" title="%s">%s</span> `,
				FontSize(t.Value, lo, hi), views.Esc(p.Sprint(t.Value)), views.Esc(t.Text))
		}
	})
}
