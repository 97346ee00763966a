// Package visualize renders problems and solve results for the visualize_*
// tools. Rendering is pure-Go SVG; when a headless Chrome is available the
// SVG can be rasterized to PNG, otherwise the SVG itself is the "placeholder"
// the tool contract allows.
package visualize

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"qanneal/internal/anneal"
	"qanneal/internal/qubo"
)

// Options sets the canvas size; zero values fall back to 640x480.
type Options struct {
	Width  int
	Height int
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 640
	}
	if o.Height <= 0 {
		o.Height = 480
	}
	return o
}

// ProblemSVG draws the coefficient graph: variables on a circle, couplings as
// chords whose stroke width scales with |coefficient|, linear terms as node
// fill intensity (blue negative, red positive).
func ProblemSVG(m *qubo.Model, opts Options) string {
	opts = opts.withDefaults()
	vars := m.Variables()

	var b strings.Builder
	header(&b, opts)

	if len(vars) == 0 {
		text(&b, opts.Width/2, opts.Height/2, "empty model")
		b.WriteString("</svg>\n")
		return b.String()
	}

	cx := float64(opts.Width) / 2
	cy := float64(opts.Height) / 2
	r := math.Min(cx, cy) * 0.75

	pos := make(map[int][2]float64, len(vars))
	for i, v := range vars {
		angle := 2 * math.Pi * float64(i) / float64(len(vars))
		pos[v] = [2]float64{cx + r*math.Cos(angle), cy + r*math.Sin(angle)}
	}

	maxQuad := maxAbs(m.Quadratic)
	pairs := make([]qubo.Pair, 0, len(m.Quadratic))
	for p := range m.Quadratic {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].U != pairs[j].U {
			return pairs[i].U < pairs[j].U
		}
		return pairs[i].V < pairs[j].V
	})
	for _, p := range pairs {
		c := m.Quadratic[p]
		width := 1.0
		if maxQuad > 0 {
			width = 1 + 4*math.Abs(c)/maxQuad
		}
		a, bpt := pos[p.U], pos[p.V]
		fmt.Fprintf(&b,
			"  <line x1=\"%.1f\" y1=\"%.1f\" x2=\"%.1f\" y2=\"%.1f\" stroke=\"%s\" stroke-width=\"%.1f\"/>\n",
			a[0], a[1], bpt[0], bpt[1], signColor(c), width)
	}

	maxLin := maxAbsLinear(m.Linear)
	for _, v := range vars {
		p := pos[v]
		fill := "#cccccc"
		if c, ok := m.Linear[v]; ok && maxLin > 0 {
			fill = signColor(c)
		}
		fmt.Fprintf(&b, "  <circle cx=\"%.1f\" cy=\"%.1f\" r=\"14\" fill=\"%s\" stroke=\"#333\"/>\n",
			p[0], p[1], fill)
		text(&b, int(p[0]), int(p[1])+4, fmt.Sprintf("%d", v))
	}

	title(&b, opts, fmt.Sprintf("%s problem: %d variables, %d couplings",
		m.Kind, len(vars), len(m.Quadratic)))
	b.WriteString("</svg>\n")
	return b.String()
}

// ResultSVG draws an energy histogram of the sample set: one bar per sample
// in backend order, bar height by occurrences, labeled with energy.
func ResultSVG(samples []anneal.Sample, opts Options) string {
	opts = opts.withDefaults()

	var b strings.Builder
	header(&b, opts)

	if len(samples) == 0 {
		text(&b, opts.Width/2, opts.Height/2, "no samples")
		b.WriteString("</svg>\n")
		return b.String()
	}

	maxOcc := 0
	for _, s := range samples {
		if s.Occurrences > maxOcc {
			maxOcc = s.Occurrences
		}
	}

	margin := 40.0
	plotW := float64(opts.Width) - 2*margin
	plotH := float64(opts.Height) - 2*margin
	barW := plotW / float64(len(samples))

	for i, s := range samples {
		h := plotH * float64(s.Occurrences) / float64(maxOcc)
		x := margin + float64(i)*barW
		y := margin + plotH - h
		fill := "#4878b0"
		if i == 0 {
			fill = "#2ca05a" // best sample
		}
		fmt.Fprintf(&b,
			"  <rect x=\"%.1f\" y=\"%.1f\" width=\"%.1f\" height=\"%.1f\" fill=\"%s\" stroke=\"#333\"/>\n",
			x+1, y, barW-2, h, fill)
		text(&b, int(x+barW/2), opts.Height-int(margin)+16, fmt.Sprintf("%.2f", s.Energy))
		text(&b, int(x+barW/2), int(y)-4, fmt.Sprintf("%d", s.Occurrences))
	}

	title(&b, opts, fmt.Sprintf("%d samples, best energy %.4f", len(samples), samples[0].Energy))
	b.WriteString("</svg>\n")
	return b.String()
}

func header(b *strings.Builder, opts Options) {
	fmt.Fprintf(b,
		"<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"%d\" height=\"%d\" viewBox=\"0 0 %d %d\">\n",
		opts.Width, opts.Height, opts.Width, opts.Height)
	fmt.Fprintf(b, "  <rect width=\"%d\" height=\"%d\" fill=\"#ffffff\"/>\n", opts.Width, opts.Height)
}

func title(b *strings.Builder, opts Options, s string) {
	fmt.Fprintf(b, "  <text x=\"%d\" y=\"20\" text-anchor=\"middle\" font-family=\"sans-serif\" font-size=\"14\">%s</text>\n",
		opts.Width/2, escape(s))
}

func text(b *strings.Builder, x, y int, s string) {
	fmt.Fprintf(b, "  <text x=\"%d\" y=\"%d\" text-anchor=\"middle\" font-family=\"sans-serif\" font-size=\"11\">%s</text>\n",
		x, y, escape(s))
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

func signColor(c float64) string {
	if c < 0 {
		return "#4878b0" // blue: negative coefficient
	}
	return "#b04848" // red: positive coefficient
}

func maxAbs(m map[qubo.Pair]float64) float64 {
	var max float64
	for _, c := range m {
		if a := math.Abs(c); a > max {
			max = a
		}
	}
	return max
}

func maxAbsLinear(m map[int]float64) float64 {
	var max float64
	for _, c := range m {
		if a := math.Abs(c); a > max {
			max = a
		}
	}
	return max
}
