package viz

import (
	"fmt"
	"math"
	"strings"
)

const (
	chartWidth  = 600
	chartHeight = 400
	chartPad    = 60
)

var seriesColors = []string{"#4a90d9", "#e8743b", "#19a979", "#945ecf", "#ed4a7b", "#13a4b4"}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func renderBar(labels []string, values []float64, title string) string {
	var sb strings.Builder

	plotW := chartWidth - 2*chartPad
	plotH := chartHeight - 2*chartPad

	openSVG(&sb, title)

	if len(values) == 0 {
		sb.WriteString(`</svg>`)
		return sb.String()
	}

	maxVal := values[0]
	for _, v := range values[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal <= 0 {
		maxVal = 1
	}

	barWidth := plotW / len(values)
	gap := barWidth / 5
	if gap < 2 {
		gap = 2
	}

	for i, v := range values {
		h := int(float64(plotH) * v / maxVal)
		if h < 0 {
			h = 0
		}
		x := chartPad + i*barWidth + gap/2
		y := chartPad + plotH - h
		sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`, x, y, barWidth-gap, h, seriesColors[0]))
		if i < len(labels) {
			sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" text-anchor="middle" font-size="10">%s</text>`,
				x+(barWidth-gap)/2, chartHeight-chartPad+15, xmlEscaper.Replace(labels[i])))
		}
	}

	sb.WriteString(`</svg>`)
	return sb.String()
}

func renderLine(names []string, series [][]float64, title string) string {
	var sb strings.Builder

	plotW := chartWidth - 2*chartPad
	plotH := chartHeight - 2*chartPad

	openSVG(&sb, title)

	maxVal := 0.0
	for _, s := range series {
		for _, v := range s {
			if v > maxVal {
				maxVal = v
			}
		}
	}
	if maxVal <= 0 {
		maxVal = 1
	}

	for si, s := range series {
		if len(s) == 0 {
			continue
		}
		color := seriesColors[si%len(seriesColors)]

		divisor := len(s) - 1
		if divisor < 1 {
			divisor = 1
		}
		points := make([]string, 0, len(s))
		for i, v := range s {
			x := chartPad + i*plotW/divisor
			y := chartPad + plotH - int(float64(plotH)*v/maxVal)
			points = append(points, fmt.Sprintf("%d,%d", x, y))
		}
		sb.WriteString(fmt.Sprintf(`<polyline points="%s" fill="none" stroke="%s" stroke-width="2"/>`, strings.Join(points, " "), color))

		if si < len(names) && names[si] != "" {
			sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="11" fill="%s">%s</text>`,
				chartPad, chartPad-10+si*14, color, xmlEscaper.Replace(names[si])))
		}
	}

	sb.WriteString(`</svg>`)
	return sb.String()
}

func renderPie(labels []string, values []float64, title string) string {
	var sb strings.Builder

	cx := chartWidth / 2
	cy := chartHeight / 2
	radius := chartHeight/2 - 40

	openSVG(&sb, title)

	total := 0.0
	for _, v := range values {
		if v > 0 {
			total += v
		}
	}
	if total == 0 {
		// Nothing parseable: weight every slice equally so a chart still
		// comes out for purely categorical data.
		values = make([]float64, len(labels))
		for i := range values {
			values[i] = 1
		}
		total = float64(len(values))
	}
	if total == 0 {
		sb.WriteString(`</svg>`)
		return sb.String()
	}

	startAngle := -90.0
	for i, v := range values {
		if v <= 0 {
			continue
		}
		endAngle := startAngle + 360*v/total
		color := seriesColors[i%len(seriesColors)]
		sb.WriteString(fmt.Sprintf(`<path d="%s" fill="%s" stroke="white" stroke-width="2"/>`,
			describeWedge(float64(cx), float64(cy), float64(radius), startAngle, endAngle), color))
		startAngle = endAngle
	}

	for i, label := range labels {
		if label == "" {
			continue
		}
		color := seriesColors[i%len(seriesColors)]
		y := 40 + i*16
		sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="10" height="10" fill="%s"/>`, chartWidth-140, y-9, color))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="11">%s</text>`, chartWidth-125, y, xmlEscaper.Replace(label)))
	}

	sb.WriteString(`</svg>`)
	return sb.String()
}

func openSVG(sb *strings.Builder, title string) {
	sb.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d">`, chartWidth, chartHeight))
	sb.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="white"/>`, chartWidth, chartHeight))
	if title != "" {
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="25" text-anchor="middle" font-size="16" font-weight="bold">%s</text>`,
			chartWidth/2, xmlEscaper.Replace(title)))
	}
}

func describeWedge(cx, cy, r, startAngle, endAngle float64) string {
	// Full circle: two explicit arcs, a single 360 degree arc collapses.
	if endAngle-startAngle >= 360 {
		endAngle = startAngle + 359.99
	}

	startRad := startAngle * math.Pi / 180
	endRad := endAngle * math.Pi / 180

	x1 := cx + r*math.Cos(startRad)
	y1 := cy + r*math.Sin(startRad)
	x2 := cx + r*math.Cos(endRad)
	y2 := cy + r*math.Sin(endRad)

	largeArc := 0
	if endAngle-startAngle > 180 {
		largeArc = 1
	}

	return fmt.Sprintf("M %.2f %.2f A %.2f %.2f 0 %d 1 %.2f %.2f L %.2f %.2f Z",
		x1, y1, r, r, largeArc, x2, y2, cx, cy)
}
