package chart

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/KaramelBytes/xdrscope-cli/internal/analysis"
)

// Heatmap geometry in pixels.
const (
	heatCell   = 80
	heatTop    = 40
	heatRight  = 20
	heatBottom = 60
	heatPad    = 8
)

var (
	coolwarm = []drawing.Color{
		drawing.ColorFromHex("3b4cc0"),
		drawing.ColorFromHex("dddddd"),
		drawing.ColorFromHex("b40426"),
	}
	undefinedCell = drawing.ColorFromHex("bbbbbb")
)

// HeatmapSize returns the image size Heatmap produces for k columns and the
// given labels.
func HeatmapSize(columns []string) (int, int) {
	left := labelWidth(columns) + 2*heatPad
	k := len(columns)
	return left + k*heatCell + heatRight, heatTop + k*heatCell + heatBottom
}

// Heatmap draws the correlation matrix with a coolwarm scale from -1 to 1 and
// the coefficient written in each cell. Undefined coefficients are grey.
func Heatmap(w io.Writer, m *analysis.CorrMatrix) error {
	if m == nil || len(m.Columns) == 0 {
		return ErrNoData
	}
	face := basicfont.Face7x13
	width, height := HeatmapSize(m.Columns)
	left := width - len(m.Columns)*heatCell - heatRight
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	ink := image.NewUniform(color.Black)
	drawText(img, ink, face, "Correlation Matrix", width/2-textWidth(face, "Correlation Matrix")/2, heatTop/2+5)

	for i, row := range m.Values {
		y0 := heatTop + i*heatCell
		label := m.Columns[i]
		drawText(img, ink, face, label, left-heatPad-textWidth(face, label), y0+heatCell/2+5)
		for j, r := range row {
			x0 := left + j*heatCell
			cell := image.Rect(x0, y0, x0+heatCell, y0+heatCell)
			fill := undefinedCell
			text := "nan"
			if !math.IsNaN(r) {
				fill = gradient(coolwarm, (r+1)/2)
				text = fmt.Sprintf("%.2f", r)
			}
			draw.Draw(img, cell, image.NewUniform(fill), image.Point{}, draw.Src)
			textCol := ink
			if !math.IsNaN(r) && math.Abs(r) > 0.6 {
				textCol = image.NewUniform(color.White)
			}
			drawText(img, textCol, face, text, x0+heatCell/2-textWidth(face, text)/2, y0+heatCell/2+5)
		}
	}
	for j, label := range m.Columns {
		short := truncate(face, label, heatCell-4)
		x0 := left + j*heatCell
		drawText(img, ink, face, short, x0+heatCell/2-textWidth(face, short)/2, heatTop+len(m.Columns)*heatCell+20)
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode heatmap: %w", err)
	}
	return nil
}

func drawText(dst draw.Image, src image.Image, face font.Face, s string, x, y int) {
	d := &font.Drawer{Dst: dst, Src: src, Face: face, Dot: fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}}
	d.DrawString(s)
}

func textWidth(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

func labelWidth(labels []string) int {
	wmax := 0
	for _, l := range labels {
		if w := textWidth(basicfont.Face7x13, l); w > wmax {
			wmax = w
		}
	}
	return wmax
}

// truncate shortens s with a trailing ".." until it fits in px.
func truncate(face font.Face, s string, px int) string {
	if textWidth(face, s) <= px {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && textWidth(face, string(r)+"..") > px {
		r = r[:len(r)-1]
	}
	return string(r) + ".."
}
