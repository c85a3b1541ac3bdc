package render

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"pdfsum/internal/domain"
)

var ErrNoWords = errors.New("no words to render")

const (
	WordCloudWidth  = 800
	WordCloudHeight = 400

	minFontSize    = 10.0
	maxFontSize    = 72.0
	shrinkFactor   = 0.8
	spiralStep     = 0.1
	spiralSpacing  = 2.0
	maxSpiralSteps = 6000
	wordPadding    = 2.0
)

var palette = []color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	color.RGBA{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
}

var regularFont = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(goregular.TTF)
})

type box struct {
	x, y, w, h float64
}

func (b box) overlaps(o box) bool {
	return b.x < o.x+o.w && o.x < b.x+b.w && b.y < o.y+o.h && o.y < b.y+b.h
}

func (b box) inside(width, height float64) bool {
	return b.x >= 0 && b.y >= 0 && b.x+b.w <= width && b.y+b.h <= height
}

// WordCloud renders table as an 800x400 PNG. Words that do not fit even at
// the minimum size are left out.
func WordCloud(table domain.FrequencyTable) ([]byte, error) {
	if len(table) == 0 {
		return nil, ErrNoWords
	}

	font, err := regularFont()
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	dc := gg.NewContext(WordCloudWidth, WordCloudHeight)
	dc.SetColor(color.White)
	dc.Clear()

	minCount, maxCount := countRange(table)
	placed := make([]box, 0, len(table))

	for i, wc := range table {
		for size := fontSize(wc.Count, minCount, maxCount); size >= minFontSize; size *= shrinkFactor {
			dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: size}))

			w, h := dc.MeasureString(wc.Token)
			b, ok := findSpot(w+2*wordPadding, h+2*wordPadding, placed)
			if !ok {
				continue
			}

			placed = append(placed, b)
			dc.SetColor(palette[i%len(palette)])
			dc.DrawStringAnchored(wc.Token, b.x+b.w/2, b.y+b.h/2, 0.5, 0.35)

			break
		}
	}

	var buf bytes.Buffer
	if err = dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	return buf.Bytes(), nil
}

func countRange(table domain.FrequencyTable) (int, int) {
	minCount, maxCount := table[0].Count, table[0].Count
	for _, wc := range table[1:] {
		minCount = min(minCount, wc.Count)
		maxCount = max(maxCount, wc.Count)
	}
	return minCount, maxCount
}

func fontSize(count, minCount, maxCount int) float64 {
	if maxCount == minCount {
		return (minFontSize + maxFontSize) / 2
	}

	ratio := float64(count-minCount) / float64(maxCount-minCount)

	return minFontSize + math.Sqrt(ratio)*(maxFontSize-minFontSize)
}

// findSpot walks an Archimedean spiral out from the center until the box
// fits inside the canvas without touching placed words.
func findSpot(w, h float64, placed []box) (box, bool) {
	cx, cy := WordCloudWidth/2.0, WordCloudHeight/2.0

	for step := range maxSpiralSteps {
		t := float64(step) * spiralStep
		r := spiralSpacing * t

		b := box{
			x: cx + r*math.Cos(t) - w/2,
			y: cy + r*math.Sin(t)*WordCloudHeight/WordCloudWidth - h/2,
			w: w,
			h: h,
		}
		if !b.inside(WordCloudWidth, WordCloudHeight) {
			continue
		}

		free := true
		for _, p := range placed {
			if b.overlaps(p) {
				free = false
				break
			}
		}
		if free {
			return b, true
		}
	}

	return box{}, false
}
