// Package slate renders the run manifest card: a QR code carrying the
// manifest and a short text label, saved as PNG next to the render.
package slate

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"gopkg.in/yaml.v3"
)

const (
	cardWidth  = 400
	qrSide     = 360
	margin     = 20
	lineHeight = 16
)

// Manifest identifies one generated animation.
type Manifest struct {
	RunID       string  `yaml:"run_id"`
	Mode        string  `yaml:"mode"`
	TotalFrames int     `yaml:"total_frames"`
	FrameRate   int     `yaml:"frame_rate"`
	Duration    float64 `yaml:"duration_sec"`
	Script      string  `yaml:"script"`
	Output      string  `yaml:"output"`
	Build       string  `yaml:"build,omitempty"`
	Created     string  `yaml:"created"`
}

// Encode is the QR payload.
func (m Manifest) Encode() (string, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	return string(data), nil
}

func (m Manifest) labelLines() []string {
	return []string{
		fmt.Sprintf("run %s", m.RunID),
		fmt.Sprintf("%s | %d frames @ %d fps | %.2fs", m.Mode, m.TotalFrames, m.FrameRate, m.Duration),
	}
}

// Render draws the card in memory.
func Render(m Manifest) (*image.RGBA, error) {
	payload, err := m.Encode()
	if err != nil {
		return nil, err
	}
	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	code := qr.Image(qrSide)

	lines := m.labelLines()
	height := margin + qrSide + margin/2 + len(lines)*lineHeight + margin
	card := image.NewRGBA(image.Rect(0, 0, cardWidth, height))
	draw.Draw(card, card.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	// go-qrcode может вернуть картинку чуть больше запрошенной, вписываем
	dst := image.Rect(margin, margin, margin+qrSide, margin+qrSide)
	draw.NearestNeighbor.Scale(card, dst, code, code.Bounds(), draw.Src, nil)

	d := &font.Drawer{
		Dst:  card,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}
	y := margin + qrSide + margin/2 + basicfont.Face7x13.Ascent
	for _, line := range lines {
		w := d.MeasureString(line).Ceil()
		x := (cardWidth - w) / 2
		if x < margin/2 {
			x = margin / 2
		}
		d.Dot = fixed.P(x, y)
		d.DrawString(line)
		y += lineHeight
	}
	return card, nil
}

// Generate renders the card and writes it to path as PNG.
func Generate(path string, m Manifest) error {
	card, err := Render(m)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, card); err != nil {
		f.Close()
		return fmt.Errorf("png encode: %w", err)
	}
	return f.Close()
}
