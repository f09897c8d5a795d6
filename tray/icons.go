package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"dictate/bridge"
)

const iconSize = 44

var (
	iconIdle       []byte
	iconListening  []byte
	iconProcessing []byte
	iconError      []byte
)

func init() {
	transparent := color.RGBA{A: 0}
	red := color.RGBA{R: 255, G: 59, B: 48, A: 255}
	amber := color.RGBA{R: 255, G: 159, B: 10, A: 255}
	dotR := iconSize / 6.5
	iconIdle = renderIcon(iconSize, &transparent, iconSize/8.0)
	iconListening = renderIcon(iconSize, &red, dotR)
	iconProcessing = renderIcon(iconSize, &amber, dotR)
	iconError = renderWarnIcon(iconSize, &transparent, iconSize/8.0)
}

// Icon returns the PNG for a taskbar state; unknown states get the idle icon.
func Icon(s bridge.TaskbarState) []byte {
	switch s {
	case bridge.Listening:
		return iconListening
	case bridge.Processing:
		return iconProcessing
	}
	return iconIdle
}

// AppIcon is used for the window and notifications.
func AppIcon() []byte { return iconListening }

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic("encodePNG: " + err.Error())
	}
	return buf.Bytes()
}

func drawCircleIcon(img *image.RGBA, size int, dot *color.RGBA, dotR float64) {
	cx, cy := float64(size)/2, float64(size)/2
	r := float64(size)/2 - 1
	for y := range size {
		for x := range size {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			if dot != nil && d <= dotR {
				img.Set(x, y, dot)
			} else if d <= r {
				img.Set(x, y, color.Black)
			}
		}
	}
}

func renderIcon(size int, dot *color.RGBA, dotR float64) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	drawCircleIcon(img, size, dot, dotR)
	return encodePNG(img)
}

// renderWarnIcon adds a yellow "!" badge in the bottom-right corner.
func renderWarnIcon(size int, dot *color.RGBA, dotR float64) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	drawCircleIcon(img, size, dot, dotR)

	s := float64(size)
	badgeR := s * 0.34
	badgeCX, badgeCY := s-badgeR+0.5, s-badgeR+0.5
	dark := color.RGBA{R: 40, G: 40, B: 40, A: 255}
	yellow := color.RGBA{R: 255, G: 204, B: 0, A: 255}
	bangHW := badgeR * 0.24

	for y := range size {
		for x := range size {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			if math.Hypot(fx-badgeCX, fy-badgeCY) > badgeR {
				continue
			}
			localY := (fy - (badgeCY - badgeR*0.7)) / (badgeR * 1.4)
			localX := math.Abs(fx - badgeCX)
			isBar := localX <= bangHW && localY >= 0.1 && localY <= 0.62
			isDot := localX <= bangHW && localY >= 0.72 && localY <= 0.85
			if isBar || isDot {
				img.Set(x, y, dark)
			} else {
				img.Set(x, y, yellow)
			}
		}
	}
	return encodePNG(img)
}
