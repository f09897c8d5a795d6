//go:build gui

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// dictateTheme is the default dark theme with the recording red as accent.
type dictateTheme struct{}

var (
	colorBackground = color.RGBA{18, 18, 18, 255}
	colorForeground = color.RGBA{200, 200, 200, 255}
	colorRecord     = color.RGBA{255, 59, 48, 255}
	colorInput      = color.RGBA{30, 30, 30, 255}
)

func (d *dictateTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return colorBackground
	case theme.ColorNameForeground:
		return colorForeground
	case theme.ColorNamePrimary:
		return colorRecord
	case theme.ColorNameInputBackground:
		return colorInput
	}
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}

func (d *dictateTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (d *dictateTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (d *dictateTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameText {
		return 15
	}
	return theme.DefaultTheme().Size(name)
}
