package sheets

// RGBColor is a cell background color in 0-255 channels.
type RGBColor struct {
	Red   uint8
	Green uint8
	Blue  uint8
}

// Background colors for published report rows.
var (
	ColorRed   = RGBColor{Red: 244, Green: 199, Blue: 195}
	ColorGreen = RGBColor{Red: 183, Green: 225, Blue: 205}
)

// DeriveColors maps each scored report to a background color from its
// negative-comment flag: RED if negative, GREEN otherwise. Purely positional;
// color[i] belongs to the i-th published row.
func DeriveColors(reports []map[string]any, negativeField string) []RGBColor {
	colors := make([]RGBColor, len(reports))
	for i, report := range reports {
		negative, _ := report[negativeField].(bool)
		if negative {
			colors[i] = ColorRed
		} else {
			colors[i] = ColorGreen
		}
	}
	return colors
}
