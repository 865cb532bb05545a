package settings

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/starford/fiftytwo/internal/models"
)

// CSS renders the preferences as CSS custom properties. Colors that parse as
// hex are emitted as "H S% L%" triples; other safe values pass through and
// unsafe ones are replaced by the defaults.
func CSS(p models.Preferences) string {
	theme := p.Theme
	if ValidateTheme(theme) != nil {
		theme = Defaults.Theme
	}

	var b strings.Builder
	b.WriteString(":root {\n")
	fmt.Fprintf(&b, "  color-scheme: %s;\n", theme)
	fmt.Fprintf(&b, "  --primary: %s;\n", hslVar(p.AccentColor, Defaults.AccentColor))
	fmt.Fprintf(&b, "  --accent: %s;\n", hslVar(p.AccentColor, Defaults.AccentColor))
	fmt.Fprintf(&b, "  --background: %s;\n", hslVar(p.BackgroundColor, Defaults.BackgroundColor))
	b.WriteString("}\n")
	return b.String()
}

func hslVar(c, fallback string) string {
	col, err := colorful.Hex(c)
	if err != nil {
		if c != "" && safeCSSValue(c) {
			return c
		}
		col, _ = colorful.Hex(fallback)
	}
	h, s, l := col.Hsl()
	return fmt.Sprintf("%.0f %.0f%% %.0f%%", h, s*100, l*100)
}
