package cli

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const bannerDefaultWidth = 60

// PrintBanner renders a box-drawing banner around a title using the default width.
func PrintBanner(title string) {
	fmt.Print(renderBanner(title, bannerDefaultWidth))
}

// renderBanner builds the banner. If the title is wider than the inner width,
// the banner grows to fit it.
func renderBanner(title string, width int) string {
	if width < 10 {
		width = bannerDefaultWidth
	}

	inner := width - 2
	if n := utf8.RuneCountInString(title) + 2; n > inner {
		inner = n
	}

	topBottom := strings.Repeat("═", inner)
	return fmt.Sprintf("╔%s╗\n║%s║\n╚%s╝\n", topBottom, padCenter(title, inner), topBottom)
}

func padCenter(text string, width int) string {
	n := utf8.RuneCountInString(text)
	if n >= width {
		return text
	}
	padTotal := width - n
	left := padTotal / 2
	right := padTotal - left
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", right)
}
