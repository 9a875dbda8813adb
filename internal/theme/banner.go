package theme

import (
	"fmt"
)

// Banner returns the CLI banner.
func Banner() string {
	const magenta = "\033[35m"
	const yellow = "\033[33m"
	const reset = "\033[0m"

	return "" +
		"  🔥👑🌶️   " + magenta + "HYPEBOT" + reset + "   🌶️👑🔥\n" +
		yellow + "  ──────────────────────────────\n" + reset +
		"  engagement highlights for Bluesky\n"
}

// PrintBanner prints the banner to stdout.
func PrintBanner() {
	fmt.Print(Banner())
}
