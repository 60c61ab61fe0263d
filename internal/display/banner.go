// Package display holds console presentation helpers: the startup banner
// and human-readable size formatting.
package display

import (
	"fmt"
	"os"

	"github.com/gookit/color"
)

const banner = `                   _ _        __
 _ __ ___   ___  __| (_) __ _ / _| ___ _ __ _ __ _   _
| '_ ` + "`" + ` _ \ / _ \/ _` + "`" + ` | |/ _` + "`" + ` | |_ / _ \ '__| '__| | | |
| | | | | |  __/ (_| | | (_| |  _|  __/ |  | |  | |_| |
|_| |_| |_|\___|\__,_|_|\__,_|_|  \___|_|  |_|   \__, |
                                                 |___/
`

// PrintBanner prints the ASCII art banner; magenta when colors are enabled.
func PrintBanner() {
	fmt.Fprint(os.Stdout, color.Magenta.Sprint(banner))
}
