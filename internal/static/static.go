// Package static embeds the frontend so the binary ships self-contained.
package static

import "embed"

//go:embed public
var PublicFS embed.FS
