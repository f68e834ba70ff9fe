// Package assets embeds the static files shipped with the binaries.
package assets

import "embed"

//go:embed all:templates
var FS embed.FS

// EmailTemplatesDir is the path of the email templates inside FS.
const EmailTemplatesDir = "templates/email"
