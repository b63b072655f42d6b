package codekeeper

import "embed"

// ContentFS holds the markdown help pages shipped with the binary. A
// CONTENT_PATH directory on disk takes precedence so pages can be edited
// without a rebuild.
//
//go:embed content
var ContentFS embed.FS
