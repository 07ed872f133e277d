package files

import "strings"

// junkNames are OS and sync-client artifacts that must never consume quota
// or surface as resources. Exact base-name matches.
var junkNames = map[string]bool{
	".DS_Store":   true,
	"Thumbs.db":   true,
	"desktop.ini": true,
}

// junkPrefixes catch AppleDouble companions ("._*"), LibreOffice lock files
// (".~lock.*") and Office owner files ("~$*").
var junkPrefixes = []string{"._", ".~lock.", "~$"}

// isJunkName reports whether a base name matches the deny-list of OS-junk
// patterns. Uploads of such names are silently dropped.
func isJunkName(name string) bool {
	if junkNames[name] {
		return true
	}
	for _, prefix := range junkPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return strings.HasSuffix(name, ".lock")
}
