package catalog

import "strings"

var (
	manifestReplacer = strings.NewReplacer(
		" ", "_", "/", "_", `\`, "_", "'", "_", `"`, "_",
	)

	archiveReplacer = strings.NewReplacer(
		".", "_", `\`, "_", "[", "_", "]", "_", ",", "_", "!", "_", "?", "_",
		";", "_", ":", "_", "`", "_", " ", "_", "/", "_", "'", "_", `"`, "_",
		"~", "_", "+", "_", "=", "_", "<", "_", ">", "_", "(", "_", ")", "_",
		"{", "_", "}", "_",
	)
)

// SafeTitle maps a title to the file name stem used for manifests and media directories
func SafeTitle(title string) string {
	return manifestReplacer.Replace(title)
}

// ArchiveSafeTitle maps a title to the directory name used for repository snapshots.
// It replaces a wider punctuation set than SafeTitle because the result ends up in URLs.
func ArchiveSafeTitle(title string) string {
	return archiveReplacer.Replace(title)
}
