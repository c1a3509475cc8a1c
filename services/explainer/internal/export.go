package internal

import (
	"fmt"
	"strings"
)

// ExportText renders a record as the downloadable plain-text artifact.
func ExportText(r Record) string {
	return fmt.Sprintf(`Code Explanation
=================
Language: %s
Detail Level: %s
Generated: %s

Code:
%s

Explanation:
%s
`, r.Language, r.DetailLevel, r.Stamp(), r.Code, r.Explanation)
}

// ExportFilename derives the download name from the record's timestamp.
func ExportFilename(r Record) string {
	stamp := strings.NewReplacer(":", "-", " ", "_").Replace(r.Stamp())
	return "code_explanation_" + stamp + ".txt"
}
