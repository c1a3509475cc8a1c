package internal

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the explanation prompt for one snippet. The code is
// embedded verbatim; the fence around it is always longer than any backtick
// run inside the code so the snippet cannot close the block early.
func BuildPrompt(code, language, detailLevel string) string {
	lang := strings.ToLower(language)
	level := strings.ToLower(detailLevel)
	fence := fenceFor(code)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Please explain this %s code in plain English, suitable for a %s programmer.\n\n", language, level))
	sb.WriteString("Code:\n")
	sb.WriteString(fence + lang + "\n")
	sb.WriteString(code + "\n")
	sb.WriteString(fence + "\n\n")
	sb.WriteString("Please provide:\n")
	sb.WriteString("1. A brief overview of what the code does\n")
	sb.WriteString("2. Step-by-step explanation of each major part\n")
	sb.WriteString("3. Key concepts or patterns used\n")
	sb.WriteString("4. Any potential improvements or considerations\n\n")
	sb.WriteString(fmt.Sprintf("Make the explanation clear and easy to understand for someone at the %s level.", level))
	return sb.String()
}

// fenceFor returns a backtick fence of at least three characters, one longer
// than the longest backtick run in code.
func fenceFor(code string) string {
	longest, run := 0, 0
	for _, r := range code {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}
