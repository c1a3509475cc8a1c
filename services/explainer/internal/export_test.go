package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExport(t *testing.T) {
	rec := Record{
		Code:        "print(1)",
		Language:    "Python",
		DetailLevel: LevelBeginner,
		Explanation: "This prints 1.",
		Timestamp:   time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local),
	}

	want := `Code Explanation
=================
Language: Python
Detail Level: Beginner
Generated: 2024-03-09 14:05:07

Code:
print(1)

Explanation:
This prints 1.
`
	assert.Equal(t, want, ExportText(rec))
	assert.Equal(t, "code_explanation_2024-03-09_14-05-07.txt", ExportFilename(rec))
}
