package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleSheetRenderCSV(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	sheet := ScheduleSheet{
		EducatorID: "edu-1",
		From:       day,
		To:         day,
		Entries: []ScheduleEntry{
			{Date: day, StartTime: "09:00", EndTime: "10:00", FamilyID: "fam-1", Location: "online", Status: "confirmed"},
			{Date: day, StartTime: "10:30", EndTime: "11:00", FamilyID: "fam-2", Location: "12 Willow Lane", Status: "pending"},
		},
	}

	content, err := sheet.RenderCSV()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,start,end,family,location,status", lines[0])
	assert.Equal(t, "2025-03-10,09:00,10:00,fam-1,online,confirmed", lines[1])
	assert.Equal(t, "2025-03-10,10:30,11:00,fam-2,12 Willow Lane,pending", lines[2])
}

func TestScheduleSheetRenderPDFEmptyRange(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	sheet := ScheduleSheet{EducatorID: "edu-1", From: day, To: day}

	content, err := sheet.RenderPDF()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "%PDF"))
}
