package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurobridge/scheduling-api/internal/models"
	appErrors "github.com/neurobridge/scheduling-api/pkg/errors"
)

type scheduleReaderStub struct {
	appts []models.Appointment
	calls int
}

func (s *scheduleReaderStub) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	s.calls++
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = len(s.appts)
	}
	start := (page - 1) * size
	if start > len(s.appts) {
		start = len(s.appts)
	}
	end := start + size
	if end > len(s.appts) {
		end = len(s.appts)
	}
	return s.appts[start:end], len(s.appts), nil
}

func TestExportServiceRenderScheduleCSV(t *testing.T) {
	reader := &scheduleReaderStub{appts: []models.Appointment{{
		ID:              "appt-1",
		EducatorID:      "edu-1",
		FamilyID:        "fam-1",
		AppointmentDate: monday2025,
		StartTime:       "09:00",
		EndTime:         "10:00",
		LocationType:    models.LocationOnline,
		Status:          models.AppointmentStatusConfirmed,
	}}}
	svc := NewExportService(reader, nil)

	result, err := svc.RenderSchedule(context.Background(), "edu-1",
		monday2025, monday2025.AddDate(0, 0, 6), ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Contains(t, result.Filename, "edu-1")

	content := string(result.Content)
	assert.True(t, strings.HasPrefix(content, "date,start,end,family,location,status"))
	assert.Contains(t, content, "2025-03-10,09:00,10:00,fam-1,online,confirmed")
}

func TestExportServiceRenderSchedulePagesThroughLargeSchedules(t *testing.T) {
	appts := make([]models.Appointment, 0, 250)
	for i := 0; i < 250; i++ {
		appts = append(appts, models.Appointment{
			ID:              fmt.Sprintf("appt-%d", i),
			EducatorID:      "edu-1",
			FamilyID:        fmt.Sprintf("fam-%d", i),
			AppointmentDate: monday2025.AddDate(0, 0, i%28),
			StartTime:       "09:00",
			EndTime:         "10:00",
			LocationType:    models.LocationOnline,
			Status:          models.AppointmentStatusConfirmed,
		})
	}
	reader := &scheduleReaderStub{appts: appts}
	svc := NewExportService(reader, nil)

	result, err := svc.RenderSchedule(context.Background(), "edu-1",
		monday2025, monday2025.AddDate(0, 1, 0), ExportFormatCSV)
	require.NoError(t, err)

	content := string(result.Content)
	assert.Equal(t, 251, strings.Count(content, "\n")) // header plus one row per appointment
	assert.Contains(t, content, "fam-249")
	assert.GreaterOrEqual(t, reader.calls, 3)
}

func TestExportServiceRenderSchedulePDF(t *testing.T) {
	svc := NewExportService(&scheduleReaderStub{}, nil)

	result, err := svc.RenderSchedule(context.Background(), "edu-1",
		monday2025, monday2025, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.NotEmpty(t, result.Content)
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&scheduleReaderStub{}, nil)

	_, err := svc.RenderSchedule(context.Background(), "edu-1",
		monday2025, monday2025, ExportFormat("xlsx"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportServiceRejectsInvertedRange(t *testing.T) {
	svc := NewExportService(&scheduleReaderStub{}, nil)

	_, err := svc.RenderSchedule(context.Background(), "edu-1",
		monday2025, monday2025.AddDate(0, 0, -1), ExportFormatCSV)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
