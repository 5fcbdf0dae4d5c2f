package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/neurobridge/scheduling-api/internal/models"
	appErrors "github.com/neurobridge/scheduling-api/pkg/errors"
	"github.com/neurobridge/scheduling-api/pkg/export"
)

// ExportFormat enumerates supported schedule export encodings.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type scheduleReader interface {
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
}

// ExportResult bundles rendered bytes with transport metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders an educator's schedule into downloadable sheets.
type ExportService struct {
	appointments scheduleReader
	logger       *zap.Logger
}

// NewExportService creates a service instance.
func NewExportService(appointments scheduleReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{appointments: appointments, logger: logger}
}

// RenderSchedule exports every appointment of the educator within the range,
// terminal states included, so the sheet doubles as a session history.
func (s *ExportService) RenderSchedule(ctx context.Context, educatorID string, from, to time.Time, format ExportFormat) (*ExportResult, error) {
	if educatorID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "educatorId is required")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not precede from")
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	// Pages through the full range so a busy educator's sheet is never
	// truncated at the repository's page cap.
	filter := models.AppointmentFilter{
		EducatorID: educatorID,
		DateFrom:   &from,
		DateTo:     &to,
		Page:       1,
		PageSize:   100,
	}
	var appts []models.Appointment
	for {
		batch, total, err := s.appointments.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
		}
		appts = append(appts, batch...)
		if len(batch) == 0 || len(appts) >= total {
			break
		}
		filter.Page++
	}

	sheet := export.ScheduleSheet{
		EducatorID: educatorID,
		From:       from,
		To:         to,
		Entries:    make([]export.ScheduleEntry, 0, len(appts)),
	}
	for _, appt := range appts {
		location := string(appt.LocationType)
		if appt.Address != nil {
			location = *appt.Address
		}
		sheet.Entries = append(sheet.Entries, export.ScheduleEntry{
			Date:      appt.AppointmentDate,
			StartTime: appt.StartTime,
			EndTime:   appt.EndTime,
			FamilyID:  appt.FamilyID,
			Location:  location,
			Status:    string(appt.Status),
		})
	}

	stamp := fmt.Sprintf("%s_%s", from.Format("20060102"), to.Format("20060102"))
	switch format {
	case ExportFormatPDF:
		content, err := sheet.RenderPDF()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule pdf")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("schedule_%s_%s.pdf", educatorID, stamp),
		}, nil
	default:
		content, err := sheet.RenderCSV()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule csv")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("schedule_%s_%s.csv", educatorID, stamp),
		}, nil
	}
}
