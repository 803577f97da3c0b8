package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-content-api/internal/models"
	appErrors "github.com/noah-isme/lms-content-api/pkg/errors"
	"github.com/noah-isme/lms-content-api/pkg/export"
)

// ExportFormat names a supported outline export encoding.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type exportVersionReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseVersion, error)
}

type exportModuleReader interface {
	ListDetailByVersion(ctx context.Context, versionID string) ([]models.ModuleDetail, error)
}

// ExportResult carries rendered export bytes with response metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders a published version's module/content outline as a
// downloadable document.
type ExportService struct {
	courses  courseReader
	versions exportVersionReader
	modules  exportModuleReader
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(courses courseReader, versions exportVersionReader, modules exportModuleReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		courses:  courses,
		versions: versions,
		modules:  modules,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

var outlineColumns = []string{"Module", "Module Title", "Item", "Type", "Item Title", "Max Score"}

// VersionOutline renders the outline of one course version.
func (s *ExportService) VersionOutline(ctx context.Context, courseID, versionID string, format ExportFormat) (*ExportResult, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch course")
	}
	version, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course version not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch version")
	}
	if version.CourseID != course.ID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "version does not belong to this course")
	}

	details, err := s.modules.ListDetailByVersion(ctx, version.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list modules")
	}

	table := buildOutlineTable(details)
	filename := fmt.Sprintf("%s-v%d-outline", course.ID, version.VersionNumber)
	subtitle := fmt.Sprintf("Version %d: %s", version.VersionNumber, version.ChangeLog)

	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: filename + ".csv"}, nil
	case ExportFormatPDF:
		content, err := s.pdf.Render(table, course.Title, subtitle)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: filename + ".pdf"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func buildOutlineTable(details []models.ModuleDetail) export.Table {
	rows := make([][]string, 0)
	for _, module := range details {
		for _, item := range module.Content {
			maxScore := ""
			if item.Assignment != nil {
				maxScore = strconv.Itoa(item.Assignment.MaxScore)
			}
			rows = append(rows, []string{
				strconv.Itoa(module.Position),
				module.Title,
				strconv.Itoa(item.Position),
				string(item.Type),
				item.Title,
				maxScore,
			})
		}
	}
	return export.Table{Columns: outlineColumns, Rows: rows}
}
