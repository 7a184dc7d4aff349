// Package importer turns uploaded spreadsheets into normalized lead rows
// ready for batch creation in the record store.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/propertydeck/leadsync/pkg/domain"
	"github.com/propertydeck/leadsync/pkg/fieldnorm"
	"github.com/propertydeck/leadsync/pkg/logger"
	"github.com/propertydeck/leadsync/pkg/models"
	"github.com/propertydeck/leadsync/pkg/recordstore"
)

// Service parses, normalizes and submits lead imports
type Service struct {
	store       recordstore.Store
	log         logger.Logger
	maxBytes    int64
	maxRows     int
	phoneRegion string
}

// NewService creates an import service
func NewService(store recordstore.Store, log logger.Logger, maxBytes int64, maxRows int, phoneRegion string) *Service {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	if maxRows <= 0 {
		maxRows = 10000
	}
	if phoneRegion == "" {
		phoneRegion = "US"
	}
	return &Service{
		store:       store,
		log:         log,
		maxBytes:    maxBytes,
		maxRows:     maxRows,
		phoneRegion: phoneRegion,
	}
}

// Preview is the parsed and normalized upload, shown to the operator
// before anything is written to the record store.
type Preview struct {
	ValidRows    []models.ImportRow `json:"valid_rows"`
	TotalRows    int                `json:"total_rows"`
	DroppedCount int                `json:"dropped_count"`
}

// Accepted upload formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// DetectFormat maps a filename to an accepted format. The rejection
// reason names the actual problem, never a generic "invalid file".
func DetectFormat(filename string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(fileExt(filename), "."))
	switch ext {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	case "xls":
		return "", domain.NewValidationError("legacy .xls files are not supported, save the sheet as .xlsx")
	case "":
		return "", domain.NewValidationError("file has no extension, expected .csv or .xlsx")
	}
	return "", domain.NewValidationError(fmt.Sprintf("unsupported file type .%s, expected .csv or .xlsx", ext))
}

func fileExt(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

// header aliases: spreadsheet columns arrive under many spellings
var headerAliases = map[string]string{
	"first_name":    "firstName",
	"firstname":     "firstName",
	"name":          "fullName",
	"full_name":     "fullName",
	"client_name":   "fullName",
	"last_name":     "lastName",
	"lastname":      "lastName",
	"surname":       "lastName",
	"email":         "email",
	"email_address": "email",
	"e_mail":        "email",
	"phone":         "phone",
	"phone_number":  "phone",
	"mobile":        "phone",
	"contact":       "phone",
	"status":        "status",
	"stage":         "status",
	"source":        "source",
	"lead_source":   "source",
	"channel":       "source",
	"campaign":      "campaignName",
	"campaign_name": "campaignName",
}

// Parse reads the upload, size-gated, and returns the normalized preview.
// Rows below the minimum viable record are dropped and counted, never
// imported silently.
func (s *Service) Parse(r io.Reader, filename string, size int64) (*Preview, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}
	if size > s.maxBytes {
		return nil, domain.NewValidationError(
			fmt.Sprintf("file is %d bytes, the limit is %d", size, s.maxBytes))
	}

	limited := &io.LimitedReader{R: r, N: s.maxBytes + 1}

	var rows [][]string
	switch format {
	case FormatCSV:
		rows, err = readCSV(limited)
	case FormatXLSX:
		rows, err = readXLSX(limited)
	}
	// the declared size can lie; a drained limit means the stream held
	// more than maxBytes and the parse saw a truncated file
	if limited.N == 0 {
		return nil, domain.NewValidationError(
			fmt.Sprintf("file is larger than the %d byte limit", s.maxBytes))
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NewValidationError("file contains no rows")
	}
	if len(rows)-1 > s.maxRows {
		return nil, domain.NewValidationError(
			fmt.Sprintf("file has %d data rows, the limit is %d", len(rows)-1, s.maxRows))
	}

	columns, err := mapHeader(rows[0])
	if err != nil {
		return nil, err
	}

	preview := &Preview{TotalRows: len(rows) - 1}
	for i, row := range rows[1:] {
		imported, ok := s.normalizeRow(columns, row, i+2)
		if !ok {
			preview.DroppedCount++
			continue
		}
		preview.ValidRows = append(preview.ValidRows, imported)
	}

	s.log.Info("import parsed", "file", filename,
		"total", preview.TotalRows, "valid", len(preview.ValidRows), "dropped", preview.DroppedCount)
	return preview, nil
}

// Submit sends the previewed rows to the record store in one batch. The
// store may accept some rows and reject others; per-row errors come back
// with their originating spreadsheet positions.
func (s *Service) Submit(ctx context.Context, rows []models.ImportRow) (*models.BulkCreateResult, error) {
	if len(rows) == 0 {
		return nil, domain.NewValidationError("no valid rows to import")
	}

	result, err := s.store.BulkCreate(ctx, rows)
	if err != nil {
		s.log.Error("import submit failed", "rows", len(rows), "error", err)
		return nil, err
	}

	// the store reports batch indexes; dropped rows shift those away from
	// the spreadsheet, so map each one back through the submitted rows
	for i := range result.Errors {
		if idx := result.Errors[i].Row; idx >= 0 && idx < len(rows) {
			result.Errors[i].Row = rows[idx].Row
		}
	}

	s.log.Info("import submitted", "rows", len(rows),
		"created", result.Created, "rejected", len(result.Errors))
	return result, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, domain.NewValidationError("file is not valid CSV: " + err.Error())
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.NewValidationError("file is not a valid workbook: " + err.Error())
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.NewValidationError("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, domain.NewValidationError("failed to read sheet: " + err.Error())
	}
	return rows, nil
}

// mapHeader resolves column positions through the alias table
func mapHeader(header []string) (map[string]int, error) {
	columns := make(map[string]int)
	for i, cell := range header {
		key := fieldnorm.Key(cell)
		if canonical, ok := headerAliases[key]; ok {
			if _, taken := columns[canonical]; !taken {
				columns[canonical] = i
			}
		}
	}

	_, hasFirst := columns["firstName"]
	_, hasFull := columns["fullName"]
	if !hasFirst && !hasFull {
		return nil, domain.NewValidationError("no name column found, expected a header like \"name\" or \"first_name\"")
	}
	return columns, nil
}

// normalizeRow folds one spreadsheet row onto the canonical shape. The
// minimum viable record is a non-empty first name plus at least one way
// to reach the person.
func (s *Service) normalizeRow(columns map[string]int, row []string, rowNum int) (models.ImportRow, bool) {
	cell := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	// a full-name column wins over separate first/last columns
	first, last := fieldnorm.SplitFullName(cell("fullName"))
	if first == "" {
		first = cell("firstName")
		last = cell("lastName")
	}

	out := models.ImportRow{
		FirstName:    first,
		LastName:     last,
		Email:        strings.ToLower(cell("email")),
		Phone:        fieldnorm.NormalizePhone(cell("phone"), s.phoneRegion),
		Status:       string(fieldnorm.CanonicalStatus(cell("status"))),
		Source:       fieldnorm.CanonicalSource(cell("source")),
		CampaignName: cell("campaignName"),
		Row:          rowNum,
	}

	if out.FirstName == "" {
		return models.ImportRow{}, false
	}
	if out.Email == "" && out.Phone == "" {
		return models.ImportRow{}, false
	}
	return out, true
}
