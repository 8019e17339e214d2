package survey

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	ColumnID        = "id"
	ColumnFIO       = "fio"
	ColumnBirthYear = "birth_year"
	ColumnFilledAt  = "дата и время заполнения"

	answerColumns = 45
	valueInput    = "USER_ENTERED"
)

// Header is the first row of the questionnaire sheet.
var Header = buildHeader()

func buildHeader() []string {
	h := []string{ColumnID, ColumnFIO, ColumnBirthYear, ColumnFilledAt}
	for i := 1; i <= answerColumns; i++ {
		h = append(h, "q"+strconv.Itoa(i))
	}
	return h
}

// SheetsRecorder writes one row per questionnaire run to the first sheet
// of a Google spreadsheet.
type SheetsRecorder struct {
	srv     *sheets.Service
	sheetID string
	now     func() time.Time
}

// CredentialOptions accepts either a path to a service account file or the
// JSON itself.
func CredentialOptions(creds string) []option.ClientOption {
	creds = strings.TrimSpace(creds)
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func NewSheetsRecorder(ctx context.Context, sheetID, creds string, extra ...option.ClientOption) (*SheetsRecorder, error) {
	opts := append(CredentialOptions(creds), option.WithScopes(sheets.SpreadsheetsScope))
	opts = append(opts, extra...)
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SheetsRecorder{srv: srv, sheetID: strings.TrimSpace(sheetID), now: time.Now}, nil
}

// StartRow appends an empty row stamped with the current time and returns
// its 1-based index and a new id (largest existing id + 1). The header is
// written first when the sheet is empty.
func (r *SheetsRecorder) StartRow(ctx context.Context) (int, int, error) {
	resp, err := r.srv.Spreadsheets.Values.Get(r.sheetID, "A:A").Context(ctx).Do()
	if err != nil {
		return 0, 0, fmt.Errorf("read id column: %w", err)
	}
	rows := resp.Values
	if len(rows) == 0 {
		if err := r.append(ctx, toCells(Header)); err != nil {
			return 0, 0, fmt.Errorf("write header: %w", err)
		}
		rows = [][]interface{}{toCells(Header[:1])}
	}

	id := NextID(rows)
	row := make([]interface{}, len(Header))
	for i := range row {
		row[i] = ""
	}
	row[0] = id
	row[3] = r.now().UTC().Format("2006-01-02 15:04:05") + " UTC"
	if err := r.append(ctx, row); err != nil {
		return 0, 0, fmt.Errorf("append row: %w", err)
	}
	return len(rows) + 1, id, nil
}

// UpdateCell writes value into column of row. Unknown columns are ignored.
func (r *SheetsRecorder) UpdateCell(ctx context.Context, row int, column, value string) error {
	idx := columnIndex(column)
	if idx < 0 {
		return nil
	}
	rng := ColumnName(idx+1) + strconv.Itoa(row)
	vr := &sheets.ValueRange{Values: [][]interface{}{{capRunes(value, MaxAnswerRunes)}}}
	if _, err := r.srv.Spreadsheets.Values.Update(r.sheetID, rng, vr).ValueInputOption(valueInput).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (r *SheetsRecorder) append(ctx context.Context, row []interface{}) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := r.srv.Spreadsheets.Values.Append(r.sheetID, "A1", vr).
		ValueInputOption(valueInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// NextID returns one more than the largest integer id in the first column,
// skipping the header row. Non-numeric cells are ignored.
func NextID(rows [][]interface{}) int {
	next := 1
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(fmt.Sprint(row[0])))
		if err != nil {
			continue
		}
		if n >= next {
			next = n + 1
		}
	}
	return next
}

// ColumnName converts a 1-based column number to A1 notation ("A", "Z", "AA").
func ColumnName(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

func columnIndex(column string) int {
	for i, h := range Header {
		if h == column {
			return i
		}
	}
	return -1
}

func toCells(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
