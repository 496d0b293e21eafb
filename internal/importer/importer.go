// Package importer turns heterogeneous keyword exports into canonical
// keyword records. Malformed rows are dropped, never fatal.
package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rankrent-cli/internal/model"
)

// Format identifies the shape of a raw keyword source.
type Format string

const (
	FormatAuto Format = ""
	FormatCSV  Format = "csv"
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// Columns is the positional column mapping for tabular exports. The default
// layout matches the common keyword-tool export: keyword, volume, ..., CPC
// at index 6 and keyword difficulty at index 8.
type Columns struct {
	Keyword int `yaml:"keyword" mapstructure:"keyword"`
	Volume  int `yaml:"volume" mapstructure:"volume"`
	CPC     int `yaml:"cpc" mapstructure:"cpc"`
	KD      int `yaml:"kd" mapstructure:"kd"`
}

// DefaultColumns returns the 0/1/6/8 mapping.
func DefaultColumns() Columns {
	return Columns{Keyword: 0, Volume: 1, CPC: 6, KD: 8}
}

// Options configures an import.
type Options struct {
	Format  Format
	Columns Columns
	// Source overrides the source tag of every imported keyword.
	Source model.Source
	// Sheet is the spreadsheet tab read by ImportXLSX.
	Sheet int
}

// minKeywordLen is the shortest keyword text (in runes) that is kept.
const minKeywordLen = 2

// semicolonThreshold is the minimum semicolon count in the first line before
// semicolon is considered as the delimiter.
const semicolonThreshold = 2

const bom = "\uFEFF"

// Import parses raw keyword data. It never fails: unreadable rows are
// dropped and an empty input yields an empty slice.
func Import(data []byte, opts Options) []model.Keyword {
	text := strings.TrimPrefix(string(data), bom)
	if strings.TrimSpace(text) == "" {
		return []model.Keyword{}
	}

	format := opts.Format
	if format == FormatAuto {
		format = DetectFormat(text)
	}

	var out []model.Keyword
	switch format {
	case FormatJSON:
		out = importJSON(text, opts)
	case FormatText:
		out = importText(text, opts)
	default:
		out = importCSV(text, opts)
	}
	if out == nil {
		out = []model.Keyword{}
	}
	return out
}

// ImportFile reads a keyword file, picking the format from its extension
// when opts.Format is unset. Only I/O failures are returned as errors.
func ImportFile(path string, opts Options) ([]model.Keyword, error) {
	if opts.Format == FormatAuto {
		opts.Format = formatFromExt(path)
	}
	if opts.Format == FormatXLSX {
		return ImportXLSX(path, opts)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: read %s", path)
	}
	kws := Import(data, opts)
	zap.L().Info("importer: keywords imported",
		zap.String("path", path),
		zap.String("format", string(opts.Format)),
		zap.Int("count", len(kws)),
	)
	return kws, nil
}

// ImportReader is Import for an io.Reader.
func ImportReader(r io.Reader, opts Options) ([]model.Keyword, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "importer: read input")
	}
	return Import(data, opts), nil
}

func formatFromExt(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		return FormatCSV
	case ".txt":
		return FormatText
	case ".json":
		return FormatJSON
	case ".xlsx":
		return FormatXLSX
	}
	return FormatAuto
}

// DetectFormat guesses the format of raw text: a leading bracket or brace is
// JSON, a first line containing a comma or semicolon is CSV, anything else
// is a plain newline list.
func DetectFormat(text string) Format {
	trimmed := strings.TrimSpace(strings.TrimPrefix(text, bom))
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		return FormatJSON
	}
	first := firstLine(trimmed)
	if strings.ContainsAny(first, ",;") {
		return FormatCSV
	}
	return FormatText
}

// DetectDelimiter picks ';' only when semicolons strictly outnumber commas
// in the first line and exceed the threshold; otherwise ','.
func DetectDelimiter(text string) rune {
	first := firstLine(strings.TrimPrefix(text, bom))
	semis := strings.Count(first, ";")
	commas := strings.Count(first, ",")
	if semis > commas && semis > semicolonThreshold {
		return ';'
	}
	return ','
}

// IsHeaderCell reports whether a first-row cell looks like a column title.
func IsHeaderCell(cell string) bool {
	lower := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, bom)))
	return strings.Contains(lower, "keyword") ||
		strings.Contains(lower, "word") ||
		strings.Contains(lower, "palabra")
}

func importCSV(text string, opts Options) []model.Keyword {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = DetectDelimiter(text)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	src := sourceOr(opts.Source, model.SourceManualCSV)
	cols := opts.Columns
	if cols == (Columns{}) {
		cols = DefaultColumns()
	}

	var (
		out     []model.Keyword
		row     int
		dropped int
	)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Per-record parse errors leave the reader usable.
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				dropped++
				row++
				continue
			}
			zap.L().Warn("importer: csv read aborted", zap.Error(err))
			break
		}
		row++
		if row == 1 && len(rec) > 0 && IsHeaderCell(rec[0]) {
			continue
		}
		kw, ok := RowToKeyword(rec, cols, src)
		if !ok {
			dropped++
			continue
		}
		out = append(out, kw)
	}

	if dropped > 0 {
		zap.L().Debug("importer: dropped csv rows", zap.Int("dropped", dropped))
	}
	return out
}

// RowToKeyword maps one tabular row through the positional column mapping.
func RowToKeyword(rec []string, cols Columns, src model.Source) (model.Keyword, bool) {
	text := cleanKeywordText(cell(rec, cols.Keyword))
	if utf8.RuneCountInString(text) < minKeywordLen {
		return model.Keyword{}, false
	}
	kw, err := model.NewKeyword(text, src)
	if err != nil {
		return model.Keyword{}, false
	}
	kw.Volume = ParseInt(cell(rec, cols.Volume))
	kw.CPC = ParseFloat(cell(rec, cols.CPC))
	kw.Competition = ParseInt(cell(rec, cols.KD))
	return kw.Clamp(), true
}

func importText(text string, opts Options) []model.Keyword {
	src := sourceOr(opts.Source, model.SourceManual)
	var out []model.Keyword
	first := true
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		// Single-column exports keep their title row.
		if first {
			first = false
			if IsHeaderCell(line) {
				continue
			}
		}
		t := cleanKeywordText(line)
		if utf8.RuneCountInString(t) < minKeywordLen {
			continue
		}
		kw, err := model.NewKeyword(t, src)
		if err != nil {
			continue
		}
		out = append(out, kw)
	}
	return out
}

// jsonKeyword accepts the field spellings seen in exports and prior plans.
type jsonKeyword struct {
	Keyword     string          `json:"keyword"`
	Text        string          `json:"text"`
	Volume      json.RawMessage `json:"volume"`
	SearchVol   json.RawMessage `json:"search_volume"`
	CPC         json.RawMessage `json:"cpc"`
	Competition json.RawMessage `json:"competition"`
	KD          json.RawMessage `json:"kd"`
	Source      string          `json:"source"`
}

func importJSON(text string, opts Options) []model.Keyword {
	trimmed := strings.TrimSpace(text)
	var items []json.RawMessage

	if strings.HasPrefix(trimmed, "{") {
		items = itemsFromPlan([]byte(trimmed))
	} else if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
		zap.L().Warn("importer: json is not an array", zap.Error(err))
		return nil
	}

	src := sourceOr(opts.Source, model.SourceManual)
	var out []model.Keyword
	for _, raw := range items {
		if kw, ok := jsonItemToKeyword(raw, src, opts.Source != ""); ok {
			out = append(out, kw)
		}
	}
	return out
}

func jsonItemToKeyword(raw json.RawMessage, src model.Source, forceSource bool) (model.Keyword, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return model.Keyword{}, false
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return model.Keyword{}, false
		}
		s = cleanKeywordText(s)
		if utf8.RuneCountInString(s) < minKeywordLen {
			return model.Keyword{}, false
		}
		kw, err := model.NewKeyword(s, src)
		return kw, err == nil
	}

	var item jsonKeyword
	if err := json.Unmarshal(raw, &item); err != nil {
		return model.Keyword{}, false
	}
	text := item.Keyword
	if text == "" {
		text = item.Text
	}
	text = cleanKeywordText(text)
	if utf8.RuneCountInString(text) < minKeywordLen {
		return model.Keyword{}, false
	}

	itemSrc := src
	if !forceSource && model.Source(item.Source).Valid() {
		itemSrc = model.Source(item.Source)
	}
	kw, err := model.NewKeyword(text, itemSrc)
	if err != nil {
		return model.Keyword{}, false
	}
	kw.Volume = rawInt(item.Volume)
	if kw.Volume == 0 {
		kw.Volume = rawInt(item.SearchVol)
	}
	kw.CPC = rawFloat(item.CPC)
	kw.Competition = rawInt(item.Competition)
	if kw.Competition == 0 {
		kw.Competition = rawInt(item.KD)
	}
	return kw.Clamp(), true
}

// itemsFromPlan pulls keywords out of a previously saved plan: the raw top
// keywords when present, otherwise every cluster's keywords.
func itemsFromPlan(data []byte) []json.RawMessage {
	var plan struct {
		RawData struct {
			TopKeywords []json.RawMessage `json:"top_keywords"`
		} `json:"raw_data"`
		Services []struct {
			Keywords []json.RawMessage `json:"keywords"`
		} `json:"services"`
		Blog []struct {
			Keywords []json.RawMessage `json:"keywords"`
		} `json:"blog"`
		Keywords []json.RawMessage `json:"keywords"`
	}
	if err := json.Unmarshal(data, &plan); err != nil {
		zap.L().Warn("importer: unreadable json plan", zap.Error(err))
		return nil
	}
	if len(plan.RawData.TopKeywords) > 0 {
		return plan.RawData.TopKeywords
	}
	items := append([]json.RawMessage{}, plan.Keywords...)
	for _, c := range plan.Services {
		items = append(items, c.Keywords...)
	}
	for _, c := range plan.Blog {
		items = append(items, c.Keywords...)
	}
	return items
}

// ParseInt keeps only the digits of s; anything unparsable is 0.
func ParseInt(s string) int {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}

// ParseFloat normalizes a comma decimal separator to a dot and drops every
// other non-numeric character; anything unparsable is 0.
func ParseFloat(s string) float64 {
	s = strings.ReplaceAll(s, ",", ".")
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return f
}

func rawInt(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseInt(s)
	}
	return 0
}

func rawFloat(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseFloat(s)
	}
	return 0
}

func cleanKeywordText(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(s, bom))
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return strings.TrimRight(text[:i], "\r")
	}
	return text
}

func sourceOr(s, fallback model.Source) model.Source {
	if s.Valid() {
		return s
	}
	return fallback
}
