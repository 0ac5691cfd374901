package csvio

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	iox "github.com/santedata/tablemend/pkg/io/ioutils"
	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// DefaultNullValues are the markers treated as missing on read, on top
// of the empty cell. They match what the observatory CSV feeds actually
// contain.
var DefaultNullValues = []string{
	"NA", "N/A", "na", "n/a", "null", "NULL", "None", "NaN", "nan", "-",
}

type ReaderOptions struct {
	HasHeader  bool
	Delimiter  rune     // 0 = sniff, default ','
	SampleRows int      // for inference; default 100
	Strict     bool     // if true, error on short/long records
	NullValues []string // nil = DefaultNullValues
	Encoding   string   // "", "utf-8", "latin1", "windows-1252"
}

type Reader struct {
	r     *csv.Reader
	opt   ReaderOptions
	nulls map[string]struct{}
	buf   [][]string
	// repair/warning counters
	shortRecords int
	longRecords  int
}

// Open opens a CSV file (or stdin for "-") and returns a Reader plus
// the closer for the underlying stream.
func Open(path string, opt ReaderOptions) (*Reader, io.Closer, error) {
	rc, err := iox.OpenMaybeCompressed(path)
	if err != nil {
		return nil, nil, err
	}
	decoded, err := decodeReader(rc, opt.Encoding)
	if err != nil {
		_ = rc.Close()
		return nil, nil, err
	}
	rr := csv.NewReader(decoded)
	if opt.Delimiter == 0 {
		if d, lazy, err := sniffDelimiterAndQuotes(path); err == nil && d != 0 {
			rr.Comma = d
			rr.LazyQuotes = lazy
		}
	} else {
		rr.Comma = opt.Delimiter
	}
	rr.ReuseRecord = true
	rr.FieldsPerRecord = -1
	return newReader(rr, opt), rc, nil
}

// NewReaderFrom constructs a Reader from an arbitrary io.Reader (stdin,
// pipe, test buffer).
func NewReaderFrom(r io.Reader, opt ReaderOptions) (*Reader, error) {
	decoded, err := decodeReader(r, opt.Encoding)
	if err != nil {
		return nil, err
	}
	rr := csv.NewReader(decoded)
	if opt.Delimiter != 0 {
		rr.Comma = opt.Delimiter
	}
	rr.ReuseRecord = true
	rr.FieldsPerRecord = -1
	return newReader(rr, opt), nil
}

func newReader(rr *csv.Reader, opt ReaderOptions) *Reader {
	markers := opt.NullValues
	if markers == nil {
		markers = DefaultNullValues
	}
	nulls := make(map[string]struct{}, len(markers)+1)
	nulls[""] = struct{}{}
	for _, m := range markers {
		nulls[m] = struct{}{}
	}
	return &Reader{r: rr, opt: opt, nulls: nulls}
}

func decodeReader(r io.Reader, enc string) (io.Reader, error) {
	switch strings.ToLower(enc) {
	case "", "utf-8", "utf8":
		return r, nil
	case "latin1", "iso-8859-1", "iso8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", enc)
	}
}

func (r *Reader) isNull(v string) bool {
	_, ok := r.nulls[v]
	return ok
}

// InferSchema reads the header (if present) and samples rows to
// determine column kinds. Null markers do not vote.
func (r *Reader) InferSchema() (tm.Schema, []string, error) {
	var names []string
	rec, err := r.r.Read()
	if err != nil {
		return tm.Schema{}, nil, err
	}
	if r.opt.HasHeader {
		names = make([]string, len(rec))
		for i := range rec {
			names[i] = strings.ToValidUTF8(rec[i], "?")
		}
		// strip BOM on first header cell if present
		if len(names) > 0 && len(names[0]) > 0 {
			names[0] = strings.TrimPrefix(names[0], "\ufeff")
		}
		rec, err = r.r.Read()
		if err != nil {
			return tm.Schema{}, nil, err
		}
	} else {
		names = make([]string, len(rec))
		for i := range names {
			names[i] = "col_" + strconv.Itoa(i)
		}
	}

	sample := [][]string{append([]string(nil), rec...)}
	max := r.opt.SampleRows
	if max <= 0 {
		max = 100
	}
	for i := 1; i < max; i++ {
		rr, err := r.r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return tm.Schema{}, nil, err
		}
		sample = append(sample, append([]string(nil), rr...))
	}

	kinds := r.inferKinds(sample, len(names))
	schema := tm.Schema{Columns: make([]tm.ColumnSchema, len(names))}
	for i := range names {
		schema.Columns[i] = tm.ColumnSchema{Name: names[i], Type: kinds[i], Nullable: true}
	}
	// retain sampled rows for subsequent reads
	r.buf = append(r.buf, sample...)
	return schema, names, nil
}

// ReadAll loads the rest of the CSV into a Frame.
func (r *Reader) ReadAll(schema tm.Schema) (*tm.Frame, error) {
	f := tm.NewFrame(schema)
	for len(r.buf) > 0 {
		rec := r.buf[0]
		r.buf = r.buf[1:]
		if err := r.appendRecord(f, schema, rec); err != nil {
			return nil, err
		}
	}
	for {
		rec, err := r.r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := r.appendRecord(f, schema, rec); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// appendRecord appends one CSV record as a row, leaving null markers
// and unparseable cells as nulls.
func (r *Reader) appendRecord(f *tm.Frame, schema tm.Schema, rec []string) error {
	f.AppendNullRow()
	row := f.Rows() - 1
	if len(rec) > len(schema.Columns) {
		r.longRecords++
		if r.opt.Strict {
			return fmt.Errorf("csv long record: need %d fields, got %d", len(schema.Columns), len(rec))
		}
	}
	if len(rec) < len(schema.Columns) {
		r.shortRecords++
		if r.opt.Strict {
			return fmt.Errorf("csv short record: need %d fields, got %d", len(schema.Columns), len(rec))
		}
	}
	for i, cs := range schema.Columns {
		if i >= len(rec) {
			continue
		}
		val := strings.ToValidUTF8(strings.TrimSpace(rec[i]), "?")
		if r.isNull(val) {
			continue
		}
		switch cs.Type {
		case tm.KindFloat:
			if x, err := strconv.ParseFloat(val, 64); err == nil {
				_ = f.SetCell(row, cs.Name, x)
			}
		case tm.KindInt:
			if x, err := strconv.ParseInt(val, 10, 64); err == nil {
				_ = f.SetCell(row, cs.Name, x)
			}
		case tm.KindBool:
			if x, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
				_ = f.SetCell(row, cs.Name, x)
			}
		default:
			_ = f.SetCell(row, cs.Name, val)
		}
	}
	return nil
}

var numRe = regexp.MustCompile(`^[-+]?[0-9]*\.?[0-9]+([eE][-+]?[0-9]+)?$`)

func (r *Reader) inferKinds(rows [][]string, ncol int) []tm.Kind {
	kinds := make([]tm.Kind, ncol)
	for c := 0; c < ncol; c++ {
		num, integer, str := 0, 0, 0
		for _, row := range rows {
			if c >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[c])
			if r.isNull(v) {
				continue
			}
			if numRe.MatchString(v) {
				num++
				if !strings.ContainsAny(v, ".eE") {
					integer++
				}
				continue
			}
			lv := strings.ToLower(v)
			if lv == "true" || lv == "false" {
				continue
			}
			str++
		}
		// prefer float over int to be permissive
		if num > str {
			if integer == num {
				kinds[c] = tm.KindInt
			} else {
				kinds[c] = tm.KindFloat
			}
		} else {
			kinds[c] = tm.KindString
		}
	}
	return kinds
}

func sniffDelimiterAndQuotes(path string) (rune, bool, error) {
	rc, err := iox.OpenMaybeCompressed(path)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = rc.Close() }()
	br := bufio.NewReader(rc)
	sample, _ := br.Peek(4096)
	if len(sample) == 0 {
		return ',', false, nil
	}
	candidates := []byte{',', '\t', ';', '|'}
	best := byte(',')
	bestCount := -1
	for _, c := range candidates {
		cnt := 0
		for _, b := range sample {
			if b == c {
				cnt++
			}
		}
		if cnt > bestCount {
			bestCount = cnt
			best = c
		}
	}
	quoteCount := 0
	for _, b := range sample {
		if b == '"' {
			quoteCount++
		}
	}
	lazy := quoteCount%2 != 0 || quoteCount > 0
	return rune(best), lazy, nil
}

// Warnings returns a summary string of any repairs/mismatches
// encountered.
func (r *Reader) Warnings() string {
	if r.shortRecords == 0 && r.longRecords == 0 {
		return ""
	}
	var parts []string
	if r.shortRecords > 0 {
		parts = append(parts, fmt.Sprintf("short_records=%d", r.shortRecords))
	}
	if r.longRecords > 0 {
		parts = append(parts, fmt.Sprintf("long_records=%d", r.longRecords))
	}
	return strings.Join(parts, ", ")
}
