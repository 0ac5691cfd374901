package jsonlio

import (
	"bufio"
	"encoding/json"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	iox "github.com/santedata/tablemend/pkg/io/ioutils"
	tm "github.com/santedata/tablemend/pkg/tablemend"
)

type ReaderOptions struct {
	SampleRows int      // for inference; default 100
	NullValues []string // string cells equal to a marker read as null
}

type Reader struct {
	dec   *json.Decoder
	opt   ReaderOptions
	nulls map[string]struct{}
	buf   []map[string]any
}

// Open opens a JSON Lines file (gzip by extension or magic) and returns
// a Reader plus the closer for the underlying stream.
func Open(path string, opt ReaderOptions) (*Reader, io.Closer, error) {
	rc, err := iox.OpenMaybeCompressed(path)
	if err != nil {
		return nil, nil, err
	}
	return NewReaderFrom(bufio.NewReader(rc), opt), rc, nil
}

func NewReaderFrom(r io.Reader, opt ReaderOptions) *Reader {
	nulls := make(map[string]struct{}, len(opt.NullValues)+1)
	nulls[""] = struct{}{}
	for _, m := range opt.NullValues {
		nulls[m] = struct{}{}
	}
	return &Reader{dec: json.NewDecoder(r), opt: opt, nulls: nulls}
}

func (r *Reader) isNull(v string) bool {
	_, ok := r.nulls[v]
	return ok
}

// InferSchema samples objects and derives a schema over the union of
// keys, in sorted order so repeated runs agree on column layout.
func (r *Reader) InferSchema() (tm.Schema, error) {
	max := r.opt.SampleRows
	if max <= 0 {
		max = 100
	}
	var sample []map[string]any
	keysSet := map[string]struct{}{}
	for len(sample) < max {
		var m map[string]any
		if err := r.dec.Decode(&m); err != nil {
			if err == io.EOF {
				break
			}
			return tm.Schema{}, err
		}
		sample = append(sample, m)
		for k := range m {
			keysSet[k] = struct{}{}
		}
	}
	r.buf = append(r.buf, sample...)
	keys := make([]string, 0, len(keysSet))
	for k := range keysSet {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kinds := r.inferKinds(sample, keys)
	schema := tm.Schema{Columns: make([]tm.ColumnSchema, len(keys))}
	for i, k := range keys {
		schema.Columns[i] = tm.ColumnSchema{Name: k, Type: kinds[i], Nullable: true}
	}
	return schema, nil
}

// ReadAll loads the rest of the stream into a Frame.
func (r *Reader) ReadAll(schema tm.Schema) (*tm.Frame, error) {
	f := tm.NewFrame(schema)
	for len(r.buf) > 0 {
		m := r.buf[0]
		r.buf = r.buf[1:]
		r.appendObject(f, m)
	}
	for {
		var m map[string]any
		if err := r.dec.Decode(&m); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		r.appendObject(f, m)
	}
	return f, nil
}

// appendObject appends one decoded object as a row; absent keys, JSON
// nulls and null markers stay null.
func (r *Reader) appendObject(f *tm.Frame, m map[string]any) {
	f.AppendNullRow()
	row := f.Rows() - 1
	for _, cs := range f.Schema().Columns {
		v, ok := m[cs.Name]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok && r.isNull(strings.TrimSpace(s)) {
			continue
		}
		switch cs.Type {
		case tm.KindFloat:
			switch t := v.(type) {
			case float64:
				_ = f.SetCell(row, cs.Name, t)
			case string:
				if x, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
					_ = f.SetCell(row, cs.Name, x)
				}
			}
		case tm.KindInt:
			switch t := v.(type) {
			case float64:
				_ = f.SetCell(row, cs.Name, int64(t))
			case string:
				if x, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
					_ = f.SetCell(row, cs.Name, x)
				}
			}
		case tm.KindBool:
			switch t := v.(type) {
			case bool:
				_ = f.SetCell(row, cs.Name, t)
			case string:
				if x, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(t))); err == nil {
					_ = f.SetCell(row, cs.Name, x)
				}
			}
		default:
			switch t := v.(type) {
			case string:
				_ = f.SetCell(row, cs.Name, t)
			default:
				// nested values keep their JSON encoding
				b, _ := json.Marshal(t)
				_ = f.SetCell(row, cs.Name, string(b))
			}
		}
	}
}

var numRe = regexp.MustCompile(`^[-+]?[0-9]*\.?[0-9]+([eE][-+]?[0-9]+)?$`)

func (r *Reader) inferKinds(sample []map[string]any, keys []string) []tm.Kind {
	kinds := make([]tm.Kind, len(keys))
	for i, k := range keys {
		nNum, nInt, nBool, nStr := 0, 0, 0, 0
		for _, m := range sample {
			v, ok := m[k]
			if !ok || v == nil {
				continue
			}
			switch t := v.(type) {
			case float64:
				nNum++
				if float64(int64(t)) == t {
					nInt++
				}
			case bool:
				nBool++
			case string:
				s := strings.TrimSpace(t)
				if r.isNull(s) {
					continue
				}
				if numRe.MatchString(s) {
					nNum++
					if !strings.ContainsAny(s, ".eE") {
						nInt++
					}
				} else {
					nStr++
				}
			default:
				nStr++
			}
		}
		switch {
		case nBool > nNum && nBool >= nStr:
			kinds[i] = tm.KindBool
		case nNum > nStr:
			if nInt == nNum {
				kinds[i] = tm.KindInt
			} else {
				kinds[i] = tm.KindFloat
			}
		default:
			kinds[i] = tm.KindString
		}
	}
	return kinds
}
