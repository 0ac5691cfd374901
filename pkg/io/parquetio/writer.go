package parquetio

import (
	"encoding/json"
	"fmt"

	local "github.com/xitongsys/parquet-go-source/local"
	pw "github.com/xitongsys/parquet-go/writer"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

func parquetSchemaJSON(s tm.Schema) string {
	type field struct {
		Tag string `json:"Tag"`
	}
	type schema struct {
		Tag    string  `json:"Tag"`
		Fields []field `json:"Fields"`
	}
	sc := schema{Tag: "name=schema, repetitiontype=REQUIRED"}
	for _, cs := range s.Columns {
		tag := "name=" + cs.Name + ", repetitiontype=OPTIONAL, type="
		switch cs.Type {
		case tm.KindFloat:
			tag += "DOUBLE"
		case tm.KindInt:
			tag += "INT64"
		case tm.KindBool:
			tag += "BOOLEAN"
		default:
			tag += "BYTE_ARRAY, convertedtype=UTF8"
		}
		sc.Fields = append(sc.Fields, field{Tag: tag})
	}
	b, _ := json.Marshal(sc)
	return string(b)
}

// WriteAll writes a Frame to a Parquet file. Rows go through the JSON
// writer, which takes one JSON document per row.
func WriteAll(path string, f *tm.Frame) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	writer, err := pw.NewJSONWriter(parquetSchemaJSON(f.Schema()), fw, 4)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("parquet writer init: %w", err)
	}
	for r := 0; r < f.Rows(); r++ {
		b, err := json.Marshal(rowMap(f, r))
		if err != nil {
			_ = writer.WriteStop()
			_ = fw.Close()
			return err
		}
		if err := writer.Write(string(b)); err != nil {
			_ = writer.WriteStop()
			_ = fw.Close()
			return fmt.Errorf("parquet write row: %w", err)
		}
	}
	if err := writer.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func rowMap(f *tm.Frame, r int) map[string]any {
	m := make(map[string]any, f.Cols())
	for _, cs := range f.Schema().Columns {
		col, ok := f.ColumnByName(cs.Name)
		if !ok {
			continue
		}
		switch c := col.(type) {
		case *tm.FloatColumn:
			if v, ok := c.Get(r); ok {
				m[cs.Name] = v
			}
		case *tm.IntColumn:
			if v, ok := c.Get(r); ok {
				m[cs.Name] = v
			}
		case *tm.BoolColumn:
			if v, ok := c.Get(r); ok {
				m[cs.Name] = v
			}
		case *tm.StringColumn:
			if v, ok := c.Get(r); ok {
				m[cs.Name] = v
			}
		case *tm.TimeColumn:
			if v, ok := c.Get(r); ok {
				m[cs.Name] = v.Format("2006-01-02T15:04:05Z07:00")
			}
		}
	}
	return m
}
