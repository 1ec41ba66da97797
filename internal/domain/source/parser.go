package source

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/clbanning/mxj/v2"

	"github.com/kailas-cloud/invoicedex/internal/domain"
)

// Format identifies the encoding of a raw payload.
type Format string

// Supported payload formats.
const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatCSV  Format = "csv"
)

// Document is a parsed payload together with its verbatim source text.
type Document struct {
	Tree   Value
	Format Format
	Raw    string
}

// Parse detects the payload format (leading '<' means XML, anything else JSON)
// and parses it into a tree.
func Parse(payload []byte) (Document, error) {
	if bytes.HasPrefix(bytes.TrimSpace(payload), []byte("<")) {
		return parseAs(FormatXML, payload)
	}
	return parseAs(FormatJSON, payload)
}

// ParseFile selects the format by filename extension and falls back to Parse.
func ParseFile(name string, payload []byte) (Document, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xml":
		return parseAs(FormatXML, payload)
	case ".json":
		return parseAs(FormatJSON, payload)
	default:
		return Parse(payload)
	}
}

func parseAs(format Format, payload []byte) (Document, error) {
	var (
		tree Value
		err  error
	)
	switch format {
	case FormatXML:
		tree, err = ParseXML(payload)
	default:
		tree, err = ParseJSON(payload)
	}
	if err != nil {
		return Document{}, err
	}
	return Document{Tree: tree, Format: format, Raw: string(payload)}, nil
}

// ParseJSON decodes a JSON object, keeping numbers as literals.
func ParseJSON(payload []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Missing, fmt.Errorf("%w: json: %w", domain.ErrMalformedSourceDocument, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Missing, fmt.Errorf("%w: json: trailing data after document", domain.ErrMalformedSourceDocument)
	}
	if _, ok := raw.(map[string]any); !ok {
		return Missing, fmt.Errorf("%w: json: top-level value must be an object", domain.ErrMalformedSourceDocument)
	}

	v, err := FromAny(raw)
	if err != nil {
		return Missing, fmt.Errorf("%w: %w", domain.ErrMalformedSourceDocument, err)
	}
	return v, nil
}

// ParseXML converts an XML document into a tree. Attributes are keyed with a
// leading '-', element text next to attributes is keyed "#text", and repeated
// sibling elements become arrays.
func ParseXML(payload []byte) (Value, error) {
	m, err := mxj.NewMapXml(payload)
	if err != nil {
		return Missing, fmt.Errorf("%w: xml: %w", domain.ErrMalformedSourceDocument, err)
	}
	v, err := FromAny(map[string]any(m))
	if err != nil {
		return Missing, fmt.Errorf("%w: %w", domain.ErrMalformedSourceDocument, err)
	}
	return v, nil
}

// Row is one CSV record keyed by header column.
type Row struct {
	Line   int
	Fields map[string]string
}

// Tree returns the row as an object of string values.
func (r Row) Tree() Value {
	fields := make(map[string]Value, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = String(v)
	}
	return Object(fields)
}

// Raw returns the row serialized as a JSON object, used as the stored source payload.
func (r Row) Raw() string {
	data, err := json.Marshal(r.Fields)
	if err != nil {
		return ""
	}
	return string(data)
}

// ReadCSV reads a header line followed by one record per invoice.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: csv header: %w", domain.ErrMalformedSourceDocument, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			return nil, fmt.Errorf("%w: csv line %d: %w", domain.ErrMalformedSourceDocument, line, err)
		}
		// Line is where the record starts; quoted fields may span several lines.
		line, _ := reader.FieldPos(0)
		fields := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				fields[col] = record[i]
			}
		}
		rows = append(rows, Row{Line: line, Fields: fields})
	}
	return rows, nil
}
