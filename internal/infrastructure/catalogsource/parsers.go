package catalogsource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/zetta/backend/internal/domain/catalogsync"
)

// Format names recorded in sync diagnostics
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXML  = "xml"
)

// Parsed is the outcome of decoding one source body
type Parsed struct {
	Format  string
	Records []catalogsync.ExternalRecord
	// Dropped counts entries that were not objects and could not become records
	Dropped int
}

// Parser decodes a fetched body into records
type Parser func(body []byte) (Parsed, error)

// ParserFor returns the parser used by a polled sync type
func ParserFor(t catalogsync.SyncType) (Parser, bool) {
	switch t {
	case catalogsync.SyncTypeAPI:
		return ParseJSON, true
	case catalogsync.SyncTypeCSV:
		return ParseCSV, true
	case catalogsync.SyncTypeXML:
		return ParseXML, true
	}
	return nil, false
}

// ParseJSON accepts a top-level array, or an object holding the array under
// "products" or "items". Numbers are kept as json.Number so prices keep
// their exact decimal form.
func ParseJSON(body []byte) (Parsed, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return Parsed{}, fmt.Errorf("decode json catalog: %w", err)
	}

	var list []any
	switch v := root.(type) {
	case []any:
		list = v
	case map[string]any:
		if arr, ok := v["products"].([]any); ok {
			list = arr
		} else if arr, ok := v["items"].([]any); ok {
			list = arr
		} else {
			return Parsed{}, fmt.Errorf("%w: object has no products or items array", catalogsync.ErrUnexpectedPayload)
		}
	default:
		return Parsed{}, fmt.Errorf("%w: expected array or object", catalogsync.ErrUnexpectedPayload)
	}

	out := Parsed{Format: FormatJSON, Records: make([]catalogsync.ExternalRecord, 0, len(list))}
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			out.Dropped++
			continue
		}
		out.Records = append(out.Records, catalogsync.ExternalRecord(obj))
	}
	return out, nil
}

// ParseCSV reads a header line followed by data rows. Cells are split on
// every comma; quoting and escaping are not supported. Short rows get empty
// strings for the missing columns and extra cells are ignored.
func ParseCSV(body []byte) (Parsed, error) {
	lines := strings.Split(string(body), "\n")
	out := Parsed{Format: FormatCSV, Records: []catalogsync.ExternalRecord{}}

	var header []string
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := splitCells(line)
		if header == nil {
			header = cells
			continue
		}
		rec := make(catalogsync.ExternalRecord, len(header))
		for i, key := range header {
			if key == "" {
				continue
			}
			if i < len(cells) {
				rec[key] = cells[i]
			} else {
				rec[key] = ""
			}
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

func splitCells(line string) []string {
	cells := strings.Split(line, ",")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

// ParseXML collects every <product> element. Each child element becomes a
// field; children with their own children become nested records and
// repeated tags become lists. Attributes on the product element fill fields
// that no child element provides.
func ParseXML(body []byte) (Parsed, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromBytes(body); err != nil {
		return Parsed{}, fmt.Errorf("decode xml catalog: %w", err)
	}

	products := doc.FindElements("//product")
	out := Parsed{Format: FormatXML, Records: make([]catalogsync.ExternalRecord, 0, len(products))}
	for _, el := range products {
		rec := catalogsync.ExternalRecord(elementFields(el))
		for _, attr := range el.Attr {
			if _, exists := rec[attr.Key]; !exists {
				rec[attr.Key] = attr.Value
			}
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

func elementFields(el *etree.Element) map[string]any {
	fields := make(map[string]any)
	for _, child := range el.ChildElements() {
		value := elementValue(child)
		if existing, ok := fields[child.Tag]; ok {
			if list, isList := existing.([]any); isList {
				fields[child.Tag] = append(list, value)
			} else {
				fields[child.Tag] = []any{existing, value}
			}
			continue
		}
		fields[child.Tag] = value
	}
	return fields
}

func elementValue(el *etree.Element) any {
	if len(el.ChildElements()) == 0 {
		return strings.TrimSpace(el.Text())
	}
	return elementFields(el)
}
