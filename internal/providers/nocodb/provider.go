// Package nocodb serves the tables of a NocoDB instance: one WPNocoTable per
// table at the root, records beneath as WPNocoRecord. Metadata and record
// fetches are cached for the lifetime of the process.
package nocodb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/pipeline"
)

const (
	tableIcon  = "./resources/Table.png"
	recordIcon = "./resources/Record.png"
	groupIcon  = "./resources/Group.png"
)

// maxDescription truncates verbose image descriptions in listings.
const maxDescription = 200

// groupFields are the record properties GroupBy may aggregate on.
var groupFields = map[string]bool{
	"status":       true,
	"branch":       true,
	"credit":       true,
	"instrument":   true,
	"facility":     true,
	"image_title":  true,
	"date_created": true,
	"url":          true,
}

type tableRef struct {
	baseID string
	id     string
	title  string
}

// Provider implements provider.Backend over the NocoDB REST API.
type Provider struct {
	api *apiClient

	mu      sync.Mutex
	bases   []map[string]any
	tables  map[string][]map[string]any // base id -> tables
	records map[string][]map[string]any // base:table -> records
}

// New creates the provider from its configuration.
func New(cfg *Config) *Provider {
	return &Provider{
		api:     newAPIClient(cfg.BaseURL, cfg.APIToken),
		tables:  make(map[string][]map[string]any),
		records: make(map[string][]map[string]any),
	}
}

// RootObjects lists every table across every base.
func (p *Provider) RootObjects(ctx context.Context) ([]*model.Object, error) {
	objects := []*model.Object{}
	for _, base := range p.cachedBases(ctx) {
		baseID := stringField(base, "id", "project_id")
		if baseID == "" {
			continue
		}
		for _, table := range p.cachedTables(ctx, baseID) {
			tableID := stringField(table, "id")
			if tableID == "" {
				continue
			}
			title := stringField(table, "title", "table_name")
			if title == "" {
				title = "Unnamed Table"
			}
			tableType := stringField(table, "type")
			if tableType == "" {
				tableType = "table"
			}

			columns := 0
			if schema := p.api.tableSchema(ctx, tableID); schema != nil {
				if cols, ok := schema["columns"].([]any); ok {
					columns = len(cols)
				}
			}
			recs := p.cachedRecords(ctx, baseID, tableID, title)

			o := model.New(model.ClassNocoTable, "/"+tableID, title, tableIcon, len(recs))
			o.SetExtra("base_id", baseID)
			o.SetExtra("table_type", tableType)
			o.SetExtra("column_count", columns)
			o.SetExtra("record_count", len(recs))
			objects = append(objects, o)
		}
	}
	return objects, nil
}

// ObjectsForPath lists a table's records, running any command tokens through
// the pipeline engine.
func (p *Provider) ObjectsForPath(ctx context.Context, id string) ([]*model.Object, error) {
	if trimmed := strings.TrimSpace(id); trimmed == "/" || trimmed == "" {
		return p.RootObjects(ctx)
	}
	return pipeline.Evaluate(id, func(base string) ([]*model.Object, error) {
		return p.listRecords(ctx, base), nil
	}, pipeline.Options{
		AllowedGroupFields: groupFields,
		GroupIcon:          groupIcon,
	})
}

// listRecords resolves the table named by the first path segment and
// converts its records.
func (p *Provider) listRecords(ctx context.Context, base string) []*model.Object {
	tableID := strings.Trim(base, "/")
	if i := strings.Index(tableID, "/"); i >= 0 {
		tableID = tableID[:i]
	}
	ref, ok := p.findTable(ctx, tableID)
	if !ok {
		return []*model.Object{}
	}

	records := p.cachedRecords(ctx, ref.baseID, ref.id, ref.title)
	objects := make([]*model.Object, 0, len(records))
	for idx, record := range records {
		objects = append(objects, recordObject(tableID, idx, record))
	}
	return objects
}

func (p *Provider) findTable(ctx context.Context, tableID string) (tableRef, bool) {
	for _, base := range p.cachedBases(ctx) {
		baseID := stringField(base, "id", "project_id")
		if baseID == "" {
			continue
		}
		for _, table := range p.cachedTables(ctx, baseID) {
			if stringField(table, "id") != tableID {
				continue
			}
			title := stringField(table, "title", "table_name")
			if title == "" {
				title = "Unnamed"
			}
			return tableRef{baseID: baseID, id: tableID, title: title}, true
		}
	}
	return tableRef{}, false
}

func (p *Provider) cachedBases(ctx context.Context) []map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bases == nil {
		p.bases = p.api.bases(ctx)
	}
	return p.bases
}

func (p *Provider) cachedTables(ctx context.Context, baseID string) []map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.tables[baseID]; !ok {
		p.tables[baseID] = p.api.tables(ctx, baseID)
	}
	return p.tables[baseID]
}

func (p *Provider) cachedRecords(ctx context.Context, baseID, tableID, tableTitle string) []map[string]any {
	key := baseID + ":" + tableID
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.records[key]; !ok {
		p.records[key] = p.api.records(ctx, baseID, tableID, tableTitle)
	}
	return p.records[key]
}

// recordObject maps a raw record to its wire form, pulling the EXIF-flavored
// columns the astronomy image tables carry into flat extras.
func recordObject(tableID string, idx int, record map[string]any) *model.Object {
	url := stringField(record, "URL")
	imageTitle := stringField(record, "EXIF.XMP:Title")

	title := imageTitle
	if title == "" && url != "" {
		parts := strings.Split(url, "/")
		title = parts[len(parts)-1]
	}
	if title == "" {
		title = fmt.Sprintf("Record %d", idx+1)
	}

	o := model.New(model.ClassNocoRecord, fmt.Sprintf("/%s/%d", tableID, idx), title, recordIcon, 0)
	setIfSet(o, "url", url)
	setIfSet(o, "status", stringField(record, "status"))
	setIfSet(o, "branch", stringField(record, "branch"))
	setIfSet(o, "image_title", imageTitle)

	if desc := stringField(record, "EXIF.EXIF:ImageDescription"); desc != "" {
		if len(desc) > maxDescription {
			desc = desc[:maxDescription] + "..."
		}
		o.SetExtra("image_description", desc)
	}
	setIfSet(o, "credit", stringField(record, "EXIF.XMP:Credit", "EXIF.IPTC:Credit"))
	setIfSet(o, "date_created", stringField(record, "EXIF.XMP:DateCreated", "EXIF.IPTC:DateCreated"))
	setIfSet(o, "instrument", firstOfJSONList(record["EXIF.XMP:Instrument"]))
	setIfSet(o, "facility", firstOfJSONList(record["EXIF.XMP:Facility"]))

	setIntIfSet(o, "image_width", record["EXIF.File:ImageWidth"])
	setIntIfSet(o, "image_height", record["EXIF.File:ImageHeight"])
	setIntIfSet(o, "file_size", record["EXIF.File:FileSize"])

	if url != "" {
		o.SetExtra("contextmenu", []any{map[string]any{
			"title":  "Open URL",
			"action": "open",
			"url":    url,
		}})
	}
	return o
}

// firstOfJSONList handles columns stored as JSON arrays, either already
// decoded or as an embedded JSON string.
func firstOfJSONList(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []any:
		if len(val) == 0 {
			return ""
		}
		if s, ok := val[0].(string); ok {
			return s
		}
		return fmt.Sprintf("%v", val[0])
	case string:
		if val == "" {
			return ""
		}
		var list []any
		if err := json.Unmarshal([]byte(val), &list); err == nil && len(list) > 0 {
			if s, ok := list[0].(string); ok {
				return s
			}
		}
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func setIfSet(o *model.Object, key, value string) {
	if value != "" {
		o.SetExtra(key, value)
	}
}

func setIntIfSet(o *model.Object, key string, v any) {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			o.SetExtra(key, int(n))
		}
	case float64:
		o.SetExtra(key, int(val))
	case int:
		o.SetExtra(key, val)
	}
}
