// Package catalog loads per-template signature field lists and flattens them
// into the session's field walk order.
package catalog

import (
	"context"
	"fmt"
	"log"
	"sort"

	"signline/internal/domain"
)

// Source fetches the field list for a document template.
type Source interface {
	Fields(ctx context.Context, templateID string) ([]domain.SignatureField, error)
}

// Result is the output of a catalog load: fields grouped by document, the
// flat field-state list in walk order, and the ids of documents whose fetch
// or validation failed. Degraded documents contribute zero fields.
type Result struct {
	Fields   map[string][]domain.SignatureField
	States   []domain.FieldState
	Degraded []string
}

// CompositeID builds the globally unique field-state id.
func CompositeID(documentID, fieldID string) string {
	return documentID + "_" + fieldID
}

// Load fetches and validates each document's fields. Documents without a
// template reference contribute zero fields. A fetch or validation failure
// degrades that document only; the remaining documents still load. Within a
// document fields are ordered by ascending page, stable for equal pages, and
// the flat state order follows the given document order.
func Load(ctx context.Context, src Source, docs []domain.Document) Result {
	res := Result{Fields: make(map[string][]domain.SignatureField, len(docs))}
	for _, doc := range docs {
		if doc.TemplateID == nil || *doc.TemplateID == "" {
			continue
		}
		fields, err := src.Fields(ctx, *doc.TemplateID)
		if err != nil {
			log.Printf("catalog: load fields for document %s (template %s): %v", doc.ID, *doc.TemplateID, err)
			res.Degraded = append(res.Degraded, doc.ID)
			continue
		}
		normalized, err := normalize(doc.ID, fields)
		if err != nil {
			log.Printf("catalog: document %s rejected: %v", doc.ID, err)
			res.Degraded = append(res.Degraded, doc.ID)
			continue
		}
		res.Fields[doc.ID] = normalized
	}
	for _, doc := range docs {
		for _, f := range res.Fields[doc.ID] {
			res.States = append(res.States, domain.FieldState{
				ID:         CompositeID(doc.ID, f.ID),
				DocumentID: doc.ID,
				FieldID:    f.ID,
				Type:       f.Type,
				Page:       f.Page,
				Label:      f.Label,
				Required:   f.Required,
			})
		}
	}
	return res
}

// normalize validates the closed field-type set and coordinate bounds, fills
// default labels, and sorts by page keeping catalog order for equal pages.
func normalize(documentID string, fields []domain.SignatureField) ([]domain.SignatureField, error) {
	out := make([]domain.SignatureField, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		if f.ID == "" {
			return nil, fmt.Errorf("field %d missing id", i)
		}
		if seen[f.ID] {
			return nil, fmt.Errorf("duplicate field id %s", f.ID)
		}
		seen[f.ID] = true
		if !domain.ValidFieldType(f.Type) {
			return nil, fmt.Errorf("field %s has unknown type %q", f.ID, f.Type)
		}
		if f.Page < 1 {
			return nil, fmt.Errorf("field %s has invalid page %d", f.ID, f.Page)
		}
		for _, v := range []float64{f.XPercent, f.YPercent, f.WidthPercent, f.HeightPercent} {
			if v < 0 || v > 100 {
				return nil, fmt.Errorf("field %s coordinate out of range", f.ID)
			}
		}
		f.DocumentID = documentID
		if f.Label == "" {
			f.Label = fmt.Sprintf("%s (Page %d)", f.Type, f.Page)
		}
		f.Position = i
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	for i := range out {
		out[i].Position = i
	}
	return out, nil
}
