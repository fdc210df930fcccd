package analysis

import (
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/shorui/internal/models"
	"github.com/hyperjump/shorui/internal/registry"
)

// Normalize converts a raw backend payload into an AnalyzeResult.
// modelID is the model the document was submitted with; raw.ModelID wins when set.
func Normalize(raw *RawResult, modelID string, reg *registry.Registry, processedAt time.Time, elapsed time.Duration) *models.AnalyzeResult {
	if raw.ModelID != "" {
		modelID = raw.ModelID
	}
	res := &models.AnalyzeResult{
		Pages:         normalizePages(raw),
		Fields:        []models.Field{},
		ExtractedData: map[string]models.ExtractedValue{},
		Metadata: models.AnalysisMetadata{
			ModelID:          modelID,
			APIVersion:       raw.APIVersion,
			ProcessedAt:      processedAt.UTC(),
			ProcessingTimeMs: elapsed.Milliseconds(),
		},
	}

	var doc *RawDocument
	if len(raw.Documents) > 0 {
		doc = &raw.Documents[0]
	}

	var fieldConfs []float64
	if doc != nil {
		names := make([]string, 0, len(doc.Fields))
		for name := range doc.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			f := doc.Fields[name]
			conf := 0.0
			if f.Confidence != nil {
				conf = *f.Confidence
				fieldConfs = append(fieldConfs, conf)
			}
			value := fieldValue(f)
			res.Fields = append(res.Fields, models.Field{
				Name:            name,
				Value:           value,
				Confidence:      conf,
				BoundingPolygon: firstPolygon(f.BoundingRegions),
			})
			res.ExtractedData[name] = models.ExtractedValue{Value: value, Confidence: conf, Type: f.Type}
		}
	}

	var lineConfs []float64
	for _, p := range res.Pages {
		for _, l := range p.Lines {
			if l.Confidence != nil {
				lineConfs = append(lineConfs, *l.Confidence)
			}
		}
	}

	var docConf *float64
	if doc != nil {
		docConf = doc.Confidence
	}
	res.Confidence = OverallConfidence(docConf, fieldConfs, lineConfs)

	res.RawText = raw.Content
	if res.RawText == "" {
		texts := make([]string, 0, len(res.Pages))
		for _, p := range res.Pages {
			texts = append(texts, p.Text)
		}
		res.RawText = strings.Join(texts, "\n")
	}

	res.DocumentType = reg.DisplayName(modelID)
	if res.DocumentType == "" && doc != nil {
		res.DocumentType = doc.DocType
	}
	if res.DocumentType == "" {
		res.DocumentType = modelID
	}
	return res
}

// OverallConfidence applies the fallback chain: the document confidence when present,
// else the mean field confidence, else the mean line confidence, else models.NeutralConfidence.
func OverallConfidence(document *float64, fields, lines []float64) float64 {
	if document != nil {
		return *document
	}
	if len(fields) > 0 {
		return mean(fields)
	}
	if len(lines) > 0 {
		return mean(lines)
	}
	return models.NeutralConfidence
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func normalizePages(raw *RawResult) []models.Page {
	pages := make([]models.Page, 0, len(raw.Pages))
	index := make(map[int]int, len(raw.Pages))
	for i, rp := range raw.Pages {
		num := rp.PageNumber
		if num == 0 {
			num = i + 1
		}
		p := models.Page{PageNumber: num, Lines: []models.Line{}, Tables: []models.Table{}}
		contents := make([]string, 0, len(rp.Lines))
		for _, rl := range rp.Lines {
			p.Lines = append(p.Lines, models.Line{
				Content:         rl.Content,
				BoundingPolygon: rl.Polygon,
				Confidence:      rl.Confidence,
			})
			contents = append(contents, rl.Content)
		}
		p.Text = strings.Join(contents, "\n")
		index[num] = len(pages)
		pages = append(pages, p)
	}

	for _, rt := range raw.Tables {
		t := models.Table{RowCount: rt.RowCount, ColumnCount: rt.ColumnCount, Cells: make([]models.TableCell, 0, len(rt.Cells))}
		for _, c := range rt.Cells {
			t.Cells = append(t.Cells, models.TableCell{
				Content:         c.Content,
				RowIndex:        c.RowIndex,
				ColumnIndex:     c.ColumnIndex,
				BoundingPolygon: firstPolygon(c.BoundingRegions),
			})
		}
		num := 1
		if len(rt.BoundingRegions) > 0 {
			num = rt.BoundingRegions[0].PageNumber
		}
		i, ok := index[num]
		if !ok {
			index[num] = len(pages)
			i = len(pages)
			pages = append(pages, models.Page{PageNumber: num, Lines: []models.Line{}, Tables: []models.Table{}})
		}
		pages[i].Tables = append(pages[i].Tables, t)
	}
	return pages
}

func firstPolygon(regions []RawBoundingRegion) []float64 {
	if len(regions) == 0 {
		return nil
	}
	return regions[0].Polygon
}

// fieldValue returns the typed value of f, falling back to its content text.
func fieldValue(f RawField) any {
	switch {
	case f.ValueString != nil:
		return *f.ValueString
	case f.ValueDate != nil:
		return *f.ValueDate
	case f.ValueTime != nil:
		return *f.ValueTime
	case f.ValuePhoneNumber != nil:
		return *f.ValuePhoneNumber
	case f.ValueCountryRegion != nil:
		return *f.ValueCountryRegion
	case f.ValueSelectionMark != nil:
		return *f.ValueSelectionMark
	case f.ValueNumber != nil:
		return *f.ValueNumber
	case f.ValueInteger != nil:
		return *f.ValueInteger
	case f.ValueBoolean != nil:
		return *f.ValueBoolean
	case f.ValueCurrency != nil:
		m := map[string]any{"amount": f.ValueCurrency.Amount}
		if f.ValueCurrency.CurrencySymbol != "" {
			m["currencySymbol"] = f.ValueCurrency.CurrencySymbol
		}
		if f.ValueCurrency.CurrencyCode != "" {
			m["currencyCode"] = f.ValueCurrency.CurrencyCode
		}
		return m
	case f.ValueAddress != nil:
		return f.ValueAddress
	case f.ValueArray != nil:
		out := make([]any, 0, len(f.ValueArray))
		for _, item := range f.ValueArray {
			out = append(out, fieldValue(item))
		}
		return out
	case f.ValueObject != nil:
		out := make(map[string]any, len(f.ValueObject))
		for k, v := range f.ValueObject {
			out[k] = fieldValue(v)
		}
		return out
	}
	return f.Content
}
