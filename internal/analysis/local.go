package analysis

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/shorui/internal/extract"
	"github.com/hyperjump/shorui/internal/registry"
)

// localFieldConfidence is reported for label/value pairs found by LocalBackend.
const localFieldConfidence = 0.8

// "Label: value" lines become fields for non-layout models.
var labelValueRe = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z0-9 #/.\-]{0,40}?)\s*[:=]\s*(\S.*?)\s*$`)

type localOp struct {
	done   chan struct{}
	result *RawResult
	err    error
}

// LocalBackend analyzes documents in-process with internal/extract. It produces layout
// (pages and lines) for every model and label/value fields for category models.
type LocalBackend struct {
	extractor *extract.Extractor
	logger    *zap.Logger

	mu  sync.Mutex
	ops map[string]*localOp
}

// NewLocalBackend creates a LocalBackend.
func NewLocalBackend(logger *zap.Logger) *LocalBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalBackend{
		extractor: extract.NewExtractor(),
		logger:    logger,
		ops:       make(map[string]*localOp),
	}
}

// Submit starts extraction in the background.
func (b *LocalBackend) Submit(ctx context.Context, req SubmitRequest) (Operation, error) {
	if err := ctx.Err(); err != nil {
		return Operation{}, err
	}
	id := uuid.New().String()
	op := &localOp{done: make(chan struct{})}
	b.mu.Lock()
	b.ops[id] = op
	b.mu.Unlock()

	content := append([]byte(nil), req.Content...)
	go func() {
		defer close(op.done)
		op.result, op.err = b.analyze(content, req)
	}()
	return Operation{ID: id, ModelID: req.ModelID, Location: "local:" + id}, nil
}

// Poll reports running until extraction finishes. A finished operation is forgotten after it is reported.
func (b *LocalBackend) Poll(ctx context.Context, op Operation) (PollResult, error) {
	b.mu.Lock()
	lo, ok := b.ops[op.ID]
	b.mu.Unlock()
	if !ok {
		return PollResult{}, &BackendError{Op: "poll", ModelID: op.ModelID, Status: 404, Message: "unknown operation " + op.ID}
	}
	select {
	case <-lo.done:
	default:
		return PollResult{Status: StatusRunning}, nil
	}

	b.mu.Lock()
	delete(b.ops, op.ID)
	b.mu.Unlock()

	if lo.err != nil {
		b.logger.Warn("local analysis failed", zap.String("operation", op.ID), zap.Error(lo.err))
		return PollResult{Status: StatusFailed, Error: &RawError{Code: "InvalidContent", Message: lo.err.Error()}}, nil
	}
	return PollResult{Status: StatusSucceeded, Result: lo.result}, nil
}

func (b *LocalBackend) analyze(content []byte, req SubmitRequest) (*RawResult, error) {
	format := extract.FormatFromName(req.FileName)
	pages, err := b.extractor.Pages(content, format)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	raw := &RawResult{APIVersion: "local", ModelID: req.ModelID}
	var all []string
	for i, text := range pages {
		rp := RawPage{PageNumber: i + 1}
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			rp.Lines = append(rp.Lines, RawLine{Content: line})
			all = append(all, line)
		}
		raw.Pages = append(raw.Pages, rp)
	}
	raw.Content = strings.Join(all, "\n")

	if req.ModelID != registry.LayoutModelID {
		raw.Documents = []RawDocument{{DocType: req.ModelID, Fields: labelValueFields(all)}}
	}
	return raw, nil
}

func labelValueFields(lines []string) map[string]RawField {
	fields := make(map[string]RawField)
	conf := localFieldConfidence
	for _, line := range lines {
		m := labelValueRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := fieldName(m[1])
		if name == "" {
			continue
		}
		if _, seen := fields[name]; seen {
			continue
		}
		v := m[2]
		fields[name] = RawField{Type: "string", Content: v, ValueString: &v, Confidence: &conf}
	}
	return fields
}

// fieldName turns a label such as "invoice id" into "InvoiceId".
func fieldName(label string) string {
	var b strings.Builder
	for _, word := range strings.FieldsFunc(label, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		rs := []rune(strings.ToLower(word))
		rs[0] = unicode.ToUpper(rs[0])
		b.WriteString(string(rs))
	}
	return b.String()
}
