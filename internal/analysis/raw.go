package analysis

// Raw payload types mirror the backend's JSON. Only fields this package reads are declared.

// RawResult is the analyzeResult body of a succeeded operation.
type RawResult struct {
	APIVersion string        `json:"apiVersion"`
	ModelID    string        `json:"modelId"`
	Content    string        `json:"content"`
	Pages      []RawPage     `json:"pages"`
	Tables     []RawTable    `json:"tables"`
	Documents  []RawDocument `json:"documents"`
}

type RawPage struct {
	PageNumber int       `json:"pageNumber"`
	Lines      []RawLine `json:"lines"`
	Words      []RawWord `json:"words"`
}

type RawLine struct {
	Content    string    `json:"content"`
	Polygon    []float64 `json:"polygon"`
	Confidence *float64  `json:"confidence,omitempty"`
}

type RawWord struct {
	Content    string    `json:"content"`
	Polygon    []float64 `json:"polygon"`
	Confidence float64   `json:"confidence"`
}

type RawBoundingRegion struct {
	PageNumber int       `json:"pageNumber"`
	Polygon    []float64 `json:"polygon"`
}

type RawTable struct {
	RowCount        int                 `json:"rowCount"`
	ColumnCount     int                 `json:"columnCount"`
	Cells           []RawTableCell      `json:"cells"`
	BoundingRegions []RawBoundingRegion `json:"boundingRegions"`
}

type RawTableCell struct {
	RowIndex        int                 `json:"rowIndex"`
	ColumnIndex     int                 `json:"columnIndex"`
	Content         string              `json:"content"`
	BoundingRegions []RawBoundingRegion `json:"boundingRegions"`
}

type RawDocument struct {
	DocType    string              `json:"docType"`
	Confidence *float64            `json:"confidence,omitempty"`
	Fields     map[string]RawField `json:"fields"`
}

type RawCurrency struct {
	Amount         float64 `json:"amount"`
	CurrencySymbol string  `json:"currencySymbol,omitempty"`
	CurrencyCode   string  `json:"currencyCode,omitempty"`
}

// RawField is a typed field value; exactly one value* member is set for a known type.
type RawField struct {
	Type            string              `json:"type"`
	Content         string              `json:"content,omitempty"`
	Confidence      *float64            `json:"confidence,omitempty"`
	BoundingRegions []RawBoundingRegion `json:"boundingRegions,omitempty"`

	ValueString        *string             `json:"valueString,omitempty"`
	ValueDate          *string             `json:"valueDate,omitempty"`
	ValueTime          *string             `json:"valueTime,omitempty"`
	ValuePhoneNumber   *string             `json:"valuePhoneNumber,omitempty"`
	ValueCountryRegion *string             `json:"valueCountryRegion,omitempty"`
	ValueSelectionMark *string             `json:"valueSelectionMark,omitempty"`
	ValueNumber        *float64            `json:"valueNumber,omitempty"`
	ValueInteger       *int64              `json:"valueInteger,omitempty"`
	ValueBoolean       *bool               `json:"valueBoolean,omitempty"`
	ValueCurrency      *RawCurrency        `json:"valueCurrency,omitempty"`
	ValueAddress       map[string]any      `json:"valueAddress,omitempty"`
	ValueArray         []RawField          `json:"valueArray,omitempty"`
	ValueObject        map[string]RawField `json:"valueObject,omitempty"`
}

// RawError is the error body of a failed operation or rejected request.
type RawError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
