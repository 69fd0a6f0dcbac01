package analysis

// Document is one detected receipt within a result.
type Document struct {
	DocType    string  `json:"docType"`
	Confidence float64 `json:"confidence,omitempty"`
	Fields     Fields  `json:"fields"`
}

// Result is the analyzeResult payload of a succeeded operation.
type Result struct {
	APIVersion string     `json:"apiVersion,omitempty"`
	ModelID    string     `json:"modelId,omitempty"`
	Content    string     `json:"content"`
	Documents  []Document `json:"documents"`
}

// FirstDocument returns the first document, or nil when none was detected.
func (r *Result) FirstDocument() *Document {
	if r == nil || len(r.Documents) == 0 {
		return nil
	}
	return &r.Documents[0]
}
