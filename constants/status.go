package constants

// TaxStatus is the per-item taxability classification.
type TaxStatus string

const (
	TaxStatusTaxable   TaxStatus = "TAXABLE"
	TaxStatusZeroRated TaxStatus = "ZERO_RATED"
	TaxStatusExempt    TaxStatus = "EXEMPT"
	TaxStatusUnknown   TaxStatus = "UNKNOWN"
)

// OperationStatus is the state of a remote analyze operation.
type OperationStatus string

// Values as returned by the Document Intelligence operation endpoint.
const (
	OperationNotStarted OperationStatus = "notStarted"
	OperationRunning    OperationStatus = "running"
	OperationSucceeded  OperationStatus = "succeeded"
	OperationFailed     OperationStatus = "failed"
	OperationCanceled   OperationStatus = "canceled"
)

// Terminal reports whether polling can stop.
func (s OperationStatus) Terminal() bool {
	switch s {
	case OperationSucceeded, OperationFailed, OperationCanceled:
		return true
	}
	return false
}
