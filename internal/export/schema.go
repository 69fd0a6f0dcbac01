package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/receipt-digitizer/constants"
)

// ReceiptsJSONSchema describes the receipts JSON array written by
// ReceiptsJSON and accepted by the HTTP API.
func ReceiptsJSONSchema() map[string]any {
	str := map[string]any{"type": "string"}
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": map[string]any{"type": "string", "minLength": 1},
			"quantity":    map[string]any{"type": "string", "pattern": `^\d+(\.\d+)?$`},
			"unit_price":  decimalProp(),
			"line_total":  decimalProp(),
			"tax_status": map[string]any{
				"type": "string",
				"enum": []string{
					string(constants.TaxStatusTaxable), string(constants.TaxStatusZeroRated),
					string(constants.TaxStatusExempt), string(constants.TaxStatusUnknown),
				},
			},
			"tax_amount":  decimalProp(),
			"final_price": decimalProp(),
			"discount":    decimalProp(),
			"savings":     decimalProp(),
		},
		"required": []string{"description"},
	}
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"image_id":       map[string]any{"type": "string", "minLength": 1},
				"extracted_text": str,
				"receipt_type":   str,
				"merchant": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": str, "address": str, "phone": str, "tax_id": str, "regional_tax_number": str,
					},
				},
				"transaction": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"date":     str,
						"time":     str,
						"total":    decimalProp(),
						"subtotal": decimalProp(),
						"tax":      decimalProp(),
						"tax_details": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"total_tax":        decimalProp(),
								"rates":            map[string]any{"type": "array", "items": decimalProp()},
								"amounts":          map[string]any{"type": "array", "items": decimalProp()},
								"types":            map[string]any{"type": "array", "items": str},
								"has_regional_tax": map[string]any{"type": "boolean"},
							},
						},
					},
				},
				"items": map[string]any{"type": "array", "items": item},
				"payment": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"type":       str,
						"amount":     decimalProp(),
						"card_last4": map[string]any{"type": "string", "pattern": `^\d{0,4}$`},
						"change_due": decimalProp(),
					},
				},
			},
			"required": []string{"image_id"},
		},
	}
}

// decimalProp accepts decimal strings, bare numbers and null.
func decimalProp() map[string]any {
	return map[string]any{
		"anyOf": []any{
			map[string]any{"type": "string", "pattern": `^-?\d+(\.\d+)?$`},
			map[string]any{"type": "number"},
			map[string]any{"type": "null"},
		},
	}
}

var (
	receiptsSchemaOnce sync.Once
	receiptsSchema     *jsonschema.Schema
	receiptsSchemaErr  error
)

func compiledReceiptsSchema() (*jsonschema.Schema, error) {
	receiptsSchemaOnce.Do(func() {
		b, err := json.Marshal(ReceiptsJSONSchema())
		if err != nil {
			receiptsSchemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("receipts.json", bytes.NewReader(b)); err != nil {
			receiptsSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		receiptsSchema, receiptsSchemaErr = compiler.Compile("receipts.json")
		if receiptsSchemaErr != nil {
			receiptsSchemaErr = fmt.Errorf("compile schema: %w", receiptsSchemaErr)
		}
	})
	return receiptsSchema, receiptsSchemaErr
}

// ValidateReceiptsJSON checks data against ReceiptsJSONSchema.
func ValidateReceiptsJSON(data []byte) error {
	schema, err := compiledReceiptsSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
