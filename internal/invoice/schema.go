package invoice

import (
	"fmt"
	"strings"
)

// Canonical field names. These double as the Rate_Comps column headers, so
// they must not drift.
const (
	FieldLocationID    = "Location ID"
	FieldWorkOrder     = "W.O.#"
	FieldCategory      = "Category"
	FieldTrade         = "Trade"
	FieldInvoiceNumber = "Invoice Number"
	FieldStatus        = "Inv.Status"
	FieldTotal         = "Inv.Total"
	FieldLaborAmount   = "Invoice Labor Amount"
	FieldSalesTax      = "Sales Tax"
)

// colSecondaryTax is summed into Sales Tax when the report breaks tax out
// into two columns. It is optional and has no canonical field of its own.
const colSecondaryTax = "Invoice Tax2 Amount"

// fieldAliases lists the source-column spellings each canonical field may
// arrive under, in preference order. The trailing-space variant of Inv.Total
// shows up in real exports.
var fieldAliases = map[string][]string{
	FieldLocationID:    {"Location ID", "Location Number"},
	FieldWorkOrder:     {"W.O.#", "WO Tracking Number"},
	FieldCategory:      {"Category"},
	FieldTrade:         {"Trade"},
	FieldInvoiceNumber: {"Invoice Number"},
	FieldStatus:        {"Inv.Status", "Invoice Status"},
	FieldTotal:         {"Invoice Amount", "Inv.Total", "Inv.Total "},
	FieldLaborAmount:   {"Invoice Labor Amount"},
	FieldSalesTax:      {"Invoice Tax Amount", "Sales Tax"},
}

// fieldOrder fixes iteration order for error messages and sheet layout.
var fieldOrder = []string{
	FieldLocationID,
	FieldWorkOrder,
	FieldCategory,
	FieldTrade,
	FieldInvoiceNumber,
	FieldStatus,
	FieldTotal,
	FieldLaborAmount,
	FieldSalesTax,
}

// Schema is the resolved mapping from canonical fields to source columns for
// one report. It is built once at ingestion; an unresolvable required field
// fails the run there instead of surfacing later inside the engine.
type Schema struct {
	columns      map[string]int
	secondaryTax int // index of the optional second tax column, -1 when absent
}

// ResolveSchema matches the report header against the alias lists. Header
// names are compared after trimming, but the alias with a trailing space is
// tried against the raw header first so both spellings resolve.
func ResolveSchema(header []string) (Schema, error) {
	raw := make(map[string]int, len(header))
	trimmed := make(map[string]int, len(header))
	for i, name := range header {
		if _, seen := raw[name]; !seen {
			raw[name] = i
		}
		key := strings.TrimSpace(name)
		if _, seen := trimmed[key]; !seen {
			trimmed[key] = i
		}
	}

	schema := Schema{columns: make(map[string]int, len(fieldOrder)), secondaryTax: -1}
	for _, field := range fieldOrder {
		idx, ok := findAlias(fieldAliases[field], raw, trimmed)
		if !ok {
			return Schema{}, fmt.Errorf(
				"could not find any of %v in report columns for field %q",
				fieldAliases[field], field)
		}
		schema.columns[field] = idx
	}

	if idx, ok := trimmed[colSecondaryTax]; ok {
		schema.secondaryTax = idx
	}
	return schema, nil
}

func findAlias(aliases []string, raw, trimmed map[string]int) (int, bool) {
	for _, alias := range aliases {
		if idx, ok := raw[alias]; ok {
			return idx, true
		}
		if idx, ok := trimmed[strings.TrimSpace(alias)]; ok {
			return idx, true
		}
	}
	return 0, false
}

// Column reports the source-column index for a canonical field.
func (s Schema) Column(field string) int {
	return s.columns[field]
}

// HasSecondaryTax reports whether the report carries a second tax column.
func (s Schema) HasSecondaryTax() bool {
	return s.secondaryTax >= 0
}
