package erpimport

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Kind names an ERP export table
type Kind string

const (
	KindSales Kind = "sales"
	KindStock Kind = "stock"
)

// AllKinds returns every supported table kind
func AllKinds() []Kind {
	return []Kind{KindSales, KindStock}
}

// ParseKind validates a kind name
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := ruleTables[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Field is a canonical column of a table
type Field string

// Sales fields
const (
	FieldDate     Field = "date"
	FieldDocument Field = "document"
	FieldArticle  Field = "article"
	FieldName     Field = "name"
	FieldQuantity Field = "quantity"
	FieldCost     Field = "cost"
	FieldMargin   Field = "margin"
	FieldRevenue  Field = "revenue"
)

// Stock fields
const (
	FieldWarehouse Field = "warehouse"
	FieldPrice     Field = "price"
	FieldAmount    Field = "amount"
)

// ColumnRule maps one canonical field to header keywords in priority order.
// Keywords are lower-case stems matched as substrings of the folded header.
type ColumnRule struct {
	Field    Field
	Keywords []string
	Required bool
}

// Rules are applied in order. A column claimed by an earlier field is never
// offered to a later one, so specific fields come before generic ones.
var salesRules = []ColumnRule{
	{Field: FieldDate, Keywords: []string{"дата", "период", "date"}},
	{Field: FieldDocument, Keywords: []string{"документ", "регистратор", "накладн", "номер", "document"}},
	{Field: FieldArticle, Keywords: []string{"артикул", "article", "sku", "код"}},
	{Field: FieldName, Keywords: []string{"номенклатур", "наименован", "товар", "name", "product"}, Required: true},
	{Field: FieldQuantity, Keywords: []string{"количеств", "кол-во", "кол.", "qty", "quantity"}},
	{Field: FieldCost, Keywords: []string{"себестоим", "cost"}},
	{Field: FieldMargin, Keywords: []string{"валовая прибыль", "валов", "маржа", "прибыль", "наценк", "margin"}},
	{Field: FieldRevenue, Keywords: []string{"выручк", "сумма продаж", "сумма", "стоимость", "revenue", "amount"}, Required: true},
}

var stockRules = []ColumnRule{
	{Field: FieldArticle, Keywords: []string{"артикул", "article", "sku", "код"}},
	{Field: FieldName, Keywords: []string{"номенклатур", "наименован", "товар", "name", "product"}, Required: true},
	{Field: FieldWarehouse, Keywords: []string{"склад", "warehouse"}},
	{Field: FieldQuantity, Keywords: []string{"остаток", "количеств", "кол-во", "qty", "quantity"}, Required: true},
	{Field: FieldPrice, Keywords: []string{"цена", "price"}},
	{Field: FieldAmount, Keywords: []string{"сумма", "стоимость", "amount"}},
}

var ruleTables = map[Kind][]ColumnRule{
	KindSales: salesRules,
	KindStock: stockRules,
}

// RulesFor returns the rule table of a kind
func RulesFor(kind Kind) ([]ColumnRule, error) {
	rules, ok := ruleTables[kind]
	if !ok {
		return nil, ErrUnknownKind
	}
	return rules, nil
}

// foldHeader normalizes a header for keyword matching
func foldHeader(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(trimSpaces(s)), " "))
}

// MapColumns assigns header columns to fields. It returns the column index of
// every mapped field and the required fields left without a column.
func MapColumns(headers []string, rules []ColumnRule) (map[Field]int, []Field) {
	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = foldHeader(h)
	}

	claimed := make(map[int]bool, len(headers))
	columns := make(map[Field]int, len(rules))
	var missing []Field

	for _, rule := range rules {
		idx, ok := matchColumn(folded, claimed, rule.Keywords)
		if ok {
			claimed[idx] = true
			columns[rule.Field] = idx
			continue
		}
		if rule.Required {
			missing = append(missing, rule.Field)
		}
	}
	return columns, missing
}

// matchColumn walks keywords in priority order; for each keyword the leftmost
// unclaimed header containing it wins
func matchColumn(folded []string, claimed map[int]bool, keywords []string) (int, bool) {
	for _, kw := range keywords {
		kw = cases.Fold().String(kw)
		for i, h := range folded {
			if claimed[i] || h == "" {
				continue
			}
			if strings.Contains(h, kw) {
				return i, true
			}
		}
	}
	return 0, false
}
