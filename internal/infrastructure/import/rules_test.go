package erpimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapColumns_SalesExport(t *testing.T) {
	headers := []string{"Дата", "Документ продажи", "Артикул", "Номенклатура", "Количество", "Себестоимость", "Валовая прибыль", "Выручка"}
	rules, err := RulesFor(KindSales)
	require.NoError(t, err)

	columns, missing := MapColumns(headers, rules)
	assert.Empty(t, missing)
	assert.Equal(t, map[Field]int{
		FieldDate:     0,
		FieldDocument: 1,
		FieldArticle:  2,
		FieldName:     3,
		FieldQuantity: 4,
		FieldCost:     5,
		FieldMargin:   6,
		FieldRevenue:  7,
	}, columns)
}

func TestMapColumns_ClaimedColumnIsNotReassigned(t *testing.T) {
	// "Сумма себестоимости" contains "сумма" but is claimed by cost first
	headers := []string{"Сумма себестоимости", "ТОВАР", "Сумма"}
	rules, err := RulesFor(KindSales)
	require.NoError(t, err)

	columns, missing := MapColumns(headers, rules)
	assert.Empty(t, missing)
	assert.Equal(t, 0, columns[FieldCost])
	assert.Equal(t, 1, columns[FieldName])
	assert.Equal(t, 2, columns[FieldRevenue])
}

func TestMapColumns_KeywordPriority(t *testing.T) {
	// "выручк" outranks the generic "сумма" even when it sits further right
	headers := []string{"Наименование", "Сумма скидки", "Выручка, руб."}
	rules, err := RulesFor(KindSales)
	require.NoError(t, err)

	columns, _ := MapColumns(headers, rules)
	assert.Equal(t, 2, columns[FieldRevenue])
}

func TestMapColumns_MissingRequired(t *testing.T) {
	rules, err := RulesFor(KindSales)
	require.NoError(t, err)

	_, missing := MapColumns([]string{"Дата", "Количество"}, rules)
	assert.Equal(t, []Field{FieldName, FieldRevenue}, missing)

	rules, err = RulesFor(KindStock)
	require.NoError(t, err)
	_, missing = MapColumns([]string{"Склад", "Цена"}, rules)
	assert.Equal(t, []Field{FieldName, FieldQuantity}, missing)
}

func TestMapColumns_CaseAndSpacing(t *testing.T) {
	rules, err := RulesFor(KindStock)
	require.NoError(t, err)

	columns, missing := MapColumns([]string{"  НОМЕНКЛАТУРА ", "Конечный   ОСТАТОК"}, rules)
	assert.Empty(t, missing)
	assert.Equal(t, 0, columns[FieldName])
	assert.Equal(t, 1, columns[FieldQuantity])
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind(" Sales ")
	require.NoError(t, err)
	assert.Equal(t, KindSales, kind)

	_, err = ParseKind("payroll")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
