// Package template provides placeholder substitution for message content.
package template

import (
	"strconv"
	"strings"

	"github.com/gustolabs/fluxo/pkg/models"
)

// Placeholders recognized in template subjects and bodies. Anything else in
// brackets is left verbatim in the output.
const (
	PlaceholderCustomerName  = "[Nome Cliente]"
	PlaceholderCustomerEmail = "[Email Cliente]"
	PlaceholderOrderID       = "[Número Pedido]"
	PlaceholderOrderTotal    = "[Total]"
)

// Fallbacks used when the underlying context field is absent.
const (
	fallbackCustomerName = "Cliente"
	fallbackMissing      = "N/A"
)

// Render substitutes the fixed placeholder set in input with values drawn
// from the execution context. Pure: it never fails and never touches
// anything outside its arguments.
func Render(input string, execCtx *models.ExecutionContext) string {
	replacer := strings.NewReplacer(
		PlaceholderCustomerName, customerName(execCtx),
		PlaceholderCustomerEmail, orDefault(execCtx.CustomerEmail, fallbackMissing),
		PlaceholderOrderID, orDefault(execCtx.OrderID, fallbackMissing),
		PlaceholderOrderTotal, orderTotal(execCtx),
	)

	return replacer.Replace(input)
}

func customerName(execCtx *models.ExecutionContext) string {
	return orDefault(execCtx.CustomerName, fallbackCustomerName)
}

func orderTotal(execCtx *models.ExecutionContext) string {
	if execCtx.OrderValue == 0 {
		return fallbackMissing
	}

	return "R$ " + strconv.FormatFloat(execCtx.OrderValue, 'f', 2, 64)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
