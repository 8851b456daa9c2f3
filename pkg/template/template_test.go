package template

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gustolabs/fluxo/pkg/models"
)

func TestRender_WithFullContext(t *testing.T) {
	execCtx := &models.ExecutionContext{
		CustomerName:  "Ana",
		CustomerEmail: "ana@example.com",
		OrderID:       "123",
		OrderValue:    29.9,
		TriggerType:   "order.created",
	}

	result := Render("Olá [Nome Cliente], pedido [Número Pedido] no valor de [Total]", execCtx)

	assert.Equal(t, "Olá Ana, pedido 123 no valor de R$ 29.90", result)
}

func TestRender_WithEmptyContext(t *testing.T) {
	execCtx := &models.ExecutionContext{}

	result := Render("Olá [Nome Cliente], pedido [Número Pedido] no valor de [Total]", execCtx)

	assert.Equal(t, "Olá Cliente, pedido N/A no valor de N/A", result)
}

func TestRender_CustomerEmail(t *testing.T) {
	execCtx := &models.ExecutionContext{CustomerEmail: "ana@example.com"}

	assert.Equal(t, "Contato: ana@example.com", Render("Contato: [Email Cliente]", execCtx))
	assert.Equal(t, "Contato: N/A", Render("Contato: [Email Cliente]", &models.ExecutionContext{}))
}

func TestRender_UnknownPlaceholdersLeftVerbatim(t *testing.T) {
	execCtx := &models.ExecutionContext{CustomerName: "Ana"}

	result := Render("Olá [Nome Cliente], seu cupom: [Cupom]", execCtx)

	assert.Equal(t, "Olá Ana, seu cupom: [Cupom]", result)
}

func TestRender_RepeatedPlaceholders(t *testing.T) {
	execCtx := &models.ExecutionContext{CustomerName: "Ana"}

	result := Render("[Nome Cliente], [Nome Cliente]!", execCtx)

	assert.Equal(t, "Ana, Ana!", result)
}

func TestRender_TotalFormatting(t *testing.T) {
	execCtx := &models.ExecutionContext{OrderValue: 100}

	assert.Equal(t, "R$ 100.00", Render("[Total]", execCtx))
}
