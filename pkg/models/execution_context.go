package models

// Metadata keys recognized by the condition evaluator. Event producers fill
// them when the underlying data is available for the trigger in question.
const (
	MetadataItemsCount            = "items_count"
	MetadataCustomerType          = "customer_type"
	MetadataDaysSinceRegistration = "days_since_registration"
)

// ExecutionContext is the event payload a caller hands to the engine for one
// run. It is immutable for the duration of the run and serializable so that
// delayed branches can be resumed with the same data.
type ExecutionContext struct {
	CustomerID    string         `json:"customer_id,omitempty"`
	CustomerEmail string         `json:"customer_email"        validate:"required,email"`
	CustomerName  string         `json:"customer_name,omitempty"`
	OrderID       string         `json:"order_id,omitempty"`
	OrderValue    float64        `json:"order_value,omitempty"`
	TriggerType   string         `json:"trigger_type"          validate:"required"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// MetadataValue returns a metadata entry and whether it was present.
func (c *ExecutionContext) MetadataValue(key string) (any, bool) {
	if c.Metadata == nil {
		return nil, false
	}

	value, ok := c.Metadata[key]

	return value, ok
}
