// Package condition provides pure evaluation of condition-node expressions
// against an execution context.
package condition

import (
	"strconv"
	"strings"

	"github.com/gustolabs/fluxo/pkg/models"
)

// Default values used when the underlying context data is absent.
const defaultCustomerType = "new"

// Resolve maps a condition field to its actual value in the context,
// applying the documented default when the data is absent.
func Resolve(field models.ConditionField, execCtx *models.ExecutionContext) any {
	switch field {
	case models.ConditionFieldOrderValue:
		return execCtx.OrderValue
	case models.ConditionFieldOrderItemsCount:
		if value, ok := execCtx.MetadataValue(models.MetadataItemsCount); ok {
			return value
		}

		return 0
	case models.ConditionFieldCustomerType:
		if value, ok := execCtx.MetadataValue(models.MetadataCustomerType); ok {
			return value
		}

		return defaultCustomerType
	case models.ConditionFieldDaysSinceRegistration:
		if value, ok := execCtx.MetadataValue(models.MetadataDaysSinceRegistration); ok {
			return value
		}

		return 0
	default:
		return nil
	}
}

// Evaluate resolves the configured field and applies the operator against
// the configured value. Evaluation itself cannot fail: unknown fields and
// operators compare as false rather than erroring, and the result routes
// the run through the "true" or "false" edge.
func Evaluate(config models.ConditionConfig, execCtx *models.ExecutionContext) bool {
	actual := Resolve(config.Field, execCtx)

	return Compare(config.Operator, actual, config.Value)
}

// Compare applies one operator to an actual and an expected value.
//
// equals and not_equals keep the loose semantics of the original evaluator:
// values that both coerce to numbers compare numerically, everything else
// compares by string form. contains is a case-insensitive substring match on
// string forms. The ordered operators coerce both sides to numbers and are
// false when either side does not coerce.
func Compare(operator models.ConditionOperator, actual, expected any) bool {
	switch operator {
	case models.OperatorEquals:
		return looseEquals(actual, expected)
	case models.OperatorNotEquals:
		return !looseEquals(actual, expected)
	case models.OperatorGreaterThan:
		left, leftOK := toNumber(actual)
		right, rightOK := toNumber(expected)

		return leftOK && rightOK && left > right
	case models.OperatorLessThan:
		left, leftOK := toNumber(actual)
		right, rightOK := toNumber(expected)

		return leftOK && rightOK && left < right
	case models.OperatorContains:
		return strings.Contains(
			strings.ToLower(toString(actual)),
			strings.ToLower(toString(expected)),
		)
	default:
		return false
	}
}

func looseEquals(actual, expected any) bool {
	left, leftOK := toNumber(actual)
	right, rightOK := toNumber(expected)

	if leftOK && rightOK {
		return left == right
	}

	return toString(actual) == toString(expected)
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case bool:
		if v {
			return 1, true
		}

		return 0, true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
