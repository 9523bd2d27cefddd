package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"CustomerID", "customer_id"},
		{"OrderDate", "order_date"},
		{"HTTPRequest", "http_request"},
		{"name", "name"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToSnakeCase(tt.input))
		})
	}
}

func TestToLowerCamelCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"order_date", "orderDate"},
		{"customer_id", "customerId"},
		{"name", "name"},
		{"_id", "id"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToLowerCamelCase(tt.input))
		})
	}
}

func TestFirstRuneCase(t *testing.T) {
	assert.Equal(t, "customerID", LowerFirst("CustomerID"))
	assert.Equal(t, "CustomerID", UpperFirst("customerID"))
	assert.Equal(t, "_id", LowerFirst("_id"))
	assert.Equal(t, "", UpperFirst(""))
}
