package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWholeAmount(t *testing.T) {
	cases := map[string]bool{
		"0":           true,
		"101":         true,
		"101.00":      true,
		"9999999999":  true,
		"101.999":     false,
		"0.5":         false,
		"-1":          false,
		"10000000000": false,
	}
	for raw, want := range cases {
		assert.Equal(t, want, WholeAmount(decimal.RequireFromString(raw)), raw)
	}
}
