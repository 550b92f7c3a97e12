package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestValidate(t *testing.T) {
	var (
		nilLogger *zap.Logger
		nilFunc   func()
		nilMap    map[string]int
		nilIface  error
	)

	tests := []struct {
		name    string
		deps    []any
		wantErr bool
	}{
		{"no deps", nil, false},
		{"all set", []any{zap.NewNop(), "name", 1, func() {}}, false},
		{"nil pointer", []any{zap.NewNop(), nilLogger}, true},
		{"nil func", []any{nilFunc}, true},
		{"nil map", []any{nilMap}, true},
		{"nil interface", []any{nilIface}, true},
		{"empty string", []any{""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate("component", tt.deps...)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "component")
				return
			}
			assert.NoError(t, err)
		})
	}
}
