package validation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUUIDv4(t *testing.T) {
	valid := uuid.New()

	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{name: "canonical v4", value: valid.String()},
		{name: "uppercase v4", value: strings.ToUpper(valid.String())},
		{name: "empty", value: "", wantErr: "org_id: is required"},
		{name: "garbage", value: "not-a-uuid", wantErr: "org_id: must be a valid UUID"},
		{name: "unhyphenated", value: strings.ReplaceAll(valid.String(), "-", ""), wantErr: "org_id: must be a valid UUID"},
		{name: "urn form", value: "urn:uuid:" + valid.String(), wantErr: "org_id: must be a valid UUID"},
		{name: "braced form", value: "{" + valid.String() + "}", wantErr: "org_id: must be a valid UUID"},
		{name: "nil uuid", value: uuid.Nil.String(), wantErr: "org_id: must be a UUID v4"},
		{name: "v1 uuid", value: "6ba7b810-9dad-11d1-80b4-00c04fd430c8", wantErr: "org_id: must be a UUID v4"},
		{name: "non-hex characters", value: "zzzzzzzz-9dad-41d1-80b4-00c04fd430c8", wantErr: "org_id: must be a valid UUID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseUUIDv4("org_id", tt.value)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				assert.True(t, IsValidationError(err))
				assert.Equal(t, uuid.Nil, id)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, valid, id)
		})
	}
}

func TestValidator_NormalizeLabel(t *testing.T) {
	v := NewValidator(nil)

	label, err := v.NormalizeLabel("label", "  Unit 4B  ")
	require.NoError(t, err)
	assert.Equal(t, "Unit 4B", label)

	_, err = v.NormalizeLabel("label", "   ")
	require.Error(t, err)
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "label", ve.Field)
	assert.Equal(t, "required", ve.Rule)

	_, err = v.NormalizeLabel("label", strings.Repeat("a", 121))
	require.Error(t, err)
	assert.Equal(t, "label: must be at most 120 characters", err.Error())

	_, err = v.NormalizeLabel("label", "Unit\x00 4B")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "control characters")

	_, err = v.NormalizeLabel("label", strings.Repeat("é", 120))
	assert.NoError(t, err, "length is counted in runes")
}

func TestValidator_AllowEmptyLabel(t *testing.T) {
	v := NewValidator(&ValidationConfig{MaxLabelLength: 10, AllowEmptyLabel: true})

	label, err := v.NormalizeLabel("label", "")
	require.NoError(t, err)
	assert.Empty(t, label)
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(nil)

	result := v.Validate(
		v.UUIDv4("occupant_id", "nope"),
		v.Label("label", "Unit 1"),
		v.Label("note", ""),
	)
	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 2)
	assert.Equal(t, []string{"occupant_id", "note"}, result.Fields())
	assert.EqualError(t, result.Err(), "occupant_id: must be a valid UUID")

	result = v.Validate(v.UUIDv4("occupant_id", uuid.NewString()), v.Label("label", "Unit 1"))
	assert.True(t, result.Valid)
	assert.NoError(t, result.Err())
}

func TestAsValidationError_Wrapped(t *testing.T) {
	err := fmt.Errorf("create seat: %w", NewValidationError("label", "required", "is required"))

	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "label", ve.Field)

	_, ok = AsValidationError(fmt.Errorf("plain"))
	assert.False(t, ok)
}
