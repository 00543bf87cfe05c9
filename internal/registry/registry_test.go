package registry

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/valgate/internal/validator"
)

func newValidator(t *testing.T, name, location, endpoint string) validator.Validator {
	t.Helper()
	u, err := url.Parse(endpoint)
	require.NoError(t, err)
	return validator.New(name, location, u)
}

func testValidators(t *testing.T) []validator.Validator {
	return []validator.Validator{
		newValidator(t, "frankfurt-1", "Frankfurt", "http://10.0.0.1:8899"),
		newValidator(t, "frankfurt-2", "frankfurt ", "http://10.0.0.2:8899"),
		newValidator(t, "Tokyo-1", "Tokyo", "http://10.0.1.1:8899"),
		newValidator(t, "lab", "unspecified", "http://127.0.0.1:8899"),
	}
}

func TestNewRejectsEmpty(t *testing.T) {
	reg, err := New(nil)
	assert.Nil(t, reg)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = New([]validator.Validator{})
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestNewRejectsDuplicateNames(t *testing.T) {
	tests := []struct {
		name   string
		second string
	}{
		{name: "exact duplicate", second: "frankfurt-1"},
		{name: "case differs", second: "FRANKFURT-1"},
		{name: "whitespace differs", second: "  Frankfurt-1 "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New([]validator.Validator{
				newValidator(t, "frankfurt-1", "Frankfurt", "http://10.0.0.1:8899"),
				newValidator(t, "tokyo-1", "Tokyo", "http://10.0.1.1:8899"),
				newValidator(t, tt.second, "Berlin", "http://10.0.2.1:8899"),
			})
			require.Error(t, err)

			var dup *DuplicateNameError
			require.True(t, errors.As(err, &dup))
			assert.Equal(t, tt.second, dup.Name)
			assert.Equal(t, "duplicate validator name '"+tt.second+"'", err.Error())
		})
	}
}

func TestRegistryQueries(t *testing.T) {
	reg, err := New(testValidators(t))
	require.NoError(t, err)

	assert.Equal(t, 4, reg.Len())

	names := make([]string, 0, reg.Len())
	for _, v := range reg.Validators() {
		names = append(names, v.Name())
	}
	assert.Equal(t, []string{"frankfurt-1", "frankfurt-2", "Tokyo-1", "lab"}, names)

	assert.Equal(t, []validator.Summary{
		{Name: "frankfurt-1", Location: "Frankfurt"},
		{Name: "frankfurt-2", Location: "frankfurt "},
		{Name: "Tokyo-1", Location: "Tokyo"},
		{Name: "lab", Location: "unspecified"},
	}, reg.Summaries())

	v, ok := reg.ByName("  TOKYO-1 ")
	require.True(t, ok)
	assert.Equal(t, "Tokyo-1", v.Name())

	_, ok = reg.ByName("tokyo-2")
	assert.False(t, ok)

	assert.Equal(t, []int{0, 1}, reg.InLocation(" FRANKFURT"))
	assert.Nil(t, reg.InLocation("paris"))
	assert.Equal(t, "Tokyo-1", reg.At(2).Name())

	assert.Equal(t, []string{"frankfurt", "tokyo", "unspecified"}, reg.Locations())
}

// TestRegistryIsImmutable verifies that neither the input slice nor the values
// returned by queries can change the registry.
func TestRegistryIsImmutable(t *testing.T) {
	input := testValidators(t)
	reg, err := New(input)
	require.NoError(t, err)

	input[0] = newValidator(t, "changed", "x", "http://1.1.1.1:1")
	listed := reg.Validators()
	listed[1] = newValidator(t, "changed", "x", "http://1.1.1.1:1")
	positions := reg.InLocation("frankfurt")
	positions[0] = 3

	assert.Equal(t, "frankfurt-1", reg.At(0).Name())
	assert.Equal(t, "frankfurt-2", reg.At(1).Name())
	assert.Equal(t, []int{0, 1}, reg.InLocation("frankfurt"))
}

// TestLocationIndexReferencesExistingRecords checks every indexed position.
func TestLocationIndexReferencesExistingRecords(t *testing.T) {
	reg, err := New(testValidators(t))
	require.NoError(t, err)

	seen := 0
	for _, loc := range reg.Locations() {
		for _, idx := range reg.InLocation(loc) {
			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, reg.Len())
			assert.Equal(t, loc, validator.NormalizeKey(reg.At(idx).Location()))
			seen++
		}
	}
	assert.Equal(t, reg.Len(), seen)
}
