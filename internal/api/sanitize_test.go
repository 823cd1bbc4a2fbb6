package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

var msgSpec = []FieldSpec{
	{Name: "ttl", Type: TypeInt, Default: float64(300)},
	{Name: "body", Type: TypeAny},
}

func decodeDoc(t *testing.T, raw string) interface{} {
	t.Helper()
	var doc interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestSanitizeAppliesDefaults(t *testing.T) {
	out, err := Sanitize(decodeDoc(t, `{"body":"hi"}`), msgSpec)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, float64(300), out[0]["ttl"])
	require.Equal(t, "hi", out[0]["body"])
}

func TestSanitizeFiltersUndeclaredFields(t *testing.T) {
	out, err := Sanitize(decodeDoc(t, `{"ttl":60,"body":"hi","color":"red"}`), msgSpec)
	require.NoError(t, err)
	require.NotContains(t, out[0], "color")
}

func TestSanitizeArray(t *testing.T) {
	out, err := Sanitize(decodeDoc(t, `[{"ttl":60,"body":1},{"body":2}]`), msgSpec)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, float64(60), out[0]["ttl"])
	require.Equal(t, float64(300), out[1]["ttl"])
}

func TestSanitizeMissingRequired(t *testing.T) {
	_, err := Sanitize(decodeDoc(t, `{"ttl":60}`), msgSpec)
	require.Error(t, err)
	apiErr := AsError(err)
	require.Equal(t, KindValidationFailed, apiErr.Kind)
	require.Equal(t, "The body field is required.", apiErr.Message)
}

func TestSanitizeTypeMismatch(t *testing.T) {
	_, err := Sanitize(decodeDoc(t, `{"ttl":"soon","body":1}`), msgSpec)
	require.Error(t, err)
	require.Equal(t, KindValidationFailed, AsError(err).Kind)

	// fractional numbers are not integers
	_, err = Sanitize(decodeDoc(t, `{"ttl":1.5,"body":1}`), msgSpec)
	require.Error(t, err)
}

func TestSanitizeUnsupportedShape(t *testing.T) {
	for _, raw := range []string{`"scalar"`, `42`, `[1,2]`} {
		_, err := Sanitize(decodeDoc(t, raw), msgSpec)
		require.Error(t, err, raw)
		require.Equal(t, KindMalformedPayload, AsError(err).Kind, raw)
	}
}
