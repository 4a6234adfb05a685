package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/inkleafapp/inkleaf-server/internal/errors"
)

type sampleRequest struct {
	Query string `json:"query" validate:"required,min=1,max=200"`
	Page  int    `json:"page" validate:"omitempty,gte=1"`
	URL   string `json:"url" validate:"omitempty,url"`
}

func TestValidate_Passes(t *testing.T) {
	v := New()
	err := v.Validate(sampleRequest{Query: "golang", Page: 1, URL: "http://library.lol/main/abc"})
	assert.NoError(t, err)
}

func TestValidate_ReportsFieldsByJSONName(t *testing.T) {
	v := New()
	err := v.Validate(sampleRequest{Page: -1, URL: "not-a-url"})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	var appErr *apperrors.Error
	require.True(t, apperrors.As(err, &appErr))
	fields, ok := appErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, fields, "query")
	assert.Contains(t, fields, "page")
	assert.Contains(t, fields, "url")
}
