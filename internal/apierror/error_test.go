package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	base := BadRequest("n must be positive")
	withDetail := base.WithDetail("param", "n")

	assert.Nil(t, base.Details)
	assert.Equal(t, http.StatusBadRequest, withDetail.StatusCode())

	var apiErr Error
	require.True(t, errors.As(fmt.Errorf("parse: %w", withDetail), &apiErr))
	assert.Equal(t, "n must be positive", apiErr.Error())

	b, err := json.Marshal(withDetail)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"n must be positive","details":{"param":"n"},"http":{"code":400,"message":"Bad Request"}}`, string(b))
}
