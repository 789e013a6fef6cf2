package error

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrors_CodePairs(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		httpCode int
		errCode  int
	}{
		{"unsupported model", UnsupportedModel("openai", "x", []string{"a"}), http.StatusBadRequest, UNSUPPORTED_MODEL},
		{"not configured", NotConfigured("google"), http.StatusBadRequest, NOT_CONFIGURED},
		{"generation in flight", GenerationInFlight("busy"), http.StatusTooManyRequests, GENERATION_IN_FLIGHT},
		{"unknown provider", UnknownProvider("mistral"), http.StatusInternalServerError, UNKNOWN_PROVIDER},
		{"not found", NotFound("chat not found"), http.StatusNotFound, NOT_FOUND},
		{"unauthenticated", Unauthenticated("no token"), http.StatusUnauthorized, UNAUTHENTICATED},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.httpCode, tt.err.HttpCode())
			assert.Equal(t, tt.errCode, tt.err.ErrorCode())
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestUnsupportedModel_DescribesRejectionAndCatalog(t *testing.T) {
	err := UnsupportedModel("openai", "gpt-4o", []string{"gpt-5.2", "gpt-5-mini"})

	assert.Contains(t, err.ErrorDesc(), `"gpt-4o"`)
	assert.Contains(t, err.ErrorDesc(), "gpt-5.2")
	assert.Contains(t, err.ErrorDesc(), "gpt-5-mini")
}

func TestNotConfigured_NamesProvider(t *testing.T) {
	err := NotConfigured("anthropic")

	assert.Contains(t, err.ErrorDesc(), `"anthropic"`)
}

func TestFrom_PassesThroughAndWraps(t *testing.T) {
	domain := NotFound("gone")
	assert.Same(t, domain, From(domain))

	wrapped := From(errors.New("plain failure"))
	require.NotNil(t, wrapped)
	assert.Equal(t, INTERNAL_ERROR, wrapped.ErrorCode())
	assert.Equal(t, "plain failure", wrapped.ErrorDesc())
}

func TestMapHttpStatusToError(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, MapHttpStatusToError(http.StatusNotFound, "x").HttpCode())
	assert.Equal(t, http.StatusUnauthorized, MapHttpStatusToError(http.StatusUnauthorized, "x").HttpCode())
	// 沒列舉到的狀態一律當 500
	assert.Equal(t, http.StatusInternalServerError, MapHttpStatusToError(http.StatusTeapot, "x").HttpCode())
}
