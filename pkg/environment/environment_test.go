package environment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/agencyhub/pkg/environment"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := map[string]environment.Environment{
		"production": environment.Production,
		"PROD":       environment.Production,
		" stage ":    environment.Staging,
		"staging":    environment.Staging,
		"dev":        environment.Development,
		"":           environment.Development,
		"qa":         environment.Development,
	}
	for in, want := range cases {
		assert.Equal(t, want, environment.Parse(in), "input %q", in)
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var got environment.Environment
	h := environment.Middleware(environment.Staging)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = environment.FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, environment.Staging, got)
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := environment.LoggerExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	attr, ok := extract(environment.WithContext(context.Background(), environment.Production))
	assert.True(t, ok)
	assert.Equal(t, "env", attr.Key)
	assert.Equal(t, "production", attr.Value.String())
}
