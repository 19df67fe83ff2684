package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/agencyhub/handler"
	"github.com/dmitrymomot/agencyhub/pkg/logger"
	"github.com/dmitrymomot/agencyhub/pkg/validator"
)

var errPlanMissing = errors.New("plan missing")

type greetRequest struct {
	Name string `json:"name"`
}

func bindName(r *http.Request, v any) error {
	name := r.URL.Query().Get("name")
	if name == "" {
		return handler.ErrBadRequest
	}
	v.(*greetRequest).Name = name
	return nil
}

func decode(t *testing.T, body io.Reader) handler.JSONResponse {
	t.Helper()
	var got handler.JSONResponse
	require.NoError(t, json.NewDecoder(body).Decode(&got))
	return got
}

func TestWrap(t *testing.T) {
	t.Parallel()

	errHandler := handler.NewErrorHandler(logger.Discard(), handler.ErrorRule{Target: errPlanMissing, HTTP: handler.ErrNotFound})

	h := handler.Wrap(
		handler.HandlerFunc[greetRequest](func(ctx handler.Context, req greetRequest) handler.Response {
			switch req.Name {
			case "missing":
				return handler.Error(errPlanMissing)
			case "invalid":
				return handler.Error(validator.Apply(validator.ValidEmail("email", "nope")))
			case "boom":
				return handler.Error(errors.New("db down"))
			case "nil":
				return nil
			}
			return handler.JSON(map[string]string{"hello": req.Name}, handler.WithJSONStatus(http.StatusCreated))
		}),
		handler.WithBinders[greetRequest](bindName),
		handler.WithErrorHandler[greetRequest](errHandler),
	)

	tests := []struct {
		name   string
		query  string
		status int
		code   string
	}{
		{name: "ok", query: "?name=ana", status: http.StatusCreated},
		{name: "binder error", query: "", status: http.StatusBadRequest, code: "bad_request"},
		{name: "mapped domain error", query: "?name=missing", status: http.StatusNotFound, code: "not_found"},
		{name: "validation error", query: "?name=invalid", status: http.StatusUnprocessableEntity, code: "validation_error"},
		{name: "unknown error", query: "?name=boom", status: http.StatusInternalServerError, code: "internal_server_error"},
		{name: "nil response", query: "?name=nil", status: http.StatusInternalServerError, code: "internal_server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
			got := decode(t, w.Body)
			if tt.code == "" {
				assert.Nil(t, got.Error)
				assert.Equal(t, map[string]any{"hello": "ana"}, got.Data)
				return
			}
			require.NotNil(t, got.Error)
			assert.Equal(t, tt.code, got.Error.Code)
		})
	}
}

func TestClassifyValidationDetails(t *testing.T) {
	t.Parallel()

	err := validator.Apply(
		validator.RequiredString("agency_name", ""),
		validator.ValidURL("success_url", "ftp://example.com"),
	)
	info := handler.Classify(err)
	assert.Equal(t, http.StatusUnprocessableEntity, info.StatusCode)
	require.Len(t, info.Details, 2)
	assert.Equal(t, "agency_name", info.Details[0].Field)
	assert.Equal(t, "validation.url", info.Details[1].Key)
}

func TestDecorators(t *testing.T) {
	t.Parallel()

	var order []string
	trace := func(name string) handler.Decorator[struct{}] {
		return func(next handler.HandlerFunc[struct{}]) handler.HandlerFunc[struct{}] {
			return func(ctx handler.Context, req struct{}) handler.Response {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}

	h := handler.Wrap(
		handler.HandlerFunc[struct{}](func(handler.Context, struct{}) handler.Response {
			order = append(order, "handler")
			return handler.JSON(nil)
		}),
		handler.WithDecorators(trace("outer"), trace("inner")),
	)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestTempl(t *testing.T) {
	t.Parallel()

	page := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<h1>"+templ.EscapeString("<Billing>")+"</h1>")
		return err
	})

	w := httptest.NewRecorder()
	require.NoError(t, handler.Templ(page, http.StatusPaymentRequired).Render(w, httptest.NewRequest(http.MethodGet, "/", nil)))

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(w.Body.String(), "&lt;Billing&gt;"))
}

func TestJSONWithoutEnvelope(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	resp := handler.JSON(map[string]string{"url": "https://pay.example/s"}, handler.WithoutEnvelope(), handler.WithJSONStatus(http.StatusCreated))
	require.NoError(t, resp.Render(w, httptest.NewRequest(http.MethodGet, "/", nil)))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"url":"https://pay.example/s"}`, w.Body.String())
}
