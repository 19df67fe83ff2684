package handler

import (
	"net/http"

	"github.com/a-h/templ"
)

type templResponse struct {
	component templ.Component
	status    int
}

func (t templResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(t.status)
	return t.component.Render(r.Context(), w)
}

// Templ renders component as an HTML page with status.
func Templ(component templ.Component, status int) Response {
	if status == 0 {
		status = http.StatusOK
	}
	return templResponse{component: component, status: status}
}
