package handler

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/fakhrymubarak/weather-dashboard/internal/model"
	"github.com/fakhrymubarak/weather-dashboard/internal/service"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const iconURLFormat = "https://openweathermap.org/img/wn/%s@2x.png"

// HealthCheck reports whether an optional dependency is reachable.
type HealthCheck func(ctx context.Context) error

type DashboardHandler struct {
	Service     service.DashboardServiceInterface
	HealthCheck HealthCheck
	logger      *zap.SugaredLogger
	templates   *template.Template
}

// NewDashboardHandler parses the embedded page templates. Times on the page
// are shown in loc.
func NewDashboardHandler(svc service.DashboardServiceInterface, loc *time.Location, logger *zap.SugaredLogger) *DashboardHandler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	funcs := template.FuncMap{
		"clock": func(unix int64) string {
			return time.Unix(unix, 0).In(loc).Format("15:04")
		},
		"iconURL": func(icon string) string {
			if icon == "" {
				return ""
			}
			return fmt.Sprintf(iconURLFormat, icon)
		},
	}
	return &DashboardHandler{
		Service:   svc,
		logger:    logger,
		templates: template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")),
	}
}

func (h *DashboardHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Errorw("could not encode json", "error", err)
	}
}

func (h *DashboardHandler) methodNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Allow", http.MethodGet)
	h.writeJSONResponse(w, http.StatusMethodNotAllowed, model.ErrorResponse("Error", "Method not allowed"))
}

// HandleHome renders the dashboard page for ?city=.
func (h *DashboardHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w)
		return
	}

	dash := h.Service.BuildDashboard(r.Context(), r.URL.Query().Get("city"))

	// Render into a buffer so a template error can still become a 500.
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, "home.html", dash); err != nil {
		h.logger.Errorw("Error executing template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warnw("Response write error", "error", err)
	}
}

// HandleDashboardAPI returns the dashboard context as JSON.
func (h *DashboardHandler) HandleDashboardAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w)
		return
	}

	dash := h.Service.BuildDashboard(r.Context(), r.URL.Query().Get("city"))
	h.writeJSONResponse(w, http.StatusOK, model.Response{
		Data:    dash,
		Message: "Success",
	})
}

// HandleHealth handles health check endpoint
func (h *DashboardHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if h.HealthCheck != nil {
		if err := h.HealthCheck(r.Context()); err != nil {
			h.logger.Warnw("Health check failed", "error", err)
			status = "degraded"
		}
	}
	h.writeJSONResponse(w, http.StatusOK, map[string]string{"status": status})
}
