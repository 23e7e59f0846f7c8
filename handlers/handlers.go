package handlers

import (
	"errors"
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/closings_backend/config"
	"bitbucket.org/mmdatafocus/closings_backend/store"
	"bitbucket.org/mmdatafocus/closings_backend/utils"
	"bitbucket.org/mmdatafocus/closings_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

func init() {
	// "isodate" rejects malformed wire dates at bind time, before any
	// handler parses them.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := time.Parse("2006-01-02", fl.Field().String())
			return err == nil
		})
	}
}

// Handler exposes the workflow engine over REST. It owns no business rules:
// payload decode, date parsing and error-to-status mapping only.
type Handler struct {
	engine *workflow.Engine
	stores *store.Stores
	cfg    *config.Config
	logger *logrus.Logger
}

func New(engine *workflow.Engine, stores *store.Stores, cfg *config.Config, logger *logrus.Logger) *Handler {
	return &Handler{engine: engine, stores: stores, cfg: cfg, logger: logger}
}

func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/closings", h.UpsertClosing)
	api.GET("/closings/history", h.ListHistory)
	api.GET("/closings/:id", h.GetClosing)
	api.PATCH("/closings/:id", h.PatchClosing)
	api.POST("/closings/:id/unlock", h.UnlockClosing)
	api.POST("/closings/:id/verify", h.VerifyClosing)
	api.POST("/budgets", h.UpsertBudget)
	api.POST("/budgets/lock", h.LockBudget)
	api.GET("/budgets", h.GetBudget)
	api.GET("/reports/weekly-closings.xlsx", h.WeeklyReport)
}

func (h *Handler) writeError(c *gin.Context, module, funcName string, err error) {
	status := utils.HTTPStatus(err)
	if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
		config.LogError(h.logger, module, funcName, "request failed", nil, err)
	}
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		c.JSON(status, gin.H{"error": appErr.Message, "kind": string(appErr.Kind)})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// parseDate accepts the wire date format used everywhere in the API.
func parseDate(value string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, utils.ValidationError("invalid date %q, expected YYYY-MM-DD", value)
	}
	return d, nil
}
