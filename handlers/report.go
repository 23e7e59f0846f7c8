package handlers

import (
	"bitbucket.org/mmdatafocus/closings_backend/reports"
	"bitbucket.org/mmdatafocus/closings_backend/utils"
	"github.com/gin-gonic/gin"
)

// WeeklyReport streams the store-week workbook. The tenant comes from the
// auth context, falling back to the tenant_id query parameter.
func (h *Handler) WeeklyReport(c *gin.Context) {
	storeId := c.Query("store_id")
	weekStr := c.Query("week_start")
	if storeId == "" || weekStr == "" {
		h.writeError(c, "handlers", "WeeklyReport", utils.ValidationError("store_id and week_start query parameters are required"))
		return
	}
	week, err := parseDate(weekStr)
	if err != nil {
		h.writeError(c, "handlers", "WeeklyReport", err)
		return
	}
	tenant, ok := utils.GetTenantIdFromContext(c.Request.Context())
	if !ok || tenant == "" {
		tenant = c.Query("tenant_id")
	}
	if tenant == "" {
		h.writeError(c, "handlers", "WeeklyReport", utils.ValidationError("tenant_id is required"))
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+reports.WeeklyReportFilename(storeId, week))
	if err := reports.WeeklyWorkbook(c.Request.Context(), h.stores, tenant, storeId, week, c.Writer); err != nil {
		h.writeError(c, "handlers", "WeeklyReport", err)
	}
}
