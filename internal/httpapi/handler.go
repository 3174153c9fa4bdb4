// Package httpapi exposes the student and admin surfaces over gin.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"classmark/internal/admission"
	"classmark/internal/auth"
	"classmark/internal/classroom"
	"classmark/internal/config"
	"classmark/internal/queue"
	"classmark/internal/report"
)

// Ledger is the read side of the attendance store the handlers need.
// *admission.Repository implements it.
type Ledger interface {
	RecordsForClass(ctx context.Context, class string) ([]admission.Record, error)
	RecordsForStudent(ctx context.Context, class, roll string) ([]admission.Record, error)
}

// Handler bundles the services behind the HTTP routes.
type Handler struct {
	cfg     config.App
	classes *classroom.Service
	admit   *admission.Service
	ledger  Ledger
	jobs    queue.Queue
}

// New creates a handler.
func New(cfg config.App, classes *classroom.Service, admit *admission.Service, ledger Ledger, jobs queue.Queue) *Handler {
	return &Handler{cfg: cfg, classes: classes, admit: admit, ledger: ledger, jobs: jobs}
}

// Register mounts all routes on r.
func (h *Handler) Register(r *gin.Engine) {
	v1 := r.Group("/v1")

	// Student surface; no auth, rate-limited at the engine level.
	v1.GET("/classes/open", h.OpenClasses)
	v1.POST("/attendance", h.SubmitAttendance)
	v1.GET("/attendance", h.StudentRecord)

	v1.POST("/admin/login", h.AdminLogin)

	admin := v1.Group("/admin", auth.AdminAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
	admin.GET("/classes", h.ListClasses)
	admin.POST("/classes", h.CreateClass)
	admin.DELETE("/classes/:name", h.DeleteClass)
	admin.POST("/classes/:name/open", h.OpenClass)
	admin.POST("/classes/:name/close", h.CloseClass)
	admin.PUT("/classes/:name/settings", h.UpdateSettings)
	admin.GET("/classes/:name/matrix", h.MatrixJSON)
	admin.GET("/classes/:name/matrix.csv", h.MatrixCSV)
	admin.POST("/classes/:name/export", h.TriggerExport)
}

// ---------- Student surface ----------

// OpenClasses lists the classes currently accepting submissions. Codes and
// limits stay server-side.
func (h *Handler) OpenClasses(c *gin.Context) {
	classes, err := h.classes.ListOpen(c.Request.Context())
	if err != nil {
		storeFailure(c, err)
		return
	}
	names := make([]string, 0, len(classes))
	for _, cls := range classes {
		names = append(names, cls.Name)
	}
	c.JSON(http.StatusOK, gin.H{"classes": names})
}

// SubmitAttendance runs one admission attempt.
func (h *Handler) SubmitAttendance(c *gin.Context) {
	var sub admission.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.admit.Submit(c.Request.Context(), sub)
	if err != nil {
		if admission.IsRejection(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		storeFailure(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "attendance submitted",
		"record":  rec,
	})
}

// StudentRecord returns one student's own presence matrix.
func (h *Handler) StudentRecord(c *gin.Context) {
	class := strings.TrimSpace(c.Query("class"))
	roll := strings.TrimSpace(c.Query("roll"))
	if class == "" || roll == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "class and roll query params required"})
		return
	}
	records, err := h.ledger.RecordsForStudent(c.Request.Context(), class, roll)
	if err != nil {
		storeFailure(c, err)
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no attendance found for this roll number"})
		return
	}
	c.JSON(http.StatusOK, report.Build(class, records))
}

// ---------- Admin surface ----------

// AdminLogin compares plaintext credentials and issues a session token.
func (h *Handler) AdminLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Username != h.cfg.AdminUsername || req.Password != h.cfg.AdminPassword {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, exp, err := auth.IssueSession(req.Username, "admin", h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.SessionTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": exp.Unix()})
}

// ListClasses returns the full registry, settings included.
func (h *Handler) ListClasses(c *gin.Context) {
	classes, err := h.classes.List(c.Request.Context())
	if err != nil {
		storeFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"classes": classes})
}

// CreateClass registers a new class with default settings.
func (h *Handler) CreateClass(c *gin.Context) {
	var req struct {
		ClassName string `json:"class_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cls, err := h.classes.Create(c.Request.Context(), req.ClassName)
	if err != nil {
		registryFailure(c, err)
		return
	}
	c.JSON(http.StatusCreated, cls)
}

// DeleteClass removes a class and all rows keyed to it.
func (h *Handler) DeleteClass(c *gin.Context) {
	if err := h.classes.Delete(c.Request.Context(), c.Param("name")); err != nil {
		registryFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "class deleted"})
}

// OpenClass opens a class for submissions; rejected while another is open.
func (h *Handler) OpenClass(c *gin.Context) {
	if err := h.classes.SetOpen(c.Request.Context(), c.Param("name"), true); err != nil {
		registryFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "attendance open"})
}

// CloseClass closes a class. Unconditional.
func (h *Handler) CloseClass(c *gin.Context) {
	if err := h.classes.SetOpen(c.Request.Context(), c.Param("name"), false); err != nil {
		registryFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "attendance closed"})
}

// UpdateSettings overwrites the code and daily limit of a class.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req struct {
		Code       string `json:"code" binding:"required"`
		DailyLimit int    `json:"daily_limit" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.classes.UpdateSettings(c.Request.Context(), c.Param("name"), req.Code, req.DailyLimit); err != nil {
		registryFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "settings updated"})
}

// MatrixJSON renders the class presence matrix.
func (h *Handler) MatrixJSON(c *gin.Context) {
	matrix, err := h.buildMatrix(c)
	if err != nil {
		return // response already written
	}
	c.JSON(http.StatusOK, matrix)
}

// MatrixCSV serves the matrix as a CSV download.
func (h *Handler) MatrixCSV(c *gin.Context) {
	matrix, err := h.buildMatrix(c)
	if err != nil {
		return
	}
	data, err := matrix.CSV()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	filename := fmt.Sprintf("%s_matrix.csv", matrix.ClassName)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// TriggerExport queues a push of today's matrix snapshot to the file host.
func (h *Handler) TriggerExport(c *gin.Context) {
	name := c.Param("name")
	if _, err := h.classes.Get(c.Request.Context(), name); err != nil {
		registryFailure(c, err)
		return
	}
	job := queue.ExportJob{ClassName: name, Day: h.admit.Today()}
	if err := h.jobs.Publish(c.Request.Context(), job); err != nil {
		log.Printf("export publish failed: %v", err)
		storeFailure(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "export queued", "day": job.Day})
}

func (h *Handler) buildMatrix(c *gin.Context) (report.Matrix, error) {
	name := c.Param("name")
	if _, err := h.classes.Get(c.Request.Context(), name); err != nil {
		registryFailure(c, err)
		return report.Matrix{}, err
	}
	records, err := h.ledger.RecordsForClass(c.Request.Context(), name)
	if err != nil {
		storeFailure(c, err)
		return report.Matrix{}, err
	}
	return report.Build(name, records), nil
}

// ---------- error mapping ----------

// registryFailure maps classroom conflicts to their status codes and treats
// everything else as a store failure.
func registryFailure(c *gin.Context, err error) {
	switch {
	case errors.Is(err, classroom.ErrClassNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, classroom.ErrClassExists), errors.Is(err, classroom.ErrAnotherClassOpen):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, classroom.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		storeFailure(c, err)
	}
}

// storeFailure reports a transient infrastructure fault, distinct from the
// validation rejections that are normal outcomes.
func storeFailure(c *gin.Context, err error) {
	log.Printf("store failure: %v", err)
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable, retry"})
}
