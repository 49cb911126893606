package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tutorcore/pkg/domain"
)

// APIError is the body of every error response.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

const (
	codeValidation = "validation"
	codeDuplicate  = "duplicate"
	codeNotFound   = "not_found"
	codeBadRequest = "bad_request"
	codeInternal   = "internal"
)

var errBadID = errors.New("id must be a positive integer")

func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// respondCatalogError maps a catalog failure onto a status code. Storage
// failures are reported generically and attached to the gin context.
func respondCatalogError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		msg, _ := domain.UserMessage(err)
		respondError(c, http.StatusUnprocessableEntity, codeValidation, msg)
	case domain.IsDuplicate(err):
		msg, _ := domain.UserMessage(err)
		respondError(c, http.StatusConflict, codeDuplicate, msg)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, codeNotFound, err.Error())
	default:
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, codeBadRequest, errBadID.Error())
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, codeBadRequest, "malformed request body")
		return false
	}
	return true
}

type handler struct {
	students StudentService
	themes   ThemeService
}

type studentRequest struct {
	Text string `json:"text"`
}

type themeRequest struct {
	Grade string `json:"grade"`
	Name  string `json:"name"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type gradeRequest struct {
	Grade string `json:"grade"`
}

type dictationRequest struct {
	Text string `json:"text"`
}

func (h *handler) listStudents(c *gin.Context) {
	out, err := h.students.ListStudents(c.Request.Context())
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) listStudentThemes(c *gin.Context) {
	out, err := h.students.ListStudentThemeViews(c.Request.Context())
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) getStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	out, err := h.students.GetStudent(c.Request.Context(), id)
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) addStudent(c *gin.Context) {
	var req studentRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.students.AddStudent(c.Request.Context(), req.Text)
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *handler) deleteStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.students.DeleteStudent(c.Request.Context(), id); err != nil {
		respondCatalogError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) validateGrade(c *gin.Context) {
	var req gradeRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.themes.ValidateGradeLabel(req.Grade); err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grade": req.Grade, "valid": true})
}

func (h *handler) listGradeThemes(c *gin.Context) {
	out, err := h.themes.ListGradeThemeViews(c.Request.Context())
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) getTheme(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	out, err := h.themes.GetTheme(c.Request.Context(), id)
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) addTheme(c *gin.Context) {
	var req themeRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.themes.AddTheme(c.Request.Context(), req.Grade, req.Name)
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *handler) renameTheme(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req renameRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.themes.RenameTheme(c.Request.Context(), id, req.Name)
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) deleteTheme(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.themes.DeleteTheme(c.Request.Context(), id); err != nil {
		respondCatalogError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) listDictations(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	out, err := h.themes.ListDictations(c.Request.Context(), id)
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) addDictation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dictationRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.themes.AddDictation(c.Request.Context(), id, req.Text)
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}
