package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/raksha360/hospital-portal/internal/middleware"
	"github.com/raksha360/hospital-portal/internal/model"
	"github.com/raksha360/hospital-portal/internal/service"
)

// TokenIssuer signs access tokens for a hospital.
type TokenIssuer interface {
	Issue(hospitalID uint64) (string, error)
}

type AuthHandler struct {
	svc    service.HospitalServicer
	tokens TokenIssuer
}

func NewAuthHandler(svc service.HospitalServicer, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{svc: svc, tokens: tokens}
}

// Login takes an OAuth2 password form: username is the hospital email.
func (h *AuthHandler) Login(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	var missing []fieldError
	if email == "" {
		missing = append(missing, bodyField("username", "field required"))
	}
	if password == "" {
		missing = append(missing, bodyField("password", "field required"))
	}
	if len(missing) > 0 {
		unprocessable(c, missing...)
		return
	}
	hosp, err := h.svc.Authenticate(c.Request.Context(), email, password)
	if err != nil {
		writeError(c, err)
		return
	}
	token, err := h.tokens.Issue(hosp.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"hospital_id":  hosp.ID,
	})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	City     string `json:"city"`
	Password string `json:"password"`
}

// Register creates the account. It does not log the hospital in; the portal
// follows up with a login.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		unprocessable(c, fieldError{Loc: []string{"body"}, Msg: "invalid JSON body", Type: "value_error.jsondecode"})
		return
	}
	var bad []fieldError
	if strings.TrimSpace(req.Name) == "" {
		bad = append(bad, bodyField("name", "field required"))
	}
	if at := strings.Index(req.Email, "@"); at <= 0 || at == len(req.Email)-1 {
		bad = append(bad, bodyField("email", "value is not a valid email address"))
	}
	if len(req.Password) < 6 {
		bad = append(bad, bodyField("password", "ensure this value has at least 6 characters"))
	}
	if len(bad) > 0 {
		unprocessable(c, bad...)
		return
	}
	hosp := &model.Hospital{
		Name:  strings.TrimSpace(req.Name),
		Email: req.Email,
		City:  strings.TrimSpace(req.City),
	}
	if err := h.svc.Register(c.Request.Context(), hosp, req.Password); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, hosp)
}

type HospitalHandler struct {
	svc service.HospitalServicer
}

func NewHospitalHandler(svc service.HospitalServicer) *HospitalHandler {
	return &HospitalHandler{svc: svc}
}

func (h *HospitalHandler) Me(c *gin.Context) {
	hosp, err := h.svc.Hospital(c.Request.Context(), middleware.HospitalID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, hosp)
}

// Get serves /hospital/{id}; a hospital can only read itself.
func (h *HospitalHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		unprocessable(c, fieldError{Loc: []string{"path", "id"}, Msg: "value is not a valid integer", Type: "type_error.integer"})
		return
	}
	if id != middleware.HospitalID(c) {
		detail(c, http.StatusForbidden, "Not allowed")
		return
	}
	hosp, err := h.svc.Hospital(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hospital": hosp})
}
