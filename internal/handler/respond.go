package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raksha360/hospital-portal/internal/errs"
)

type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// unprocessable answers 422 with a list-shaped detail, one entry per field.
func unprocessable(c *gin.Context, fields ...fieldError) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": fields})
}

func bodyField(name, msg string) fieldError {
	return fieldError{Loc: []string{"body", name}, Msg: msg, Type: "value_error"}
}

func detail(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"detail": msg})
}

// writeError maps store and validation errors onto HTTP answers.
func writeError(c *gin.Context, err error) {
	var ve *errs.ValidationError
	switch {
	case errors.As(err, &ve):
		unprocessable(c, bodyField(ve.Field, ve.Message))
	case errors.Is(err, errs.ErrTicketNotFound):
		detail(c, http.StatusNotFound, "Ticket not found")
	case errors.Is(err, errs.ErrHospitalNotFound):
		detail(c, http.StatusNotFound, "Hospital not found")
	case errors.Is(err, errs.ErrTicketClosed):
		detail(c, http.StatusConflict, "Ticket is already closed")
	case errors.Is(err, errs.ErrEmailTaken):
		detail(c, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, errs.ErrBadCredentials):
		detail(c, http.StatusUnauthorized, "Incorrect email or password")
	default:
		log.Printf("handler: %s %s: %v", c.Request.Method, c.FullPath(), err)
		detail(c, http.StatusInternalServerError, "Internal server error")
	}
}
