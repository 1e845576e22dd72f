// Package handler provides HTTP request handlers for the application.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yt-automation/shorts-dashboard-go/internal/automation"
	"github.com/yt-automation/shorts-dashboard-go/internal/models"
	"github.com/yt-automation/shorts-dashboard-go/internal/orchestrator"
	"github.com/yt-automation/shorts-dashboard-go/internal/service"
	"github.com/yt-automation/shorts-dashboard-go/pkg/logger"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
	defaultVideoLimit   = 20
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

// jsonFieldName reports binding failures under the JSON key clients send.
func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// handleError maps service, script and orchestrator errors onto the JSON
// envelope. fallback replaces the message of internal failures when set.
func handleError(c *gin.Context, err error, fallback string) {
	var (
		validationErr *service.ValidationError
		notFoundErr   *service.NotFoundError
		scriptErr     *automation.ScriptError
		parseErr      *automation.ParseError
		processingErr *service.ProcessingError
	)

	switch {
	case errors.As(err, &validationErr):
		logger.Log.Warn("Validation error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusBadRequest, validationErr.Message)

	case errors.As(err, &notFoundErr):
		logger.Log.Warn("Not found",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusNotFound, notFoundErr.Message)

	case errors.Is(err, orchestrator.ErrFunctionNotFound):
		respondError(c, http.StatusNotFound, err.Error())

	case errors.Is(err, orchestrator.ErrInvalidEvent):
		respondError(c, http.StatusBadRequest, err.Error())

	case errors.As(err, &scriptErr):
		logger.Log.Error("Automation script failed",
			zap.Error(err),
			zap.String("verb", scriptErr.Verb),
			zap.Int("exitCode", scriptErr.ExitCode),
			zap.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusInternalServerError, orDefault(fallback, scriptErr.Message))

	case errors.As(err, &parseErr):
		logger.Log.Error("Automation script output unreadable",
			zap.Error(err),
			zap.String("verb", parseErr.Verb),
			zap.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusInternalServerError, orDefault(fallback, parseErr.Error()))

	case errors.As(err, &processingErr):
		logger.Log.Error("Processing error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusInternalServerError, orDefault(fallback, processingErr.Message))

	default:
		logger.Log.Error("Unexpected error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusInternalServerError, orDefault(fallback, "An unexpected error occurred"))
	}
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, models.ErrorResponse{Success: false, Error: message})
}

// relay writes a script reply verbatim.
func relay(c *gin.Context, raw json.RawMessage) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// bindJSON decodes and validates the request body, answering 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		rejectPayload(c, err)
		return false
	}
	return true
}

func rejectPayload(c *gin.Context, err error) {
	logger.Log.Warn("Invalid request payload",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)
	respondError(c, http.StatusBadRequest, bindingMessage(err))
}

// bindingMessage turns the first failed binding rule into a client-facing
// message. Decode errors keep the generic prefix.
func bindingMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Invalid request payload: " + err.Error()
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("Invalid %s. Use %s", fe.Field(), quotedChoices(strings.Fields(fe.Param())))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return "invalid " + fe.Field()
	}
}

// quotedChoices renders ["a" "b" "c"] as 'a', 'b' or 'c'.
func quotedChoices(choices []string) string {
	quoted := make([]string, len(choices))
	for i, choice := range choices {
		quoted[i] = "'" + choice + "'"
	}
	if len(quoted) < 2 {
		return strings.Join(quoted, "")
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " or " + quoted[len(quoted)-1]
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func orDefault(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}
