package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/zhouzirui/job-voice/backend/internal/apperr"
)

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// RespondDomainError 按错误类型映射 HTTP 状态码
func RespondDomainError(w http.ResponseWriter, err error) {
	errType := apperr.TypeOf(err)
	body := map[string]any{
		"error":      apperr.Message(err),
		"error_type": string(errType),
	}
	if missing := apperr.MissingFields(err); len(missing) > 0 {
		body["missing_fields"] = missing
	}
	status := StatusFor(errType)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.String("error_type", string(errType)), zap.Error(err))
	}
	RespondJSON(w, status, body)
}

func StatusFor(errType apperr.ErrorType) int {
	switch errType {
	case apperr.ErrTypeNotFound:
		return http.StatusNotFound
	case apperr.ErrTypeValidation:
		return http.StatusUnprocessableEntity
	case apperr.ErrTypeInvalidInput, apperr.ErrTypeUnsupportedMethod:
		return http.StatusBadRequest
	case apperr.ErrTypeAlreadyCompleted:
		return http.StatusConflict
	case apperr.ErrTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
