package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"web3-talent-scout/internal/common"
	"web3-talent-scout/internal/service"

	"go.uber.org/zap"
)

// 单次分析请求的上限，盖住 GitHub 抓取 + Gemini 生成
const analyzeTimeout = 60 * time.Second

// Handler 持有 HTTP 层需要的全部依赖
type Handler struct {
	svc    *service.AnalysisService
	logger *zap.Logger
}

func NewHandler(svc *service.AnalysisService, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type analyzeRequest struct {
	ProfileURL string `json:"profileUrl"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Analyze POST /analyze
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), analyzeTimeout)
	defer cancel()

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, common.WrapError(common.ErrCodeInvalidInput, "请求体不是合法 JSON", err))
		return
	}

	result, err := h.svc.Analyze(ctx, req.ProfileURL, clientID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	if result.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.RateRemaining))

	h.writeJSON(w, http.StatusOK, result)
}

// Latest GET /analysis/latest/{username}
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	record, err := h.svc.Latest(r.Context(), strings.ToLower(r.PathValue("username")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

// ByID GET /analysis/{id}
func (h *Handler) ByID(w http.ResponseWriter, r *http.Request) {
	record, err := h.svc.ByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

// History GET /history?limit=20
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, common.NewError(common.ErrCodeInvalidInput, "limit 必须是非负整数"))
			return
		}
		limit = parsed
	}

	records, err := h.svc.History(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, records)
}

// Health GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("⚠️ 响应写入失败", zap.Error(err))
	}
}

// writeError 把 AppError 错误码映射到 HTTP 状态码
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := common.CodeOf(err)
	status := http.StatusInternalServerError

	switch code {
	case common.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case common.ErrCodeNotFound:
		status = http.StatusNotFound
	case common.ErrCodeRateLimited:
		status = http.StatusTooManyRequests
		if appErr := common.AsAppError(err); appErr != nil && !appErr.ResetAt.IsZero() {
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(appErr.ResetAt.Unix(), 10))
			retryAfter := int(time.Until(appErr.ResetAt).Seconds()) + 1
			if retryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			}
		}
	case common.ErrCodeUpstreamRateLimited, common.ErrCodeUpstream:
		status = http.StatusServiceUnavailable
	}

	message := err.Error()
	if appErr := common.AsAppError(err); appErr != nil {
		message = appErr.Message
	}

	if status >= 500 {
		h.logger.Error("💥 请求处理失败", zap.String("code", code), zap.Error(err))
	}
	h.writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// clientID 取限流身份：优先 X-Forwarded-For 的第一跳，否则 RemoteAddr 的 host 部分
func clientID(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return strings.ToLower(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.ToLower(r.RemoteAddr)
	}
	return strings.ToLower(host)
}
