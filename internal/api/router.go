package api

import "net/http"

// NewRouter 注册全部路由
// latest 路由比 {id} 更具体，ServeMux 会优先匹配它
func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /analyze", h.Analyze)
	mux.HandleFunc("GET /analysis/latest/{username}", h.Latest)
	mux.HandleFunc("GET /analysis/{id}", h.ByID)
	mux.HandleFunc("GET /history", h.History)

	return mux
}
