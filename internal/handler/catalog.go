package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"catalog-go/internal/service"
	"catalog-go/internal/upstream"
)

// CatalogHandler 目录接口
type CatalogHandler struct {
	catalog *service.CatalogService
}

func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// People 人物接口：/api/people 列表，/api/people/{id} 详情
func (h *CatalogHandler) People(w http.ResponseWriter, r *http.Request) {
	h.resource(w, r, "/api/people",
		func(ctx context.Context, id int) (any, error) {
			return h.catalog.GetCharacter(ctx, id)
		},
		func(ctx context.Context, page int, search string) (any, error) {
			return h.catalog.ListCharacters(ctx, page, search)
		})
}

// Planets 星球接口
func (h *CatalogHandler) Planets(w http.ResponseWriter, r *http.Request) {
	h.resource(w, r, "/api/planets",
		func(ctx context.Context, id int) (any, error) {
			return h.catalog.GetPlanet(ctx, id)
		},
		func(ctx context.Context, page int, search string) (any, error) {
			return h.catalog.ListPlanets(ctx, page, search)
		})
}

// Species 物种接口
func (h *CatalogHandler) Species(w http.ResponseWriter, r *http.Request) {
	h.resource(w, r, "/api/species",
		func(ctx context.Context, id int) (any, error) {
			return h.catalog.GetSpecies(ctx, id)
		},
		func(ctx context.Context, page int, search string) (any, error) {
			return h.catalog.ListSpecies(ctx, page, search)
		})
}

// resource 统一处理列表和详情两种路径
func (h *CatalogHandler) resource(w http.ResponseWriter, r *http.Request, prefix string,
	getOne func(context.Context, int) (any, error),
	getList func(context.Context, int, string) (any, error)) {

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if rest == "" {
		h.list(w, r, getList)
		return
	}

	id, err := strconv.Atoi(rest)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid resource id", http.StatusBadRequest)
		return
	}

	result, err := getOne(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request,
	getList func(context.Context, int, string) (any, error)) {

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid page number", http.StatusBadRequest)
			return
		}
		page = parsed
	}
	search := r.URL.Query().Get("search")

	result, err := getList(r.Context(), page, search)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeError 上游错误到HTTP状态码的映射
// 404：资源不存在；502：上游不可用或返回异常
func (h *CatalogHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if upstream.IsNotFound(err) {
		http.Error(w, "Resource not found", http.StatusNotFound)
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// 客户端断开或超时
		http.Error(w, "Request timeout", http.StatusGatewayTimeout)
		return
	}

	log.Printf("[Catalog] 上游请求失败 %s: %v", r.URL.Path, err)
	http.Error(w, "Upstream error", http.StatusBadGateway)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[Handler] 响应序列化失败: %v", err)
	}
}
