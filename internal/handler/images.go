package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"catalog-go/internal/assets"
)

// ImageHandler 图片代理接口
// 从对象存储取图并回源给客户端，交给CDN或浏览器长时间缓存
type ImageHandler struct {
	store *assets.Store
}

func NewImageHandler(store *assets.Store) *ImageHandler {
	return &ImageHandler{store: store}
}

// ServeImage 处理 /api/images/{key}
func (h *ImageHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.store == nil {
		http.Error(w, "Image storage not configured", http.StatusServiceUnavailable)
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/api/images/")
	if key == "" || strings.Contains(key, "..") {
		http.Error(w, "Invalid image key", http.StatusBadRequest)
		return
	}

	// HEAD请求只回元数据，不拉取对象本体
	if r.Method == http.MethodHead {
		meta, err := h.store.Head(r.Context(), key)
		if err != nil {
			h.writeStorageError(w, key, err)
			return
		}
		h.writeMeta(w, meta)
		w.WriteHeader(http.StatusOK)
		return
	}

	body, meta, err := h.store.Fetch(r.Context(), key)
	if err != nil {
		h.writeStorageError(w, key, err)
		return
	}
	defer body.Close()

	h.writeMeta(w, meta)
	if _, err := io.Copy(w, body); err != nil {
		log.Printf("[Images] 传输图片失败 %s: %v", key, err)
	}
}

func (h *ImageHandler) writeMeta(w http.ResponseWriter, meta assets.ObjectMeta) {
	if meta.ContentType != "" {
		w.Header().Set("Content-Type", meta.ContentType)
	}
	if meta.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	}
	// 图片内容不可变，客户端可以长期缓存
	w.Header().Set("Cache-Control", "public, max-age=86400")
}

func (h *ImageHandler) writeStorageError(w http.ResponseWriter, key string, err error) {
	if errors.Is(err, assets.ErrObjectNotFound) {
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	}
	log.Printf("[Images] 对象存储访问失败 %s: %v", key, err)
	http.Error(w, "Storage error", http.StatusBadGateway)
}
