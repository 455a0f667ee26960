package middleware

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"catalog-go/internal/compression"
)

// compressibleTypes 只压缩文本类响应，图片本体不重复压缩
var compressibleTypes = map[string]bool{
	"application/json": true,
	"text/plain":       true,
	"text/html":        true,
}

type compressResponseWriter struct {
	http.ResponseWriter
	compressor  compression.Compressor
	encoding    compression.CompressionType
	writer      io.WriteCloser
	wroteHeader bool
	skip        bool
}

func (cw *compressResponseWriter) WriteHeader(statusCode int) {
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true

	contentType, _, err := mime.ParseMediaType(cw.Header().Get("Content-Type"))
	if err != nil || !compressibleTypes[contentType] ||
		cw.Header().Get("Content-Encoding") != "" ||
		statusCode == http.StatusNoContent {
		cw.skip = true
		cw.ResponseWriter.WriteHeader(statusCode)
		return
	}

	cw.Header().Set("Content-Encoding", string(cw.encoding))
	cw.Header().Del("Content-Length")
	cw.Header().Add("Vary", "Accept-Encoding")
	cw.ResponseWriter.WriteHeader(statusCode)
}

func (cw *compressResponseWriter) Write(b []byte) (int, error) {
	if !cw.wroteHeader {
		if cw.Header().Get("Content-Type") == "" {
			cw.Header().Set("Content-Type", http.DetectContentType(b))
		}
		cw.WriteHeader(http.StatusOK)
	}

	if cw.skip {
		return cw.ResponseWriter.Write(b)
	}

	if cw.writer == nil {
		writer, err := cw.compressor.Compress(cw.ResponseWriter)
		if err != nil {
			cw.skip = true
			return cw.ResponseWriter.Write(b)
		}
		cw.writer = writer
	}
	return cw.writer.Write(b)
}

func (cw *compressResponseWriter) close() {
	if cw.writer != nil {
		cw.writer.Close()
	}
}

// CompressionMiddleware 按 Accept-Encoding 压缩响应
func CompressionMiddleware(manager compression.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			compressor, encoding := manager.SelectCompressor(r.Header.Get("Accept-Encoding"))
			if compressor == nil {
				next.ServeHTTP(w, r)
				return
			}

			// Range请求不做压缩，长度语义会被破坏
			if strings.TrimSpace(r.Header.Get("Range")) != "" {
				next.ServeHTTP(w, r)
				return
			}

			cw := &compressResponseWriter{
				ResponseWriter: w,
				compressor:     compressor,
				encoding:       encoding,
			}
			defer cw.close()

			next.ServeHTTP(cw, r)
		})
	}
}
