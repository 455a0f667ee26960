package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/woodchen-ink/go-web-utils/iputil"

	"catalog-go/internal/metrics"
)

// statusRecorder 记录响应状态码和写出字节数
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (sr *statusRecorder) WriteHeader(statusCode int) {
	if sr.status == 0 {
		sr.status = statusCode
	}
	sr.ResponseWriter.WriteHeader(statusCode)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += int64(n)
	return n, err
}

// MetricsMiddleware 记录请求指标并打印访问日志
func MetricsMiddleware(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			collector.BeginRequest()
			defer collector.EndRequest()

			recorder := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(recorder, r)

			if recorder.status == 0 {
				recorder.status = http.StatusOK
			}

			latency := time.Since(start)
			collector.RecordRequest(r.URL.Path, recorder.status, latency, recorder.bytes)

			log.Printf("[%s] %s %s -> %d [%v]",
				iputil.GetClientIP(r), r.Method, r.URL.Path, recorder.status, latency)
		})
	}
}
