package compression

import (
	"compress/gzip"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// Compressor 压缩器接口
type Compressor interface {
	Compress(w io.Writer) (io.WriteCloser, error)
}

// CompressionType 压缩类型
type CompressionType string

const (
	CompressionGzip   CompressionType = "gzip"
	CompressionBrotli CompressionType = "br"
)

// Config 压缩配置
type Config struct {
	Gzip   CompressorConfig `json:"Gzip"`
	Brotli CompressorConfig `json:"Brotli"`
}

// CompressorConfig 单个压缩器的配置
type CompressorConfig struct {
	Enabled bool `json:"Enabled"`
	Level   int  `json:"Level"`
}

// Manager 根据 Accept-Encoding 选择压缩器
type Manager interface {
	SelectCompressor(acceptEncoding string) (Compressor, CompressionType)
}

type compressionManager struct {
	gzip   Compressor
	brotli Compressor
}

// NewManager 创建新的压缩管理器
func NewManager(config Config) Manager {
	m := &compressionManager{}

	if config.Gzip.Enabled {
		m.gzip = NewGzipCompressor(config.Gzip.Level)
	}
	if config.Brotli.Enabled {
		m.brotli = NewBrotliCompressor(config.Brotli.Level)
	}

	return m
}

// SelectCompressor 优先brotli，其次gzip
func (m *compressionManager) SelectCompressor(acceptEncoding string) (Compressor, CompressionType) {
	if m.brotli != nil && strings.Contains(acceptEncoding, string(CompressionBrotli)) {
		return m.brotli, CompressionBrotli
	}
	if m.gzip != nil && strings.Contains(acceptEncoding, string(CompressionGzip)) {
		return m.gzip, CompressionGzip
	}
	return nil, ""
}

// GzipCompressor gzip压缩器
type GzipCompressor struct {
	level int
}

// NewGzipCompressor 级别超出gzip合法范围时退回默认级别
func NewGzipCompressor(level int) *GzipCompressor {
	if level < gzip.DefaultCompression || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	return &GzipCompressor{level: level}
}

func (g *GzipCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(w, g.level)
}

// BrotliCompressor brotli压缩器
type BrotliCompressor struct {
	level int
}

// NewBrotliCompressor brotli级别合法范围是0到11，越界时退回默认级别
func NewBrotliCompressor(level int) *BrotliCompressor {
	if level < brotli.BestSpeed || level > brotli.BestCompression {
		level = brotli.DefaultCompression
	}
	return &BrotliCompressor{level: level}
}

func (b *BrotliCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return brotli.NewWriterLevel(w, b.level), nil
}
