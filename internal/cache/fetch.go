package cache

import "context"

// Fetch 带类型参数的读穿透查询
// 命中直接返回缓存值；未命中时调用 loader 取数，成功后回填缓存
// loader 的错误原样返回且不缓存，下次调用会重新取数
func Fetch[T any](ctx context.Context, c *Cache, key string, loader func(context.Context) (T, error)) (T, error) {
	if cached, ok := c.Get(key); ok {
		if value, ok := cached.(T); ok {
			return value, nil
		}
		// 同键被写入了其他类型的负载，视为未命中并覆盖
		c.Delete(key)
	}

	value, err := loader(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.Set(key, value)
	return value, nil
}
