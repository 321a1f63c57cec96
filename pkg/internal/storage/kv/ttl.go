package kv

import (
	"bytes"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// ttlMagic 带过期时间的值前缀. 内存、NATS、groupcache 后端没有单键 TTL，统一用此包装.
var ttlMagic = []byte("PVTTL2:")

// ttlValue 过期时间精确到毫秒，统计缓存的 TTL 常在秒级.
type ttlValue struct {
	V        []byte `json:"v"`
	ExpireMs int64  `json:"x"`
}

// encodeWithTTL ttl>0 时包装值并返回 true，否则原样返回.
func encodeWithTTL(value []byte, ttl time.Duration) ([]byte, bool, error) {
	if ttl <= 0 {
		return value, false, nil
	}

	b, err := sonic.Marshal(ttlValue{V: value, ExpireMs: time.Now().Add(ttl).UnixMilli()})
	if err != nil {
		return nil, false, fmt.Errorf("marshal ttl value: %w", err)
	}

	return append(bytes.Clone(ttlMagic), b...), true, nil
}

// decodeWithTTL 返回 (原值, 是否已过期, 是否被包装, 错误).
func decodeWithTTL(b []byte, now time.Time) (val []byte, expired, wrapped bool, err error) {
	rest, ok := bytes.CutPrefix(b, ttlMagic)
	if !ok {
		return b, false, false, nil
	}

	var tv ttlValue
	if err := sonic.Unmarshal(rest, &tv); err != nil {
		return nil, false, true, fmt.Errorf("unmarshal ttl value: %w", err)
	}

	if tv.ExpireMs > 0 && now.UnixMilli() >= tv.ExpireMs {
		return nil, true, true, nil
	}

	return tv.V, false, true, nil
}
