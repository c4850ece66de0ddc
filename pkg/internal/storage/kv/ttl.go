package kv

import (
	"bytes"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// 没有原生过期的后端（NATS KV、groupcache）用信封保存过期时间.
var envelopePrefix = []byte("HYENV1:")

type envelope struct {
	Value     []byte `json:"v"`
	ExpiresAt int64  `json:"x"` // unix 毫秒
}

// seal ttl<=0 时原样保存.
func seal(value []byte, ttl time.Duration, now time.Time) ([]byte, error) {
	if ttl <= 0 {
		return value, nil
	}

	b, err := sonic.Marshal(envelope{Value: value, ExpiresAt: now.Add(ttl).UnixMilli()})
	if err != nil {
		return nil, fmt.Errorf("seal value: %w", err)
	}

	return append(bytes.Clone(envelopePrefix), b...), nil
}

// open 拆开信封；alive 为 false 表示已过期.
func open(raw []byte, now time.Time) (value []byte, alive bool, err error) {
	body, ok := bytes.CutPrefix(raw, envelopePrefix)
	if !ok {
		return raw, true, nil
	}

	var env envelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		return nil, false, fmt.Errorf("open value: %w", err)
	}

	if now.UnixMilli() >= env.ExpiresAt {
		return nil, false, nil
	}

	return env.Value, true, nil
}
