package configs

const redactedValue = "******"

func redact(s *string) {
	if *s != "" {
		*s = redactedValue
	}
}

// Redacted 返回隐去口令与密钥的副本，用于打印或日志.
func (c AppConfig) Redacted() AppConfig {
	out := c

	redact(&out.DB.Password)
	redact(&out.KV.Redis.Password)
	redact(&out.KV.NATS.Password)
	redact(&out.MQ.NATS.Password)
	redact(&out.MQ.NATS.NKeySeed)
	redact(&out.MQ.Redis.Password)
	redact(&out.S3.SecretAccessKey)

	return out
}
