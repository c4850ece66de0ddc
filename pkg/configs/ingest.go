package configs

import "github.com/spf13/viper"

const (
	DefaultIngestLocalEnabled = false
	DefaultIngestMaxFileBytes = 2 << 30 // 2GiB
)

// IngestConfig 批量导入选项，显式传入导入操作.
//
//   - local_enabled: 是否允许从服务器本地路径导入文件
//   - allowed_roots: 允许导入的本地根目录（绝对路径）
//   - max_file_bytes: 单个文件大小上限，0 表示不限制
//   - bucket: 上传目标桶，为空时使用 s3.bucket_name
type IngestConfig struct {
	LocalEnabled bool     `mapstructure:"local_enabled"`
	AllowedRoots []string `mapstructure:"allowed_roots"`
	MaxFileBytes int64    `mapstructure:"max_file_bytes" rule:"min=0"`
	Bucket       string   `mapstructure:"bucket"`
}

func (c *IngestConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("ingest.local_enabled", DefaultIngestLocalEnabled)
	v.SetDefault("ingest.allowed_roots", []string{})
	v.SetDefault("ingest.max_file_bytes", DefaultIngestMaxFileBytes)
	v.SetDefault("ingest.bucket", "")
}
