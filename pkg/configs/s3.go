package configs

import "github.com/spf13/viper"

const (
	DefaultS3Endpoint = "localhost:9000"
	DefaultS3Bucket   = "hyrax"
	DefaultS3Region   = "us-east-1"
)

// S3Config 导入的文件与计数报表快照都写入同一个桶.
type S3Config struct {
	Enabled         bool   `mapstructure:"enabled"` // 关闭时导入与报表快照返回未配置
	Endpoint        string `mapstructure:"endpoint"          rule:"required_if=Enabled true,omitempty,hostname_port"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"       rule:"required,min=3,max=63"`
	Region          string `mapstructure:"region"`
}

// BucketOr name 为空时使用配置的桶.
func (c *S3Config) BucketOr(name string) string {
	if name == "" {
		return c.BucketName
	}

	return name
}

func (c *S3Config) setDefaults(v *viper.Viper) {
	v.SetDefault("s3.enabled", true)
	v.SetDefault("s3.endpoint", DefaultS3Endpoint)
	v.SetDefault("s3.access_key_id", "minioadmin")
	v.SetDefault("s3.secret_access_key", "minioadmin")
	v.SetDefault("s3.use_ssl", false)
	v.SetDefault("s3.bucket_name", DefaultS3Bucket)
	v.SetDefault("s3.region", DefaultS3Region)
}
