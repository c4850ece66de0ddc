package configs

import "github.com/spf13/viper"

const (
	DefaultReportEnabled = false
	DefaultReportCron    = "15 3 * * *"
	DefaultReportPrefix  = "reports/collection-counts"
)

// ReportConfig 集合计数报表快照配置.
type ReportConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"    rule:"required"`
	Bucket  string `mapstructure:"bucket"` // 为空时使用 s3.bucket_name
	Prefix  string `mapstructure:"prefix"  rule:"required"`
}

func (c *ReportConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("report.enabled", DefaultReportEnabled)
	v.SetDefault("report.cron", DefaultReportCron)
	v.SetDefault("report.bucket", "")
	v.SetDefault("report.prefix", DefaultReportPrefix)
}
