// Package main 启动应用程序
package main

import (
	"os"

	"github.com/simholt/hyrax/pkg/cmd"
)

//	@title			Hyrax Collections API
//	@version		1.0
//	@description	集合作品数与文件数统计、批量导入与计数报表服务。

//	@license.name	Apache-2.0
//	@license.url	https://www.apache.org/licenses/LICENSE-2.0

//	@contact.name	simholt

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
