package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/simholt/hyrax/docs"
	"github.com/simholt/hyrax/pkg/configs"
)

const swaggerPath = "/swagger/*any"

// RegisterSwaggerRoute 仅 debug 模式下挂载 Swagger UI，文档 host 跟随监听地址.
func RegisterSwaggerRoute(r *gin.Engine, cfg configs.ServerConfig) {
	if !cfg.Debug {
		return
	}

	docs.SwaggerInfo.Host = cfg.Addr()
	docs.SwaggerInfo.BasePath = "/"
	docs.SwaggerInfo.Version = configs.AppVersion

	r.GET(swaggerPath, ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.DocExpansion("none"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))
}
