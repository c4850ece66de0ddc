package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simholt/hyrax/pkg/internal/service"
	"github.com/simholt/hyrax/pkg/internal/types"
	"github.com/simholt/hyrax/pkg/middleware"
)

// BatchIngest 批量创建作品并导入服务器本地文件.
// 单条失败记录在结果中，整体仍返回 200；请求本身无效时返回 400.
//
//	@Summary		批量导入作品
//	@Description	按清单创建作品与文件集，文件来自服务器本地路径（需 ingest.local_enabled）
//	@Tags			导入
//	@Accept			json
//	@Produce		json
//	@Param			manifest	body		types.BatchIngestRequest	true	"导入清单"
//	@Success		200			{object}	types.BatchIngestResult
//	@Failure		400			{object}	map[string]string
//	@Failure		503			{object}	map[string]string
//	@Router			/api/v1/ingest [post]
func BatchIngest(c *gin.Context) {
	var req types.BatchIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	deps := service.DepsFromContext(ctx)

	res, err := service.NewIngestService(deps).Ingest(ctx, deps.Config.Ingest, middleware.GetPrincipal(c), req)
	if err != nil {
		fail(c, "batch ingest failed", err)
		return
	}

	c.JSON(http.StatusOK, res)
}
