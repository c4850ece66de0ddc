package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simholt/hyrax/pkg/internal/service"
	"github.com/simholt/hyrax/pkg/internal/types"
	"github.com/simholt/hyrax/pkg/middleware"
	"github.com/simholt/hyrax/pkg/rule"
)

// GetCollectionCounts 列出当前用户可访问的集合，并附带作品数与文件数.
//
//	@Summary		集合计数
//	@Description	返回可访问集合及其直接成员作品数、作品下文件集总数
//	@Tags			集合
//	@Produce		json
//	@Param			access	query		string							false	"访问范围"	Enums(read, edit)
//	@Param			field	query		string							false	"成员关系字段，默认使用配置"
//	@Success		200		{object}	types.CollectionCountsResponse	"集合及计数"
//	@Failure		400		{object}	map[string]string				"参数错误"
//	@Failure		502		{object}	map[string]string				"检索服务响应异常"
//	@Failure		503		{object}	map[string]string				"检索服务不可用"
//	@Router			/api/v1/collections/counts [get]
func GetCollectionCounts(c *gin.Context) {
	var q types.CollectionCountsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	if err := rule.ValidateStruct(q); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	svc := service.NewCollectionService(service.DepsFromContext(ctx))

	items, err := svc.CollectionsWithCounts(ctx, middleware.GetPrincipal(c), types.AccessScope(q.Access), q.Field)
	if err != nil {
		fail(c, "collection counts failed", err)
		return
	}

	c.JSON(http.StatusOK, types.CollectionCountsResponse{Items: items, Total: len(items)})
}

// CreateCollection 创建集合，当前用户为存入者.
//
//	@Summary	创建集合
//	@Tags		集合
//	@Accept		json
//	@Produce	json
//	@Param		collection	body		types.CreateCollectionRequest	true	"集合信息"
//	@Success	201			{object}	model.Collection
//	@Failure	400			{object}	map[string]string
//	@Failure	500			{object}	map[string]string
//	@Router		/api/v1/collections [post]
func CreateCollection(c *gin.Context) {
	var req types.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := rule.ValidateStruct(req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	svc := service.NewCollectionService(service.DepsFromContext(ctx))

	col, err := svc.Create(ctx, middleware.GetPrincipal(c), req)
	if err != nil {
		if col == nil {
			fail(c, "create collection failed", err)
			return
		}

		// 已入库但索引失败，仍返回集合
		c.Header("X-Index-Error", err.Error())
	}

	c.JSON(http.StatusCreated, col)
}
