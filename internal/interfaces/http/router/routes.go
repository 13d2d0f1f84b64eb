package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers) {
	// 项目库
	projects := v1.Group("/projects")
	{
		projects.GET("", h.Project.ListProjects)
		projects.POST("", h.Project.CreateProject)
		projects.POST("/load", h.Project.LoadProject)
		projects.DELETE("/:path", h.Project.DeleteProject)
		projects.POST("/:path/duplicate", h.Project.DuplicateProject)
	}

	// 活动项目
	project := v1.Group("/project")
	{
		project.GET("", h.Project.GetCurrent)
		project.DELETE("", h.Project.ResetCurrent)
		project.POST("/save", h.Project.SaveCurrent)
		project.PUT("/story", h.Project.UpdateStory)
		project.PUT("/template", h.Project.SelectTemplate)
		project.PUT("/model", h.Project.SelectModel)
		project.PUT("/step", h.Project.GoToStep)
		project.PUT("/budget", h.Project.SetBudget)
		project.GET("/view", h.Project.GetView)
		project.GET("/diagnostics", h.Project.GetDiagnostics)
		project.GET("/script", h.Project.ExportScript)

		// 单元级编辑
		project.PUT("/acts/:act", h.Content.EditAct)
		project.PUT("/acts/:act/target", h.Project.SetActTarget)
		project.PUT("/acts/:act/plot-points/:index", h.Content.EditPlotPoint)
		project.PUT("/acts/:act/scenes/:index", h.Content.EditScene)
		project.PUT("/dialogue/:sceneId", h.Content.EditDialogue)
		project.PUT("/directions", h.Content.SetCreativeDirection)
	}

	// 生成（异步，返回 202 + batchId）
	generate := v1.Group("/generate")
	{
		generate.POST("/structure", h.Generation.GenerateStructure)
		generate.POST("/plot-points", h.Generation.GenerateAllPlotPoints)
		generate.POST("/scenes", h.Generation.GenerateAllScenes)
		generate.POST("/dialogue", h.Generation.GenerateAllDialogue)
		generate.POST("/acts/:act/plot-points", h.Generation.GeneratePlotPointsForAct)
		generate.POST("/acts/:act/scenes", h.Generation.GenerateScenesForAct)
		generate.POST("/acts/:act/plot-points/:index/scenes", h.Generation.GenerateScenesForPlotPoint)
		generate.POST("/acts/:act/plot-points/:index/dialogue", h.Generation.GenerateDialogueForPlotPoint)
		generate.POST("/scenes/:sceneId/dialogue", h.Generation.GenerateDialogueForScene)
	}

	// 批次
	batches := v1.Group("/batches")
	{
		batches.GET("", h.Generation.GetBatches)
		batches.DELETE("/current", h.Generation.CancelCurrent)
	}

	v1.GET("/templates", h.Project.ListTemplates)
	v1.GET("/events", h.Stream.Events)
	v1.GET("/events/ws", h.Stream.EventsWS)
}
