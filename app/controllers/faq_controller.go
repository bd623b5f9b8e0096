package controllers

import (
	"github.com/zhitang/assistant-go/internal/models"
	"github.com/zhitang/assistant-go/internal/services"
)

// FAQController FAQ管理接口
type FAQController struct {
	BaseController
}

// List FAQ列表 GET /api/faq/list
func (c *FAQController) List() {
	category := c.GetString("category")
	search := c.GetString("search")
	page := c.queryInt("page", 1)
	pageSize := c.queryInt("page_size", 20)

	var status *int
	if v, err := c.GetInt("status"); err == nil {
		status = &v
	}

	faqs, total, err := faqService().List(category, search, status, page, pageSize)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]interface{}{
		"list":      faqs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Get FAQ详情 GET /api/faq/:id
func (c *FAQController) Get() {
	id, ok := c.pathUint(":id")
	if !ok {
		return
	}
	faq, err := faqService().Get(id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(faq)
}

// CreateFAQRequest 创建FAQ
type CreateFAQRequest struct {
	Question      string   `json:"question" validate:"required"`
	Answer        string   `json:"answer" validate:"required"`
	Category      string   `json:"category"`
	Source        string   `json:"source"`
	SortOrder     int      `json:"sort_order"`
	Description   string   `json:"description"`
	Keywords      []string `json:"keywords"`
	UseAIKeywords bool     `json:"use_ai_keywords"`
}

// Post 创建FAQ POST /api/faq
func (c *FAQController) Post() {
	var req CreateFAQRequest
	if !c.parseBody(&req) {
		return
	}

	faq := &models.FAQ{
		Question:    req.Question,
		Answer:      req.Answer,
		Category:    req.Category,
		Source:      req.Source,
		SortOrder:   req.SortOrder,
		Description: req.Description,
		Status:      1,
		IsManual:    true,
	}
	created, err := faqService().Create(faq, req.Keywords)
	if err != nil {
		c.Fail(err)
		return
	}

	// AI补充关键词失败不影响创建结果
	if req.UseAIKeywords {
		if auto, err := faqService().SuggestKeywords(c.Ctx.Request.Context(), req.Question, req.Answer); err == nil && len(auto) > 0 {
			faqService().ReplaceKeywords(created.ID, req.Keywords, auto)
		}
	}
	c.OK(created)
}

// UpdateFAQRequest 更新FAQ
type UpdateFAQRequest struct {
	ID          uint     `json:"id" validate:"required"`
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	Category    string   `json:"category"`
	SortOrder   *int     `json:"sort_order"`
	Status      *int     `json:"status"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// Put 更新FAQ PUT /api/faq 或 PUT /api/faq/:id
func (c *FAQController) Put() {
	var req UpdateFAQRequest
	if !c.parseBody(&req) {
		return
	}
	if req.ID == 0 {
		if id, ok := c.pathUint(":id"); ok {
			req.ID = id
		} else {
			return
		}
	}

	updates := map[string]interface{}{}
	if req.Question != "" {
		updates["question"] = req.Question
	}
	if req.Answer != "" {
		updates["answer"] = req.Answer
	}
	if req.Category != "" {
		updates["category"] = req.Category
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	faq, err := faqService().Update(req.ID, updates, req.Keywords)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(faq)
}

// Delete 删除FAQ DELETE /api/faq/:id
func (c *FAQController) Delete() {
	id, ok := c.pathUint(":id")
	if !ok {
		return
	}
	if err := faqService().Delete(id); err != nil {
		c.Fail(err)
		return
	}
	c.OKMessage(nil, "FAQ已删除")
}

// BatchRequest 批量操作：启用/禁用/删除
type BatchRequest struct {
	IDs    []uint `json:"ids" validate:"required,min=1"`
	Action string `json:"action" validate:"required,oneof=enable disable delete"`
}

// Batch 批量操作 POST /api/faq/batch
func (c *FAQController) Batch() {
	var req BatchRequest
	if !c.parseBody(&req) {
		return
	}

	switch req.Action {
	case "delete":
		count, err := faqService().BatchDelete(req.IDs)
		if err != nil {
			c.Fail(err)
			return
		}
		c.OK(map[string]interface{}{"affected": count})
	default:
		status := 1
		if req.Action == "disable" {
			status = 0
		}
		affected := 0
		for _, id := range req.IDs {
			if err := faqService().SetStatus(id, status); err == nil {
				affected++
			}
		}
		c.OK(map[string]interface{}{"affected": affected})
	}
}

// SuggestKeywordsRequest AI关键词建议
type SuggestKeywordsRequest struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer"`
}

// SuggestKeywords AI关键词建议 POST /api/faq/keywords/suggest
func (c *FAQController) SuggestKeywords() {
	var req SuggestKeywordsRequest
	if !c.parseBody(&req) {
		return
	}
	keywords, err := faqService().SuggestKeywords(c.Ctx.Request.Context(), req.Question, req.Answer)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]interface{}{"keywords": keywords})
}

// Import 批量导入 POST /api/faq/import
func (c *FAQController) Import() {
	var req struct {
		Items []services.FAQImportItem `json:"items" validate:"required,min=1"`
	}
	if !c.parseBody(&req) {
		return
	}
	imported, skipped, err := faqService().Import(req.Items)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]interface{}{"imported": imported, "skipped": skipped})
}

// Export 全量导出 GET /api/faq/export
func (c *FAQController) Export() {
	items, err := faqService().Export()
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]interface{}{"items": items, "total": len(items)})
}

// Stats 统计 GET /api/faq/stats
func (c *FAQController) Stats() {
	stats, err := faqService().Stats()
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(stats)
}

// ImportTemplate 导入模板 GET /api/faq/import-template
func (c *FAQController) ImportTemplate() {
	c.OK(map[string]interface{}{
		"items": []services.FAQImportItem{
			{
				Question: "什么是糖尿病？",
				Answer:   "糖尿病是一组以高血糖为特征的代谢性疾病……",
				Category: "基础知识",
				Keywords: []string{"糖尿病", "血糖"},
			},
		},
	})
}

// Like 点赞 POST /api/faq/:id/like
func (c *FAQController) Like() {
	id, ok := c.pathUint(":id")
	if !ok {
		return
	}
	if err := faqService().Like(id); err != nil {
		c.Fail(err)
		return
	}
	c.OKMessage(nil, "已点赞")
}
