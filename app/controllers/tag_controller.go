package controllers

import (
	"encoding/csv"
	"fmt"
	"sort"
	"time"

	"github.com/zhitang/assistant-go/internal/models"
	"github.com/zhitang/assistant-go/internal/tags"
)

// TagController 用户标签接口
type TagController struct {
	BaseController
}

// Get 用户标签列表 GET /api/tags
func (c *TagController) Get() {
	userID, ok := c.requireUserID()
	if !ok {
		return
	}
	category := c.GetString("category")
	page := c.queryInt("page", 1)
	pageSize := c.queryInt("page_size", 100)

	views, total, err := tagService().GetUserTags(userID, category, page, pageSize)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]interface{}{
		"tags":      views,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// SetTagRequest 写入单个标签
type SetTagRequest struct {
	UserID         uint    `json:"user_id" validate:"required"`
	TagKey         string  `json:"tag_key" validate:"required"`
	TagValue       string  `json:"tag_value"`
	Source         string  `json:"source"`
	Confidence     float64 `json:"confidence"`
	ConversationID string  `json:"conversation_id"`
}

// Post 写入标签 POST /api/tags
func (c *TagController) Post() {
	var req SetTagRequest
	if !c.parseBody(&req) {
		return
	}
	if req.Source == "" {
		req.Source = models.TagSourceManual
	}
	if req.Confidence <= 0 {
		req.Confidence = 1.0
	}

	changed, err := tagService().SetValue(req.UserID, req.TagKey, req.TagValue, req.Source, req.Confidence, req.ConversationID)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]interface{}{"changed": changed})
}

// Delete 删除标签值 DELETE /api/tags
func (c *TagController) Delete() {
	userID, ok := c.requireUserID()
	if !ok {
		return
	}
	tagKey := c.GetString("tag_key")
	if tagKey == "" {
		c.BadRequest("缺少tag_key参数")
		return
	}
	if err := tagService().DeleteValue(userID, tagKey); err != nil {
		c.Fail(err)
		return
	}
	c.OKMessage(nil, "标签已删除")
}

// BatchSetRequest 批量写入
type BatchSetRequest struct {
	UserID         uint              `json:"user_id" validate:"required"`
	Tags           map[string]string `json:"tags" validate:"required,min=1"`
	Source         string            `json:"source"`
	ConversationID string            `json:"conversation_id"`
}

// BatchSet 批量写入标签 POST /api/tags/batch
func (c *TagController) BatchSet() {
	var req BatchSetRequest
	if !c.parseBody(&req) {
		return
	}
	if req.Source == "" {
		req.Source = models.TagSourceManual
	}

	changed, err := tagService().BatchSet(req.UserID, req.Tags, req.Source, req.ConversationID)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]interface{}{"changed": changed, "submitted": len(req.Tags)})
}

// BatchDeleteRequest 批量删除
type BatchDeleteRequest struct {
	UserID  uint     `json:"user_id" validate:"required"`
	TagKeys []string `json:"tag_keys" validate:"required,min=1"`
}

// BatchDelete 批量删除标签 DELETE /api/tags/batch
func (c *TagController) BatchDelete() {
	var req BatchDeleteRequest
	if !c.parseBody(&req) {
		return
	}

	deleted := 0
	for _, key := range req.TagKeys {
		if err := tagService().DeleteValue(req.UserID, key); err == nil {
			deleted++
		}
	}
	c.OK(map[string]interface{}{"deleted": deleted})
}

// Clear 清空用户标签 POST /api/tags/clear
func (c *TagController) Clear() {
	var req struct {
		UserID uint `json:"user_id" validate:"required"`
	}
	if !c.parseBody(&req) {
		return
	}
	count, err := tagService().ClearUser(req.UserID)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]interface{}{"cleared": count})
}

// Definitions 标签定义列表 GET /api/tags/definitions
func (c *TagController) Definitions() {
	category := c.GetString("category")
	page := c.queryInt("page", 1)
	pageSize := c.queryInt("page_size", 100)

	defs, total, err := tagService().GetDefinitions(category, page, pageSize)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]interface{}{
		"definitions": defs,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
	})
}

// History 标签变更历史 GET /api/tags/history
func (c *TagController) History() {
	userID, ok := c.requireUserID()
	if !ok {
		return
	}
	page := c.queryInt("page", 1)
	pageSize := c.queryInt("page_size", 20)

	history, total, err := tagService().GetHistory(userID, page, pageSize)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]interface{}{
		"history":   history,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// sortedMappings 中文同义词映射表按同义词排序输出
func sortedMappings() [][2]string {
	rows := make([][2]string, 0, len(tags.KeyMapping))
	for synonym, canonical := range tags.KeyMapping {
		rows = append(rows, [2]string{synonym, canonical})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	return rows
}

// Mappings 中文→标准标签键映射表 GET /api/tags/mappings
func (c *TagController) Mappings() {
	rows := sortedMappings()
	mappings := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		mappings = append(mappings, map[string]string{
			"synonym":       row[0],
			"canonical_key": row[1],
		})
	}
	c.OK(map[string]interface{}{
		"mappings": mappings,
		"total":    len(mappings),
	})
}

// MappingsExport 映射表CSV导出 GET /api/tags/mappings/export
func (c *TagController) MappingsExport() {
	w := c.Ctx.ResponseWriter
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="tag_mappings_%s.csv"`, time.Now().Format("20060102")))

	w.Write([]byte{0xEF, 0xBB, 0xBF})
	writer := csv.NewWriter(w)
	writer.Write([]string{"同义词", "标准标签键"})
	for _, row := range sortedMappings() {
		writer.Write([]string{row[0], row[1]})
	}
	writer.Flush()
}
