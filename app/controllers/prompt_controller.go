package controllers

import (
	"time"
)

// PromptController 提示词模板与用户偏好接口
type PromptController struct {
	BaseController
}

// List 模板列表 GET /api/prompts
func (c *PromptController) List() {
	promptType := c.GetString("prompt_type")
	page := c.queryInt("page", 1)
	pageSize := c.queryInt("page_size", 20)

	templates, total, err := promptService().ListTemplates(promptType, page, pageSize)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]interface{}{
		"templates": templates,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// CreatePromptRequest 创建模板
type CreatePromptRequest struct {
	PromptType string `json:"prompt_type" validate:"required,oneof=initial normal tagging"`
	Name       string `json:"name" validate:"required"`
	Content    string `json:"content" validate:"required"`
}

// Post 创建模板 POST /api/prompts
func (c *PromptController) Post() {
	var req CreatePromptRequest
	if !c.parseBody(&req) {
		return
	}
	template, err := promptService().CreateTemplate(req.PromptType, req.Name, req.Content)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(template)
}

// UpdatePromptRequest 更新模板
type UpdatePromptRequest struct {
	Name     string `json:"name"`
	Content  string `json:"content"`
	IsActive *bool  `json:"is_active"`
}

// Put 更新模板 PUT /api/prompts/:id
func (c *PromptController) Put() {
	id, ok := c.pathUint(":id")
	if !ok {
		return
	}
	var req UpdatePromptRequest
	if !c.parseBody(&req) {
		return
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Content != "" {
		updates["content"] = req.Content
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		c.BadRequest("没有需要更新的字段")
		return
	}

	template, err := promptService().UpdateTemplate(id, updates)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(template)
}

// Delete 删除模板 DELETE /api/prompts/:id
func (c *PromptController) Delete() {
	id, ok := c.pathUint(":id")
	if !ok {
		return
	}
	if err := promptService().DeleteTemplate(id); err != nil {
		c.Fail(err)
		return
	}
	c.OKMessage(nil, "模板已删除")
}

// UserSettings 用户提示词偏好 GET /api/prompts/user
func (c *PromptController) UserSettings() {
	userID, ok := c.requireUserID()
	if !ok {
		return
	}
	settings, err := promptService().GetUserSettings(userID)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]interface{}{"settings": settings})
}

// SetUserSettingRequest 设置用户提示词偏好
type SetUserSettingRequest struct {
	UserID        uint   `json:"user_id" validate:"required"`
	PromptType    string `json:"prompt_type" validate:"required,oneof=initial normal tagging"`
	PromptID      *uint  `json:"prompt_id"`
	CustomContent string `json:"custom_content"`
}

// SetUserSetting 设置用户偏好 POST /api/prompts/user
func (c *PromptController) SetUserSetting() {
	var req SetUserSettingRequest
	if !c.parseBody(&req) {
		return
	}
	if err := promptService().SetUserSetting(req.UserID, req.PromptType, req.PromptID, req.CustomContent); err != nil {
		c.Fail(err)
		return
	}
	c.OKMessage(nil, "已保存")
}

// ResetUserSetting 重置用户偏好 DELETE /api/prompts/user
func (c *PromptController) ResetUserSetting() {
	userID, ok := c.requireUserID()
	if !ok {
		return
	}
	promptType := c.GetString("prompt_type")
	if promptType == "" {
		c.BadRequest("缺少prompt_type参数")
		return
	}
	if err := promptService().ResetUserSetting(userID, promptType); err != nil {
		c.Fail(err)
		return
	}
	c.OKMessage(nil, "已重置")
}

// Resolve 预览按当前规则解析出的提示词 GET /api/prompts/resolve
func (c *PromptController) Resolve() {
	userID, ok := c.requireUserID()
	if !ok {
		return
	}
	promptType := c.GetString("prompt_type", "normal")

	now := time.Now()
	content := promptService().ResolveContent(userID, promptType, now)
	variables := promptService().BuildUserVariables(userID, now)

	c.OK(map[string]interface{}{
		"prompt_type": promptType,
		"content":     content,
		"variables":   variables,
	})
}
