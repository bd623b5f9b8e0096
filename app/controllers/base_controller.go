package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/zhitang/assistant-go/internal/auth"
	"github.com/zhitang/assistant-go/internal/config"
	"github.com/zhitang/assistant-go/internal/errors"
	"github.com/zhitang/assistant-go/internal/logger"
	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

var validate = validator.New()

// BaseController 统一响应封装与参数解析
type BaseController struct {
	web.Controller
}

// reply 统一响应体：code与HTTP状态一致，出错时data为空对象
func (c *BaseController) reply(status int, data interface{}, success bool, message string) {
	if data == nil {
		data = map[string]interface{}{}
	}
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = map[string]interface{}{
		"code":    status,
		"data":    data,
		"success": success,
		"message": message,
	}
	c.ServeJSON()
}

// OK 成功响应
func (c *BaseController) OK(data interface{}) {
	c.reply(http.StatusOK, data, true, "")
}

// OKMessage 带提示信息的成功响应
func (c *BaseController) OKMessage(data interface{}, message string) {
	c.reply(http.StatusOK, data, true, message)
}

// Fail 按错误类型映射HTTP状态码
func (c *BaseController) Fail(err error) {
	if !errors.IsAppError(err) {
		logger.Error("未分类错误",
			zap.String("path", c.Ctx.Request.RequestURI),
			zap.Error(err))
		c.reply(http.StatusInternalServerError, nil, false, "服务内部错误")
		return
	}
	appErr := errors.GetAppError(err)
	c.reply(appErr.HTTPCode, nil, false, appErr.Message)
}

// BadRequest 参数错误
func (c *BaseController) BadRequest(message string) {
	c.reply(http.StatusBadRequest, nil, false, message)
}

// parseBody 解析并校验JSON请求体
func (c *BaseController) parseBody(dst interface{}) bool {
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, dst); err != nil {
		c.BadRequest("请求体格式错误")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		c.BadRequest("参数校验失败: " + err.Error())
		return false
	}
	return true
}

// queryInt 读取整型查询参数
func (c *BaseController) queryInt(name string, def int) int {
	if v, err := c.GetInt(name); err == nil {
		return v
	}
	return def
}

// queryUserID 从查询参数或认证信息解析用户ID，0表示未提供
func (c *BaseController) queryUserID() uint {
	if v, err := c.GetUint32("user_id"); err == nil && v > 0 {
		return uint(v)
	}
	if uid, ok := c.authenticatedUserID(); ok {
		return uid
	}
	return 0
}

// requireUserID 必填用户ID，缺失时直接响应400
func (c *BaseController) requireUserID() (uint, bool) {
	uid := c.queryUserID()
	if uid == 0 {
		c.BadRequest("缺少user_id参数")
		return 0, false
	}
	return uid, true
}

// authenticatedUserID 从Bearer token解析用户身份。
// 兼容旧客户端：解析失败不拒绝请求，由调用方决定是否必须。
func (c *BaseController) authenticatedUserID() (uint, bool) {
	authHeader := c.Ctx.Input.Header("Authorization")
	if authHeader == "" {
		return 0, false
	}
	token, err := auth.ExtractTokenFromHeader(authHeader)
	if err != nil {
		return 0, false
	}

	cfg := config.AppConfig.JWT
	if cfg.Secret == "" {
		return 0, false
	}
	jwtService := auth.NewJWTService(cfg.Secret, "assistant-go", time.Duration(cfg.ExpiresIn)*time.Hour)
	claims, err := jwtService.ValidateToken(token)
	if err != nil {
		logger.Debug("token校验失败", zap.Error(err))
		return 0, false
	}
	return claims.UserID, true
}

// pathUint 读取路径参数并转为uint
func (c *BaseController) pathUint(name string) (uint, bool) {
	raw := c.Ctx.Input.Param(name)
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		c.BadRequest("无效的ID参数")
		return 0, false
	}
	return uint(v), true
}
