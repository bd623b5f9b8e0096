package controllers

import (
	"fmt"
	"io"
	"strings"

	"github.com/zhitang/assistant-go/internal/config"
	"github.com/zhitang/assistant-go/internal/llm"
	"github.com/zhitang/assistant-go/internal/logger"
	"github.com/zhitang/assistant-go/internal/services"
	"go.uber.org/zap"
)

// KnowledgeController 知识检索与知识库文档管理
type KnowledgeController struct {
	BaseController
}

// SearchRequest 知识检索请求
type SearchRequest struct {
	Query          string  `json:"query" validate:"required"`
	TopK           int     `json:"top_k"`
	MinSimilarity  float64 `json:"min_similarity"`
	ScoreThreshold float64 `json:"score_threshold"`
	IncludeKB      *bool   `json:"include_kb"`
}

// Search 知识检索：FAQ加权检索 + 远程知识库召回 POST /api/knowledge-qa/search
func (c *KnowledgeController) Search() {
	var req SearchRequest
	if !c.parseBody(&req) {
		return
	}
	chatCfg := config.AppConfig.Chat
	if req.TopK <= 0 {
		req.TopK = 5
	}
	if req.MinSimilarity <= 0 {
		req.MinSimilarity = chatCfg.FAQMinScore
	}
	if req.ScoreThreshold <= 0 {
		req.ScoreThreshold = chatCfg.KBScoreThreshold
	}

	faqHits := faqService().Search(req.Query, req.TopK, req.MinSimilarity)

	var kbHits []services.KBChunk
	if req.IncludeKB == nil || *req.IncludeKB {
		chunks, err := knowledgeService().Retrieve(c.Ctx.Request.Context(), req.Query, req.TopK, req.ScoreThreshold)
		if err != nil {
			logger.Warn("知识库检索失败", zap.Error(err))
		} else {
			kbHits = chunks
		}
	}

	c.OK(map[string]interface{}{
		"faq_results": faqHits,
		"kb_results":  kbHits,
	})
}

// Answer 检索增强问答（非流式）POST /api/knowledge-qa/answer
func (c *KnowledgeController) Answer() {
	var req SearchRequest
	if !c.parseBody(&req) {
		return
	}
	chatCfg := config.AppConfig.Chat
	if req.TopK <= 0 {
		req.TopK = chatCfg.FAQTopK
	}
	if req.MinSimilarity <= 0 {
		req.MinSimilarity = chatCfg.FAQMinScore
	}
	if req.ScoreThreshold <= 0 {
		req.ScoreThreshold = chatCfg.KBScoreThreshold
	}

	faqHits := faqService().Search(req.Query, req.TopK, req.MinSimilarity)
	kbHits, err := knowledgeService().Retrieve(c.Ctx.Request.Context(), req.Query, chatCfg.KBTopK, req.ScoreThreshold)
	if err != nil {
		logger.Warn("知识库检索失败", zap.Error(err))
	}

	var ctx strings.Builder
	if len(faqHits) > 0 {
		ctx.WriteString("\n## 相关FAQ参考：\n")
		for i, hit := range faqHits {
			fmt.Fprintf(&ctx, "### FAQ%d：\n问题：%s\n答案：%s\n\n", i+1, hit.Question, hit.Answer)
		}
	}
	if len(kbHits) > 0 {
		ctx.WriteString("\n## 相关文档参考：\n")
		for i, chunk := range kbHits {
			fmt.Fprintf(&ctx, "### 文档%d：\n内容：%s\n\n", i+1, chunk.Content)
		}
	}

	messages := []llm.Message{
		{Role: "system", Content: "你是一位儿童糖尿病管理领域的专业助手，请基于提供的参考资料回答用户问题，资料不足时如实说明。"},
		{Role: "user", Content: req.Query + "\n\n" + ctx.String()},
	}

	var client *llm.Client
	mustInvoke(func(l *llm.Client) { client = l })
	answer, err := client.Chat(c.Ctx.Request.Context(), messages, 0, 0)
	if err != nil {
		c.Fail(err)
		return
	}

	c.OK(map[string]interface{}{
		"answer":      answer,
		"faq_results": faqHits,
		"kb_results":  kbHits,
	})
}

// Upload 上传文档至知识库 POST /api/knowledge-qa/documents
func (c *KnowledgeController) Upload() {
	userID := c.queryUserID()

	file, header, err := c.GetFile("file")
	if err != nil {
		c.BadRequest("缺少上传文件")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.BadRequest("读取上传文件失败")
		return
	}
	if len(content) == 0 {
		c.BadRequest("上传文件为空")
		return
	}

	record, err := knowledgeService().Upload(c.Ctx.Request.Context(), header.Filename, content, userID)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(record)
}

// ListDocuments 知识库文档列表 GET /api/knowledge-qa/documents
func (c *KnowledgeController) ListDocuments() {
	keyword := c.GetString("keyword")
	page := c.queryInt("page", 1)
	limit := c.queryInt("limit", 20)

	docs, total, err := knowledgeService().ListDocuments(c.Ctx.Request.Context(), keyword, page, limit)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]interface{}{
		"documents": docs,
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

// DeleteDocument 删除知识库文档 DELETE /api/knowledge-qa/documents/:doc_id
func (c *KnowledgeController) DeleteDocument() {
	docID := c.Ctx.Input.Param(":doc_id")
	if docID == "" {
		c.BadRequest("缺少doc_id参数")
		return
	}
	if err := knowledgeService().DeleteDocument(c.Ctx.Request.Context(), docID); err != nil {
		c.Fail(err)
		return
	}
	c.OKMessage(nil, "文档已删除")
}
