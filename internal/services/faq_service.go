package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zhitang/assistant-go/internal/database"
	"github.com/zhitang/assistant-go/internal/errors"
	"github.com/zhitang/assistant-go/internal/llm"
	"github.com/zhitang/assistant-go/internal/logger"
	"github.com/zhitang/assistant-go/internal/metrics"
	"github.com/zhitang/assistant-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FAQMatch 检索命中结果
type FAQMatch struct {
	FAQID    uint     `json:"faq_id"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Category string   `json:"category"`
	Score    float64  `json:"score"`
	Matched  []string `json:"matched_keywords,omitempty"`
}

// faqIndexEntry 内存索引中的一条FAQ及其关键词
type faqIndexEntry struct {
	faq      models.FAQ
	keywords []models.FAQKeyword
}

// FAQService FAQ管理与关键词加权检索。
// 检索走内存索引，任何写操作后整体重建。
type FAQService struct {
	db  *gorm.DB
	llm *llm.Client

	mu    sync.RWMutex
	index []faqIndexEntry
}

// NewFAQService 创建FAQ服务并加载检索索引
func NewFAQService(llmClient *llm.Client) *FAQService {
	s := &FAQService{db: database.DB, llm: llmClient}
	if err := s.RebuildIndex(); err != nil {
		logger.Warn("FAQ索引初始化失败", zap.Error(err))
	}
	return s
}

// NewFAQServiceWithDB 使用指定连接创建FAQ服务（测试用）
func NewFAQServiceWithDB(db *gorm.DB, llmClient *llm.Client) *FAQService {
	return &FAQService{db: db, llm: llmClient}
}

// RebuildIndex 从数据库重建内存索引（仅含启用状态的FAQ）
func (s *FAQService) RebuildIndex() error {
	var faqs []models.FAQ
	if err := s.db.Preload("Keywords").Where("status = ?", 1).Find(&faqs).Error; err != nil {
		return errors.NewPersistenceError("加载FAQ索引失败", err)
	}

	entries := make([]faqIndexEntry, 0, len(faqs))
	for _, f := range faqs {
		entries = append(entries, faqIndexEntry{faq: f, keywords: f.Keywords})
	}

	s.mu.Lock()
	s.index = entries
	s.mu.Unlock()

	logger.Debug("FAQ索引已重建", zap.Int("count", len(entries)))
	return nil
}

var faqTokenSplit = regexp.MustCompile(`[\s，。！？；、,.!?;:：\-/]+`)

// tokenizeQuery 切分查询词。中文无空格时整句作为一个词参与子串匹配。
func tokenizeQuery(query string) []string {
	parts := faqTokenSplit.Split(strings.TrimSpace(query), -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// Search 关键词加权检索。
// 每个查询词取其命中关键词的最高权重，逐词累加得原始分，
// 按本批最高原始分归一化，过滤低于minScore的结果并截断topK。
func (s *FAQService) Search(query string, topK int, minScore float64) []FAQMatch {
	start := time.Now()
	defer func() {
		metrics.FAQSearchDuration.Observe(time.Since(start).Seconds())
	}()

	tokens := tokenizeQuery(query)
	if len(tokens) == 0 {
		return nil
	}
	if topK <= 0 {
		topK = 2
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]FAQMatch, 0)
	for _, entry := range s.index {
		raw := 0.0
		matched := make([]string, 0)
		for _, token := range tokens {
			best := 0.0
			bestKw := ""
			for _, kw := range entry.keywords {
				if !keywordHit(token, kw.Keyword) {
					continue
				}
				if kw.Weight > best {
					best = kw.Weight
					bestKw = kw.Keyword
				}
			}
			if best > 0 {
				raw += best
				matched = append(matched, bestKw)
			}
		}
		if raw > 0 {
			matches = append(matches, FAQMatch{
				FAQID:    entry.faq.ID,
				Question: entry.faq.Question,
				Answer:   entry.faq.Answer,
				Category: entry.faq.Category,
				Score:    raw,
				Matched:  matched,
			})
		}
	}

	if len(matches) == 0 {
		return nil
	}

	maxRaw := 0.0
	for _, m := range matches {
		if m.Score > maxRaw {
			maxRaw = m.Score
		}
	}
	filtered := matches[:0]
	for _, m := range matches {
		m.Score = m.Score / maxRaw
		if m.Score >= minScore {
			filtered = append(filtered, m)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	return filtered
}

// keywordHit 查询词与关键词相等或互为子串即算命中
func keywordHit(token, keyword string) bool {
	if token == "" || keyword == "" {
		return false
	}
	return token == keyword ||
		strings.Contains(token, keyword) ||
		strings.Contains(keyword, token)
}

// List 分页查询FAQ列表
func (s *FAQService) List(category, search string, status *int, page, pageSize int) ([]models.FAQ, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	query := s.db.Model(&models.FAQ{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("question LIKE ? OR answer LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.NewPersistenceError("查询FAQ失败", err)
	}

	var faqs []models.FAQ
	err := query.Preload("Keywords").
		Order("sort_order DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&faqs).Error
	if err != nil {
		return nil, 0, errors.NewPersistenceError("查询FAQ失败", err)
	}
	return faqs, total, nil
}

// Get 获取单条FAQ并增加浏览计数
func (s *FAQService) Get(id uint) (*models.FAQ, error) {
	var faq models.FAQ
	err := s.db.Preload("Keywords").First(&faq, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.NewNotFoundError("FAQ")
	}
	if err != nil {
		return nil, errors.NewPersistenceError("查询FAQ失败", err)
	}

	s.db.Model(&models.FAQ{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	faq.ViewCount++
	return &faq, nil
}

// Create 创建FAQ，question重复时返回业务错误
func (s *FAQService) Create(faq *models.FAQ, keywords []string) (*models.FAQ, error) {
	faq.Question = strings.TrimSpace(faq.Question)
	if faq.Question == "" || strings.TrimSpace(faq.Answer) == "" {
		return nil, errors.NewValidationError("question与answer不能为空")
	}

	var count int64
	s.db.Model(&models.FAQ{}).Where("question = ?", faq.Question).Count(&count)
	if count > 0 {
		return nil, &errors.AppError{
			Code:     errors.ErrCodeDuplicateFAQ,
			Message:  "相同问题的FAQ已存在",
			Type:     errors.ErrorTypeValidation,
			HTTPCode: 400,
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(faq).Error; err != nil {
			return err
		}
		return s.replaceKeywordsTx(tx, faq.ID, keywords, nil)
	})
	if err != nil {
		return nil, errors.NewPersistenceError("创建FAQ失败", err)
	}

	s.RebuildIndex()
	return s.loadWithKeywords(faq.ID)
}

// Update 更新FAQ；keywords为nil时保留原关键词
func (s *FAQService) Update(id uint, updates map[string]interface{}, keywords []string) (*models.FAQ, error) {
	var faq models.FAQ
	if err := s.db.First(&faq, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("FAQ")
		}
		return nil, errors.NewPersistenceError("查询FAQ失败", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&faq).Updates(updates).Error; err != nil {
				return err
			}
		}
		if keywords != nil {
			return s.replaceKeywordsTx(tx, id, keywords, nil)
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewPersistenceError("更新FAQ失败", err)
	}

	s.RebuildIndex()
	return s.loadWithKeywords(id)
}

// Delete 删除FAQ及其关键词
func (s *FAQService) Delete(id uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("faq_id = ?", id).Delete(&models.FAQKeyword{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.FAQ{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err == gorm.ErrRecordNotFound {
		return errors.NewNotFoundError("FAQ")
	}
	if err != nil {
		return errors.NewPersistenceError("删除FAQ失败", err)
	}

	s.RebuildIndex()
	return nil
}

// BatchDelete 批量删除，返回删除数量
func (s *FAQService) BatchDelete(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("faq_id IN ?", ids).Delete(&models.FAQKeyword{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&models.FAQ{})
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, errors.NewPersistenceError("批量删除FAQ失败", err)
	}

	s.RebuildIndex()
	return deleted, nil
}

// SetStatus 启用/停用FAQ
func (s *FAQService) SetStatus(id uint, status int) error {
	result := s.db.Model(&models.FAQ{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return errors.NewPersistenceError("更新FAQ状态失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("FAQ")
	}
	s.RebuildIndex()
	return nil
}

// Like 点赞计数
func (s *FAQService) Like(id uint) error {
	result := s.db.Model(&models.FAQ{}).Where("id = ?", id).
		UpdateColumn("like_count", gorm.Expr("like_count + 1"))
	if result.Error != nil {
		return errors.NewPersistenceError("点赞失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("FAQ")
	}
	return nil
}

// ReplaceKeywords 整体替换某FAQ的关键词（手动权重1.0）
func (s *FAQService) ReplaceKeywords(faqID uint, manual []string, auto []string) error {
	var count int64
	s.db.Model(&models.FAQ{}).Where("id = ?", faqID).Count(&count)
	if count == 0 {
		return errors.NewNotFoundError("FAQ")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.replaceKeywordsTx(tx, faqID, manual, auto)
	})
	if err != nil {
		return errors.NewPersistenceError("更新关键词失败", err)
	}

	s.RebuildIndex()
	return nil
}

// replaceKeywordsTx 在事务内替换关键词，自动去重
func (s *FAQService) replaceKeywordsTx(tx *gorm.DB, faqID uint, manual []string, auto []string) error {
	if err := tx.Where("faq_id = ?", faqID).Delete(&models.FAQKeyword{}).Error; err != nil {
		return err
	}

	seen := make(map[string]bool)
	rows := make([]models.FAQKeyword, 0, len(manual)+len(auto))
	for _, kw := range manual {
		kw = strings.TrimSpace(kw)
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		rows = append(rows, models.FAQKeyword{
			FAQID:       faqID,
			Keyword:     kw,
			KeywordType: models.KeywordTypeManual,
			Weight:      models.KeywordWeightManual,
		})
	}
	for _, kw := range auto {
		kw = strings.TrimSpace(kw)
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		rows = append(rows, models.FAQKeyword{
			FAQID:       faqID,
			Keyword:     kw,
			KeywordType: models.KeywordTypeAuto,
			Weight:      models.KeywordWeightAuto,
		})
	}

	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

// SuggestKeywords 调用大模型为FAQ生成不超过8个检索关键词
func (s *FAQService) SuggestKeywords(ctx context.Context, question, answer string) ([]string, error) {
	if s.llm == nil {
		return nil, errors.NewUpstreamError("大模型客户端未配置", nil)
	}

	prompt := fmt.Sprintf(`请为下面这条糖尿病知识问答提取检索关键词。
要求：
1. 最多8个关键词，覆盖问题的核心概念和同义表达
2. 每个关键词2-6个字
3. 只输出JSON数组，例如：["血糖","低血糖","饮食"]

问题：%s
答案：%s`, question, answer)

	resp, err := s.llm.Chat(ctx, []llm.Message{
		{Role: "user", Content: prompt},
	}, 0.3, 512)
	if err != nil {
		return nil, errors.NewUpstreamError("关键词生成失败", err)
	}

	cleaned := stripCodeFence(resp)
	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start < 0 || end <= start {
		return nil, errors.NewUpstreamError("关键词结果格式异常", nil)
	}

	var keywords []string
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &keywords); err != nil {
		return nil, errors.NewUpstreamError("关键词结果解析失败", err)
	}

	if len(keywords) > 8 {
		keywords = keywords[:8]
	}
	return keywords, nil
}

// FAQStats 统计信息
type FAQStats struct {
	Total      int64            `json:"total"`
	Enabled    int64            `json:"enabled"`
	Disabled   int64            `json:"disabled"`
	Keywords   int64            `json:"keywords"`
	Categories map[string]int64 `json:"categories"`
	TopViewed  []models.FAQ     `json:"top_viewed"`
}

// Stats 汇总FAQ统计
func (s *FAQService) Stats() (*FAQStats, error) {
	stats := &FAQStats{Categories: make(map[string]int64)}

	if err := s.db.Model(&models.FAQ{}).Count(&stats.Total).Error; err != nil {
		return nil, errors.NewPersistenceError("统计FAQ失败", err)
	}
	s.db.Model(&models.FAQ{}).Where("status = ?", 1).Count(&stats.Enabled)
	stats.Disabled = stats.Total - stats.Enabled
	s.db.Model(&models.FAQKeyword{}).Count(&stats.Keywords)

	type catRow struct {
		Category string
		Count    int64
	}
	var cats []catRow
	s.db.Model(&models.FAQ{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Scan(&cats)
	for _, c := range cats {
		name := c.Category
		if name == "" {
			name = "未分类"
		}
		stats.Categories[name] = c.Count
	}

	s.db.Order("view_count DESC").Limit(10).Find(&stats.TopViewed)
	return stats, nil
}

// FAQImportItem 批量导入的单条记录
type FAQImportItem struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
}

// Import 批量导入，重复问题跳过，返回成功与跳过数量
func (s *FAQService) Import(items []FAQImportItem) (int, int, error) {
	imported, skipped := 0, 0
	for _, item := range items {
		faq := models.FAQ{
			Question: strings.TrimSpace(item.Question),
			Answer:   item.Answer,
			Category: item.Category,
			Status:   1,
			IsManual: true,
			Source:   "import",
		}
		_, err := s.Create(&faq, item.Keywords)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.ErrCodeDuplicateFAQ {
				skipped++
				continue
			}
			return imported, skipped, err
		}
		imported++
	}
	logger.Info("FAQ导入完成", zap.Int("imported", imported), zap.Int("skipped", skipped))
	return imported, skipped, nil
}

// Export 导出全部FAQ（含关键词）
func (s *FAQService) Export() ([]FAQImportItem, error) {
	var faqs []models.FAQ
	if err := s.db.Preload("Keywords").Order("id").Find(&faqs).Error; err != nil {
		return nil, errors.NewPersistenceError("导出FAQ失败", err)
	}

	items := make([]FAQImportItem, 0, len(faqs))
	for _, f := range faqs {
		kws := make([]string, 0, len(f.Keywords))
		for _, k := range f.Keywords {
			kws = append(kws, k.Keyword)
		}
		items = append(items, FAQImportItem{
			Question: f.Question,
			Answer:   f.Answer,
			Category: f.Category,
			Keywords: kws,
		})
	}
	return items, nil
}

func (s *FAQService) loadWithKeywords(id uint) (*models.FAQ, error) {
	var faq models.FAQ
	if err := s.db.Preload("Keywords").First(&faq, id).Error; err != nil {
		return nil, errors.NewPersistenceError("查询FAQ失败", err)
	}
	return &faq, nil
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// stripCodeFence 剥掉大模型输出里的Markdown代码块围栏
func stripCodeFence(text string) string {
	if m := codeFenceRe.FindStringSubmatch(text); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}
