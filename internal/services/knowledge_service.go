package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zhitang/assistant-go/internal/config"
	"github.com/zhitang/assistant-go/internal/database"
	"github.com/zhitang/assistant-go/internal/errors"
	"github.com/zhitang/assistant-go/internal/logger"
	"github.com/zhitang/assistant-go/internal/models"
	"github.com/zhitang/assistant-go/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// KBChunk 远程知识库召回的文本片段
type KBChunk struct {
	Content      string  `json:"content"`
	Score        float64 `json:"score"`
	DocumentName string  `json:"document_name"`
}

// KnowledgeDocument 列表接口返回的文档（远程元数据 + 本地file_url）
type KnowledgeDocument struct {
	DocumentID     string `json:"document_id"`
	Name           string `json:"name"`
	WordCount      int    `json:"word_count"`
	IndexingStatus string `json:"indexing_status"`
	Enabled        bool   `json:"enabled"`
	CreatedAt      int64  `json:"created_at"`
	FileURL        string `json:"file_url,omitempty"`
	FileSize       int64  `json:"file_size,omitempty"`
}

// KnowledgeService 远程知识库客户端。
// 文档托管在Dify数据集，原始文件镜像在本地磁盘与对象存储，
// 映射关系记录在 knowledge_file_storage 表。
type KnowledgeService struct {
	db   *gorm.DB
	cfg  config.DifyConfig
	http *http.Client
}

// NewKnowledgeService 创建知识库服务
func NewKnowledgeService(cfg config.DifyConfig) *KnowledgeService {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &KnowledgeService{
		db:   database.DB,
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// Enabled 是否配置了远程知识库
func (s *KnowledgeService) Enabled() bool {
	return s.cfg.BaseURL != "" && s.cfg.APIKey != "" && s.cfg.DatasetID != ""
}

// Retrieve 语义召回。召回失败返回错误，调用方降级处理。
func (s *KnowledgeService) Retrieve(ctx context.Context, query string, topK int, scoreThreshold float64) ([]KBChunk, error) {
	if !s.Enabled() {
		return nil, nil
	}
	if topK <= 0 {
		topK = 3
	}

	payload := map[string]interface{}{
		"query": query,
		"retrieval_model": map[string]interface{}{
			"search_method":           "semantic_search",
			"reranking_enable":        false,
			"top_k":                   topK,
			"score_threshold_enabled": scoreThreshold > 0,
			"score_threshold":         scoreThreshold,
		},
	}

	endpoint := fmt.Sprintf("%s/v1/datasets/%s/retrieve",
		strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.DatasetID)

	body, err := s.doJSON(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Records []struct {
			Score   float64 `json:"score"`
			Segment struct {
				Content  string `json:"content"`
				Document struct {
					Name string `json:"name"`
				} `json:"document"`
			} `json:"segment"`
		} `json:"records"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewUpstreamError("知识库召回结果解析失败", err)
	}

	chunks := make([]KBChunk, 0, len(resp.Records))
	for _, r := range resp.Records {
		chunks = append(chunks, KBChunk{
			Content:      r.Segment.Content,
			Score:        r.Score,
			DocumentName: r.Segment.Document.Name,
		})
	}
	return chunks, nil
}

// difyProcessRule 文档入库的自定义切分规则
func difyProcessRule() map[string]interface{} {
	return map[string]interface{}{
		"indexing_technique": "high_quality",
		"process_rule": map[string]interface{}{
			"mode": "custom",
			"rules": map[string]interface{}{
				"pre_processing_rules": []map[string]interface{}{
					{"id": "remove_extra_spaces", "enabled": true},
					{"id": "remove_urls_emails", "enabled": true},
				},
				"segmentation": map[string]interface{}{
					"separator":  "###",
					"max_tokens": 500,
				},
			},
		},
	}
}

// Upload 上传文档到远程数据集，并在本地镜像原始文件
func (s *KnowledgeService) Upload(ctx context.Context, fileName string, content []byte, userID uint) (*models.KnowledgeFile, error) {
	if !s.Enabled() {
		return nil, errors.NewValidationError("远程知识库未配置")
	}
	if len(content) == 0 {
		return nil, errors.NewValidationError("文件内容为空")
	}

	dataJSON, _ := json.Marshal(difyProcessRule())

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("data", string(dataJSON)); err != nil {
		return nil, errors.NewUpstreamError("构建上传请求失败", err)
	}
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, errors.NewUpstreamError("构建上传请求失败", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, errors.NewUpstreamError("构建上传请求失败", err)
	}
	writer.Close()

	endpoint := fmt.Sprintf("%s/v1/datasets/%s/document/create-by-file",
		strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.DatasetID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, errors.NewUpstreamError("构建上传请求失败", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, errors.NewUpstreamError("上传文档到知识库失败", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewUpstreamError(
			fmt.Sprintf("知识库上传返回 %d", resp.StatusCode), nil).
			WithDetails(string(respBody))
	}

	var uploadResp struct {
		Document struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"document"`
	}
	if err := json.Unmarshal(respBody, &uploadResp); err != nil || uploadResp.Document.ID == "" {
		return nil, errors.NewUpstreamError("知识库上传响应解析失败", err)
	}

	record, err := s.mirrorFile(ctx, uploadResp.Document.ID, fileName, content, userID)
	if err != nil {
		// 远程已入库，本地镜像失败只记日志
		logger.Warn("知识库文件本地镜像失败",
			zap.String("document_id", uploadResp.Document.ID),
			zap.Error(err))
		record = &models.KnowledgeFile{
			DocumentID: uploadResp.Document.ID,
			FileName:   fileName,
			DatasetID:  s.cfg.DatasetID,
			UserID:     userID,
		}
	}

	logger.Info("知识库文档已上传",
		zap.String("document_id", uploadResp.Document.ID),
		zap.String("file_name", fileName))
	return record, nil
}

// mirrorFile 落盘原始文件、写映射表、镜像到对象存储
func (s *KnowledgeService) mirrorFile(ctx context.Context, documentID, fileName string, content []byte, userID uint) (*models.KnowledgeFile, error) {
	uploadDir := config.AppConfig.Upload.Dir
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, err
	}

	ext := filepath.Ext(fileName)
	storedName := uuid.New().String() + ext
	localPath := filepath.Join(uploadDir, storedName)
	if err := os.WriteFile(localPath, content, 0o644); err != nil {
		return nil, err
	}

	fileURL := "/" + filepath.ToSlash(localPath)
	if s.cfg.PublicBaseURL != "" {
		fileURL = strings.TrimRight(s.cfg.PublicBaseURL, "/") + fileURL
	}

	record := &models.KnowledgeFile{
		DocumentID: documentID,
		FileName:   fileName,
		FilePath:   localPath,
		FileURL:    fileURL,
		FileType:   strings.TrimPrefix(ext, "."),
		FileSize:   int64(len(content)),
		DatasetID:  s.cfg.DatasetID,
		UserID:     userID,
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, err
	}

	if store := storage.GetObjectStore(); store != nil {
		if err := store.PutKnowledgeFile(ctx, documentID, fileName,
			bytes.NewReader(content), int64(len(content)), http.DetectContentType(content)); err != nil {
			logger.Warn("对象存储镜像失败", zap.String("document_id", documentID), zap.Error(err))
		}
	}
	return record, nil
}

// ListDocuments 列出远程文档，并用本地映射表补充file_url
func (s *KnowledgeService) ListDocuments(ctx context.Context, keyword string, page, limit int) ([]KnowledgeDocument, int64, error) {
	if !s.Enabled() {
		return nil, 0, errors.NewValidationError("远程知识库未配置")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	endpoint := fmt.Sprintf("%s/v1/datasets/%s/documents?page=%d&limit=%d",
		strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.DatasetID, page, limit)
	if keyword != "" {
		endpoint += "&keyword=" + url.QueryEscape(keyword)
	}

	body, err := s.doJSON(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}

	var resp struct {
		Data []struct {
			ID             string `json:"id"`
			Name           string `json:"name"`
			WordCount      int    `json:"word_count"`
			IndexingStatus string `json:"indexing_status"`
			Enabled        bool   `json:"enabled"`
			CreatedAt      int64  `json:"created_at"`
		} `json:"data"`
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, errors.NewUpstreamError("知识库文档列表解析失败", err)
	}

	docIDs := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		docIDs = append(docIDs, d.ID)
	}

	fileMap := make(map[string]models.KnowledgeFile)
	if len(docIDs) > 0 {
		var files []models.KnowledgeFile
		if err := s.db.Where("document_id IN ?", docIDs).Find(&files).Error; err == nil {
			for _, f := range files {
				fileMap[f.DocumentID] = f
			}
		}
	}

	docs := make([]KnowledgeDocument, 0, len(resp.Data))
	for _, d := range resp.Data {
		doc := KnowledgeDocument{
			DocumentID:     d.ID,
			Name:           d.Name,
			WordCount:      d.WordCount,
			IndexingStatus: d.IndexingStatus,
			Enabled:        d.Enabled,
			CreatedAt:      d.CreatedAt,
		}
		if f, ok := fileMap[d.ID]; ok {
			doc.FileURL = f.FileURL
			doc.FileSize = f.FileSize
		}
		docs = append(docs, doc)
	}
	return docs, resp.Total, nil
}

// DeleteDocument 删除远程文档与本地镜像
func (s *KnowledgeService) DeleteDocument(ctx context.Context, documentID string) error {
	if !s.Enabled() {
		return errors.NewValidationError("远程知识库未配置")
	}

	endpoint := fmt.Sprintf("%s/v1/datasets/%s/documents/%s",
		strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.DatasetID, documentID)
	if _, err := s.doJSON(ctx, http.MethodDelete, endpoint, nil); err != nil {
		return err
	}

	var record models.KnowledgeFile
	if err := s.db.Where("document_id = ?", documentID).First(&record).Error; err == nil {
		if record.FilePath != "" {
			if err := os.Remove(record.FilePath); err != nil && !os.IsNotExist(err) {
				logger.Warn("删除本地镜像文件失败", zap.String("path", record.FilePath), zap.Error(err))
			}
		}
		if store := storage.GetObjectStore(); store != nil {
			if err := store.DeleteKnowledgeFile(ctx, documentID, record.FileName); err != nil {
				logger.Warn("删除对象存储镜像失败", zap.String("document_id", documentID), zap.Error(err))
			}
		}
		s.db.Delete(&record)
	}

	logger.Info("知识库文档已删除", zap.String("document_id", documentID))
	return nil
}

// doJSON 发送JSON请求并返回响应体，非2xx按上游错误处理
func (s *KnowledgeService) doJSON(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.NewUpstreamError("构建知识库请求失败", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, errors.NewUpstreamError("构建知识库请求失败", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, errors.NewUpstreamError("知识库请求失败", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewUpstreamError(
			fmt.Sprintf("知识库返回 %d", resp.StatusCode), nil).
			WithDetails(string(respBody))
	}
	return respBody, nil
}
