package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zhitang/assistant-go/internal/models"
)

func newSearchFixture() *FAQService {
	return &FAQService{
		index: []faqIndexEntry{
			{
				faq: models.FAQ{ID: 1, Question: "低血糖怎么办", Answer: "立即补充快速碳水", Category: "应急处理"},
				keywords: []models.FAQKeyword{
					{Keyword: "低血糖", Weight: models.KeywordWeightManual},
					{Keyword: "怎么办", Weight: models.KeywordWeightAuto},
				},
			},
			{
				faq: models.FAQ{ID: 2, Question: "运动前要注意什么", Answer: "运动前监测血糖", Category: "运动管理"},
				keywords: []models.FAQKeyword{
					{Keyword: "运动", Weight: models.KeywordWeightManual},
					{Keyword: "低血糖", Weight: models.KeywordWeightAuto},
				},
			},
			{
				faq: models.FAQ{ID: 3, Question: "胰岛素如何保存", Answer: "未开封冷藏保存", Category: "用药管理"},
				keywords: []models.FAQKeyword{
					{Keyword: "胰岛素", Weight: models.KeywordWeightManual},
					{Keyword: "保存", Weight: models.KeywordWeightManual},
				},
			},
		},
	}
}

func TestSearchChineseSentenceQuery(t *testing.T) {
	s := newSearchFixture()

	// 整句无空格，作为一个查询词做子串匹配
	results := s.Search("孩子低血糖怎么办", 5, 0)

	assert.Len(t, results, 2)
	assert.Equal(t, uint(1), results[0].FAQID)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Contains(t, results[0].Matched, "低血糖")
}

func TestSearchManualKeywordOutranksAuto(t *testing.T) {
	s := newSearchFixture()

	results := s.Search("低血糖", 5, 0)

	assert.Len(t, results, 2)
	assert.Equal(t, uint(1), results[0].FAQID)
	assert.Equal(t, uint(2), results[1].FAQID)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Equal(t, 0.5, results[1].Score)
}

func TestSearchMinScoreFilter(t *testing.T) {
	s := newSearchFixture()

	results := s.Search("低血糖", 5, 0.6)

	assert.Len(t, results, 1)
	assert.Equal(t, uint(1), results[0].FAQID)
}

func TestSearchTopKTruncation(t *testing.T) {
	s := newSearchFixture()

	results := s.Search("低血糖", 1, 0)

	assert.Len(t, results, 1)
	assert.Equal(t, uint(1), results[0].FAQID)
}

func TestSearchMultiTokenAccumulates(t *testing.T) {
	s := newSearchFixture()

	// 两个词都命中FAQ3的手动关键词，归一化后得满分
	results := s.Search("胰岛素 保存", 5, 0)

	assert.NotEmpty(t, results)
	assert.Equal(t, uint(3), results[0].FAQID)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Len(t, results[0].Matched, 2)
}

func TestSearchNoMatch(t *testing.T) {
	s := newSearchFixture()

	assert.Nil(t, s.Search("今天天气如何", 5, 0))
	assert.Nil(t, s.Search("", 5, 0))
	assert.Nil(t, s.Search("  ，。  ", 5, 0))
}

func TestTokenizeQuery(t *testing.T) {
	assert.Equal(t, []string{"血糖", "高", "怎么办"}, tokenizeQuery("血糖 高，怎么办。"))
	assert.Equal(t, []string{"孩子低血糖怎么办"}, tokenizeQuery("孩子低血糖怎么办"))
	assert.Empty(t, tokenizeQuery("   "))
}

func TestKeywordHit(t *testing.T) {
	assert.True(t, keywordHit("低血糖", "低血糖"))
	assert.True(t, keywordHit("孩子低血糖怎么办", "低血糖"))
	assert.True(t, keywordHit("血糖", "低血糖"))
	assert.False(t, keywordHit("运动", "低血糖"))
	assert.False(t, keywordHit("", "低血糖"))
	assert.False(t, keywordHit("低血糖", ""))
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `["a","b"]`, stripCodeFence("```json\n[\"a\",\"b\"]\n```"))
	assert.Equal(t, `["a"]`, stripCodeFence("```\n[\"a\"]\n```"))
	assert.Equal(t, `["a"]`, stripCodeFence(`["a"]`))
}
