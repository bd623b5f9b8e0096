package tts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSentencesByPunctuation(t *testing.T) {
	result := SplitSentences("第一句。第二句！第三句？")

	assert.Equal(t, []string{"第一句。", "第二句！", "第三句？"}, result)
}

func TestSplitSentencesKeepsTrailingText(t *testing.T) {
	result := SplitSentences("你好！这是第二句")

	assert.Equal(t, []string{"你好！", "这是第二句"}, result)
}

func TestSplitSentencesByBullets(t *testing.T) {
	text := "低血糖时可以这样处理：\n- 立即停止运动\n- 补充15克快速碳水\n- 15分钟后复测血糖"
	result := SplitSentences(text)

	assert.Len(t, result, 4)
	assert.Equal(t, "低血糖时可以这样处理：", result[0])
	assert.Equal(t, "- 立即停止运动", result[1])
	assert.Equal(t, "- 15分钟后复测血糖", result[3])
}

func TestSplitSentencesBulletContinuationLines(t *testing.T) {
	text := "✅ 第一项\n这一行属于第一项\n✅ 第二项"
	result := SplitSentences(text)

	assert.Len(t, result, 2)
	assert.Equal(t, "✅ 第一项\n这一行属于第一项", result[0])
	assert.Equal(t, "✅ 第二项", result[1])
}

func TestSplitSentencesByBoldSpans(t *testing.T) {
	filler := strings.Repeat("说", 180)
	text := "**第一节**" + filler + "**第二节**" + filler

	result := SplitSentences(text)

	assert.GreaterOrEqual(t, len(result), 2)
	for _, sent := range result {
		assert.LessOrEqual(t, len([]rune(sent)), MaxSentenceLength)
	}
}

func TestSplitSentencesResplitsLongSentence(t *testing.T) {
	text := strings.Repeat("糖", 500)
	result := SplitSentences(text)

	assert.Greater(t, len(result), 1)
	total := 0
	for _, sent := range result {
		n := len([]rune(sent))
		assert.LessOrEqual(t, n, MaxSentenceLength)
		total += n
	}
	assert.Equal(t, 500, total)
}

func TestSplitSentencesDropsInvalidFragments(t *testing.T) {
	assert.Empty(t, SplitSentences("。。。"))
	assert.Empty(t, SplitSentences("😀！"))
	assert.Empty(t, SplitSentences("   "))
}

func TestSplitSentencesMixedContent(t *testing.T) {
	result := SplitSentences("血糖偏高。😀！记得补水。")

	assert.Equal(t, []string{"血糖偏高。", "记得补水。"}, result)
}

func TestHasValidText(t *testing.T) {
	assert.True(t, HasValidText("你好"))
	assert.True(t, HasValidText("hello"))
	assert.True(t, HasValidText("123"))
	assert.False(t, HasValidText("！！！"))
	assert.False(t, HasValidText("😀"))
	assert.False(t, HasValidText("   "))
	assert.False(t, HasValidText(""))
}
