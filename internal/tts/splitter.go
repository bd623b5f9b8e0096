// Package tts 语音合成：句子切分、厂商客户端与WAV封装。
package tts

import (
	"regexp"
	"strings"
)

// MaxSentenceLength 单句最大长度（厂商接口的实际限制）
const MaxSentenceLength = 200

// hardCutSize 所有切分手段都失败时的硬切块大小
const hardCutSize = 150

var (
	sentenceEndRe = regexp.MustCompile(`([。！？；]+|\n{2,})`)
	punctOnlyRe   = regexp.MustCompile(`^[。！？；]+$`)
	newlinesRe    = regexp.MustCompile(`\n+`)
	boldSpanRe    = regexp.MustCompile(`\*\*.*?\*\*`)
	validCharRe   = regexp.MustCompile(`[\x{4e00}-\x{9fa5}a-zA-Z0-9]`)
)

// 列表项起始标记
var bulletMarkers = []string{"- ", "✅ ", "❌ ", "⚠️ ", "🍋 "}

// SplitSentences 将长文本切成适合逐句合成的句子列表。
// 优先按句末标点切分并保留标点；整段无句末标点时依次尝试
// 列表项、加粗段落、换行切分；超长句子递归细分；
// 不含中英文或数字的片段（纯标点、表情）被丢弃。
func SplitSentences(text string) []string {
	sentences := splitByPunctuation(text)

	if len(sentences) <= 1 {
		if items := splitByBullets(text); len(items) > 1 {
			sentences = items
		}
	}
	if len(sentences) <= 1 && strings.Contains(text, "**") {
		if parts := splitByBoldSpans(text, 300); len(parts) > 1 {
			sentences = parts
		}
	}
	if len(sentences) <= 1 {
		if lines := splitByNewlines(text); len(lines) > len(sentences) {
			sentences = lines
		}
	}

	// 超长句子细分
	resized := make([]string, 0, len(sentences))
	for _, sent := range sentences {
		if runeLen(sent) <= MaxSentenceLength {
			resized = append(resized, sent)
		} else {
			resized = append(resized, splitLongSentence(sent, MaxSentenceLength)...)
		}
	}

	// 过滤无有效字符的片段
	valid := make([]string, 0, len(resized))
	for _, sent := range resized {
		if HasValidText(sent) {
			valid = append(valid, sent)
		}
	}
	return valid
}

// HasValidText 是否包含中文、英文字母或数字
func HasValidText(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return validCharRe.MatchString(text)
}

// splitByPunctuation 按句末标点切分，标点归属前一段文本
func splitByPunctuation(text string) []string {
	parts := splitKeepingDelims(text)

	sentences := make([]string, 0)
	current := ""
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		if punctOnlyRe.MatchString(trimmed) || isDoubleNewline(part) {
			current += trimmed
			if strings.TrimSpace(current) != "" {
				sentences = append(sentences, strings.TrimSpace(current))
				current = ""
			}
		} else {
			current += trimmed
		}
	}
	if strings.TrimSpace(current) != "" {
		sentences = append(sentences, strings.TrimSpace(current))
	}
	return sentences
}

// splitKeepingDelims 按句末标点/连续换行切分并保留分隔符本身
func splitKeepingDelims(text string) []string {
	locs := sentenceEndRe.FindAllStringIndex(text, -1)
	parts := make([]string, 0, len(locs)*2+1)
	last := 0
	for _, loc := range locs {
		if loc[0] > last {
			parts = append(parts, text[last:loc[0]])
		}
		parts = append(parts, text[loc[0]:loc[1]])
		last = loc[1]
	}
	if last < len(text) {
		parts = append(parts, text[last:])
	}
	return parts
}

func isDoubleNewline(s string) bool {
	trimmed := strings.Trim(s, " \t")
	return strings.Count(trimmed, "\n") >= 2 && strings.Trim(trimmed, "\n") == ""
}

func startsWithBullet(line string) bool {
	for _, marker := range bulletMarkers {
		if strings.HasPrefix(line, marker) {
			return true
		}
	}
	return false
}

// splitByBullets 按列表项聚合：标记行开新项，续行并入当前项
func splitByBullets(text string) []string {
	hasMarker := false
	for _, marker := range bulletMarkers {
		if strings.Contains(text, "\n"+marker) || strings.HasPrefix(text, marker) {
			hasMarker = true
			break
		}
	}
	if !hasMarker {
		return nil
	}

	items := make([]string, 0)
	current := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if startsWithBullet(line) {
			if current != "" {
				items = append(items, current)
			}
			current = line
		} else {
			if current != "" {
				current += "\n" + line
			} else {
				current = line
			}
		}
	}
	if current != "" {
		items = append(items, current)
	}
	return items
}

// splitByBoldSpans 以 **加粗** 片段为界切分，再把相邻短段合并到maxLen以内
func splitByBoldSpans(text string, maxLen int) []string {
	bolds := boldSpanRe.FindAllString(text, -1)
	if len(bolds) == 0 {
		return nil
	}

	parts := make([]string, 0)
	remaining := text
	for _, bold := range bolds {
		idx := strings.Index(remaining, bold)
		if idx < 0 {
			continue
		}
		if before := strings.TrimSpace(remaining[:idx]); before != "" {
			parts = append(parts, before)
		}
		parts = append(parts, bold)
		remaining = remaining[idx+len(bold):]
	}
	if tail := strings.TrimSpace(remaining); tail != "" {
		parts = append(parts, tail)
	}

	merged := make([]string, 0, len(parts))
	current := ""
	for _, part := range parts {
		if runeLen(current)+runeLen(part) <= maxLen {
			if current != "" {
				current += " "
			}
			current += part
		} else {
			if current != "" {
				merged = append(merged, current)
			}
			current = part
		}
	}
	if current != "" {
		merged = append(merged, current)
	}
	return merged
}

func splitByNewlines(text string) []string {
	parts := newlinesRe.Split(text, -1)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// splitLongSentence 细分超长句子：列表项 > 加粗段落 > 换行/标点贪心合并 > 硬切
func splitLongSentence(text string, maxLen int) []string {
	if runeLen(text) <= maxLen {
		return []string{text}
	}

	if items := splitByBullets(text); len(items) > 1 {
		return resplitOversized(items, maxLen)
	}
	if strings.Contains(text, "**") {
		if parts := splitByBoldSpans(text, maxLen); len(parts) > 1 {
			return resplitOversized(parts, maxLen)
		}
	}

	seps := []string{"\n\n", "。\n", "！\n", "？\n", "；\n", "\n", "。", "！", "？", "；"}
	for _, sep := range seps {
		if !strings.Contains(text, sep) {
			continue
		}
		parts := strings.Split(text, sep)
		result := make([]string, 0)
		current := ""
		for _, part := range parts {
			candidate := current
			if candidate != "" {
				candidate += sep
			}
			candidate += part
			if runeLen(candidate) <= maxLen {
				current = candidate
			} else {
				if current != "" {
					result = append(result, current)
				}
				current = part
			}
		}
		if current != "" {
			result = append(result, current)
		}

		cleaned := make([]string, 0, len(result))
		for _, r := range result {
			if trimmed := strings.TrimSpace(r); trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 1 {
			return resplitOversized(cleaned, maxLen)
		}
	}

	return hardCut(text, hardCutSize)
}

// resplitOversized 对仍超长的片段递归细分
func resplitOversized(parts []string, maxLen int) []string {
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if runeLen(p) <= maxLen {
			result = append(result, p)
		} else {
			result = append(result, hardCut(p, hardCutSize)...)
		}
	}
	return result
}

// hardCut 按固定块大小切分，回退最多30个字符寻找标点或空白断点
func hardCut(text string, chunkSize int) []string {
	runes := []rune(text)
	result := make([]string, 0)
	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end >= len(runes) {
			if chunk := strings.TrimSpace(string(runes[start:])); chunk != "" {
				result = append(result, chunk)
			}
			break
		}

		bestEnd := end
		for k := 0; k < 30 && end-k > start; k++ {
			pos := end - k
			if pos < len(runes) && isBreakRune(runes[pos]) {
				bestEnd = pos + 1
				break
			}
		}

		if chunk := strings.TrimSpace(string(runes[start:bestEnd])); chunk != "" {
			result = append(result, chunk)
		}
		start = bestEnd
	}
	return result
}

func isBreakRune(r rune) bool {
	switch r {
	case '。', '！', '？', '；', '\n', ' ':
		return true
	}
	return false
}

func runeLen(s string) int {
	return len([]rune(s))
}
