package translate

import (
	"regexp"
	"strings"
)

// 修复缺失逗号等常见模型输出问题的正则
var (
	reObjGap       = regexp.MustCompile(`\}\s*\{`)
	reStrNewline   = regexp.MustCompile(`"\s*\n\s*"`)
	reStrObjGap    = regexp.MustCompile(`"\s*\n\s*\{`)
	reObjStrGap    = regexp.MustCompile(`\}\s*\n\s*"`)
	reTrailingObj  = regexp.MustCompile(`,\s*\}`)
	reTrailingArr  = regexp.MustCompile(`,\s*\]`)
	reValueKeyGap  = regexp.MustCompile(`(\d|true|false|null|")\s+("[\w_]+")\s*:`)
	reStringKeyGap = regexp.MustCompile(`("\s*:\s*"[^"]*")\s+("[\w_]+")\s*:`)
)

// RepairJSON 修复模型输出中常见的 JSON 缺陷
// 处理三类问题: markdown 包裹、截断 (未闭合的括号和字符串)、缺失或多余的逗号
func RepairJSON(content string) string {
	s := strings.TrimSpace(content)
	if s == "" {
		return s
	}

	// 剥离 markdown 代码块，定位 JSON 主体
	start := strings.IndexAny(s, "{[")
	if start >= 0 {
		endObj := strings.LastIndex(s, "}")
		endArr := strings.LastIndex(s, "]")
		end := endObj
		if endArr > end {
			end = endArr
		}
		if end > start {
			s = s[start : end+1]
		} else {
			s = s[start:]
		}
	}

	s = repairTruncated(s)

	// 对象之间与键值对之间缺失的逗号
	s = reObjGap.ReplaceAllString(s, "},{")
	s = reStrNewline.ReplaceAllString(s, "\",\n\"")
	s = reStrObjGap.ReplaceAllString(s, "\",\n{")
	s = reObjStrGap.ReplaceAllString(s, "},\n\"")
	s = reValueKeyGap.ReplaceAllString(s, "$1,\n$2:")
	s = reStringKeyGap.ReplaceAllString(s, "$1,\n$2:")

	// 尾逗号
	s = reTrailingObj.ReplaceAllString(s, "}")
	s = reTrailingArr.ReplaceAllString(s, "]")

	return s
}

// repairTruncated 修复被截断的 JSON: 闭合未结束的字符串并补齐括号
func repairTruncated(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}

	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' && !escaped:
			inString = !inString
			escaped = false
		case c == '\\' && inString:
			escaped = !escaped
		default:
			escaped = false
		}
		if !inString {
			switch c {
			case '{', '[':
				stack = append(stack, c)
			case '}', ']':
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			}
		}
	}

	if inString {
		s += "\""
	}

	trimmed := strings.TrimRight(s, " \t\n\r")
	if strings.HasSuffix(trimmed, ":") {
		s = trimmed + " null"
	} else if strings.HasSuffix(trimmed, ",") {
		s = trimmed[:len(trimmed)-1]
	}

	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			s += "}"
		} else {
			s += "]"
		}
	}

	return s
}

// LooksLikeJSON 判断内容是否像 JSON 响应
// 不像时调用方可以把整段内容当作纯文本译文处理
func LooksLikeJSON(content string) bool {
	return strings.Contains(content, "{") || strings.Contains(content, "translations")
}
