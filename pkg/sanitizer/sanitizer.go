package sanitizer

import (
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var (
	placeholderPattern = regexp.MustCompile(`\{\{\s*[\w.-]+\s*\}\}`)
	styleValuePattern  = regexp.MustCompile(`^[\w\s#%.,'"()-]+$`)
)

// 邮件模板常用的内联样式
var templateStyles = []string{
	"background", "background-color", "border", "border-radius", "color", "display",
	"font-family", "font-size", "font-weight", "line-height", "margin", "max-width",
	"padding", "text-align", "text-decoration", "width", "word-break",
}

var (
	ugcOnce   sync.Once
	ugcPolicy *bluemonday.Policy

	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy
)

func ugc() *bluemonday.Policy {
	ugcOnce.Do(func() {
		ugcPolicy = bluemonday.UGCPolicy()
		ugcPolicy.RequireNoFollowOnLinks(true)
		ugcPolicy.AddTargetBlankToFullyQualifiedLinks(true)
		ugcPolicy.AllowStyles(templateStyles...).Matching(styleValuePattern).Globally()
	})
	return ugcPolicy
}

func strict() *bluemonday.Policy {
	strictOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// SanitizeHTML 清理模板等管理员提交的 HTML，保留常见排版标签，
// 移除脚本、事件属性与危险协议。模板占位符 {{var}} 原样保留，包括 href 中的。
func SanitizeHTML(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	masked, restore := maskPlaceholders(input)
	return restore(ugc().Sanitize(masked))
}

// maskPlaceholders 把 {{var}} 换成纯字母数字的标记，避免被转义或 URL 编码。
func maskPlaceholders(input string) (string, func(string) string) {
	if !strings.Contains(input, "{{") {
		return input, func(s string) string { return s }
	}
	nonce := "tpl" + strings.ReplaceAll(uuid.NewString(), "-", "")
	var pairs []string
	seen := make(map[string]string)
	masked := placeholderPattern.ReplaceAllStringFunc(input, func(m string) string {
		if tok, ok := seen[m]; ok {
			return tok
		}
		tok := nonce + "n" + strconv.Itoa(len(seen)) + "e"
		seen[m] = tok
		pairs = append(pairs, tok, m)
		return tok
	})
	r := strings.NewReplacer(pairs...)
	return masked, r.Replace
}

// SanitizeText 移除所有标签并转义剩余文本，适用于写入 HTML 邮件正文的用户输入。
func SanitizeText(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	return strings.TrimSpace(strict().Sanitize(input))
}

// StripTags 移除字符串中的所有 HTML/XML 标签，只保留文本内容。
// 该函数使用 HTML tokenizer 遍历输入，仅提取文本节点。
//
// 注意：返回值未转义，不应直接写入 HTML。
//
// 示例：
//   - "<p>Hello <strong>World</strong></p>" -> "Hello World"
//   - "Plain text" -> "Plain text"
func StripTags(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	if !strings.Contains(input, "<") && !strings.Contains(input, "&") {
		return input
	}

	tokenizer := html.NewTokenizer(strings.NewReader(input))
	var buf strings.Builder

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			if tokenizer.Err() == io.EOF {
				break
			}
			return ""
		}

		if tt == html.TextToken {
			buf.WriteString(tokenizer.Token().Data)
		}
	}

	return strings.TrimSpace(buf.String())
}
