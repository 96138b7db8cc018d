package extract

import "strings"

// stripCodeFence 去掉模型输出里包裹 JSON 的 Markdown 代码围栏。
// 即便请求了 JSON 响应格式，部分模型仍会带上 ```json ... ```。
func stripCodeFence(input string) string {
	clean := strings.TrimSpace(input)

	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")

	clean = strings.TrimSuffix(clean, "```")

	return strings.TrimSpace(clean)
}
