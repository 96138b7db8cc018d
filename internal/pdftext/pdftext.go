package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MIMEPDF 是上传入口唯一接受的文件类型。
const MIMEPDF = "application/pdf"

var (
	// ErrNotPDF 表示文件类型不是 application/pdf。
	ErrNotPDF = errors.New("file is not a pdf")
	// ErrTooLarge 表示文件超过了允许的大小上限。
	ErrTooLarge = errors.New("file exceeds size limit")
	// ErrEmptyText 表示 PDF 中没有可提取的文本。
	ErrEmptyText = errors.New("no extractable text in pdf")
)

// ValidateUpload 在任何数据库写入之前做类型与大小校验。
func ValidateUpload(contentType string, size, maxBytes int64) error {
	if !strings.EqualFold(strings.TrimSpace(contentType), MIMEPDF) {
		return ErrNotPDF
	}
	if size > maxBytes {
		return ErrTooLarge
	}
	return nil
}

// Extract 从 PDF 字节中取出纯文本，按页拼接。
// 单页取文失败会被跳过，全部为空才算错误。
func Extract(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	var textBuilder strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		textBuilder.WriteString(text)
	}

	result := strings.TrimSpace(textBuilder.String())
	if result == "" {
		return "", ErrEmptyText
	}
	return result, nil
}
