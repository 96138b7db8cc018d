package portfolio

import (
	"encoding/json"
	"fmt"
)

// ParseFailedNotes 是解码失败时写入占位文档的说明文字。
const ParseFailedNotes = "Failed to parse resume data"

// Decode 将 JSON 字节解析为文档并补齐默认值。
// 输入必须是一个 JSON 对象；数组字段缺失时填为空数组，避免渲染端到处判空。
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode portfolio document: %w", err)
	}
	doc.ApplyDefaults()
	return &doc, nil
}

// Encode 校验并序列化文档，写库前统一走这里。
func Encode(doc *Document) ([]byte, error) {
	doc.ApplyDefaults()
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode portfolio document: %w", err)
	}
	return data, nil
}

// ApplyDefaults 补齐 schema 版本与所有可选字段的默认值。
func (d *Document) ApplyDefaults() {
	d.SchemaVersion = SchemaVersion
	if d.About == nil {
		d.About = []string{}
	}
	if d.Skills == nil {
		d.Skills = []string{}
	}
	if d.Education == nil {
		d.Education = []Education{}
	}
	if d.Experience == nil {
		d.Experience = []Experience{}
	}
	if d.Projects == nil {
		d.Projects = []Project{}
	}
	if d.Certifications == nil {
		d.Certifications = []Certification{}
	}
	if d.Activities.CampusInvolvement == nil {
		d.Activities.CampusInvolvement = []string{}
	}
	if d.Activities.AreasOfInterest == nil {
		d.Activities.AreasOfInterest = []string{}
	}
	for i := range d.Education {
		e := &d.Education[i]
		if e.Courses == nil {
			e.Courses = []string{}
		}
		if e.Activities == nil {
			e.Activities = []string{}
		}
		if e.Honors == nil {
			e.Honors = []string{}
		}
	}
	for i := range d.Experience {
		if d.Experience[i].Description == nil {
			d.Experience[i].Description = []string{}
		}
	}
	for i := range d.Projects {
		if d.Projects[i].Tags == nil {
			d.Projects[i].Tags = []string{}
		}
	}
}

// PlaceholderDocument 返回解码失败时使用的最小占位文档。
func PlaceholderDocument(notes string) *Document {
	doc := &Document{ParserNotes: notes}
	doc.ApplyDefaults()
	return doc
}
