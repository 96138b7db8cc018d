package portfolio

// Section 名称与前端模板的分区一一对应。
const (
	SectionHero           = "hero"
	SectionAbout          = "about"
	SectionExperience     = "experience"
	SectionEducation      = "education"
	SectionSkills         = "skills"
	SectionProjects       = "projects"
	SectionCertifications = "certifications"
	SectionActivities     = "activities"
	SectionContact        = "contact"
)

// View 是交给展示层的视图模型：完整文档加上按内容裁剪后的分区列表。
type View struct {
	Document *Document `json:"document"`
	Sections []string  `json:"sections"`
}

// BuildView 根据数组非空与否决定哪些分区出现在页面上。
// hero 与 contact 永远保留，其余分区没有内容就整段隐藏。
func BuildView(doc *Document) *View {
	doc.ApplyDefaults()

	sections := []string{SectionHero}
	if len(doc.About) > 0 {
		sections = append(sections, SectionAbout)
	}
	if len(doc.Experience) > 0 {
		sections = append(sections, SectionExperience)
	}
	if len(doc.Education) > 0 {
		sections = append(sections, SectionEducation)
	}
	if len(doc.Skills) > 0 {
		sections = append(sections, SectionSkills)
	}
	if len(doc.Projects) > 0 {
		sections = append(sections, SectionProjects)
	}
	if len(doc.Certifications) > 0 {
		sections = append(sections, SectionCertifications)
	}
	if len(doc.Activities.CampusInvolvement) > 0 || len(doc.Activities.AreasOfInterest) > 0 {
		sections = append(sections, SectionActivities)
	}
	sections = append(sections, SectionContact)

	return &View{
		Document: doc,
		Sections: sections,
	}
}
