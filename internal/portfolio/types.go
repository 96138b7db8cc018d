package portfolio

// SchemaVersion 标记当前结构化文档的模板版本，写库时统一打上。
const SchemaVersion = 1

// Document 表示存储在简历 Fields(JSONB) 中的作品集文档。
type Document struct {
	SchemaVersion  int             `json:"schema_version"`
	Name           string          `json:"name"`
	ProfilePicture *string         `json:"profilePicture"`
	Contact        Contact         `json:"contact"`
	Title          string          `json:"title"`
	About          []string        `json:"about"`
	Description    string          `json:"description"`
	Education      []Education     `json:"education"`
	Experience     []Experience    `json:"experience"`
	Projects       []Project       `json:"projects"`
	Skills         []string        `json:"skills"`
	Certifications []Certification `json:"certifications"`
	Activities     Activities      `json:"activities"`
	ParserNotes    string          `json:"parser_notes,omitempty"`
}

// Contact 保存联系方式。
type Contact struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

// Education 表示一条教育经历。
type Education struct {
	School     string   `json:"school"`
	Degree     string   `json:"degree"`
	Period     *string  `json:"period"`
	Logo       *string  `json:"logo"`
	Courses    []string `json:"courses"`
	Activities []string `json:"activities"`
	Honors     []string `json:"honors"`
	GPA        *string  `json:"gpa"`
}

// Experience 表示一条工作经历。
type Experience struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	CompanyLogo *string  `json:"companyLogo"`
	Period      *string  `json:"period"`
	Location    *string  `json:"location"`
	Description []string `json:"description"`
}

// Project 表示一个项目条目。
type Project struct {
	Title          string   `json:"title"`
	ProjectPicture *string  `json:"projectPicture"`
	Description    string   `json:"description"`
	Period         *string  `json:"period"`
	Tags           []string `json:"tags"`
	GithubLink     *string  `json:"githubLink"`
	LiveLink       *string  `json:"liveLink"`
}

// Certification 表示一条证书。
type Certification struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Activities 对活动做两类分组。
type Activities struct {
	CampusInvolvement []string `json:"campusInvolvement"`
	AreasOfInterest   []string `json:"areasOfInterest"`
}
