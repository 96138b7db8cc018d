package patch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"foliogen/internal/database"
)

var (
	// ErrNoResume 表示该用户名下没有可编辑的简历。
	ErrNoResume = errors.New("no resume for user")
	// ErrNotArray 表示目标集合不存在或不是数组。
	ErrNotArray = errors.New("target collection is not an array")
	// ErrIndexOutOfRange 表示数组下标越界。
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrInvalidURL 表示链接不是合法的绝对 URL。
	ErrInvalidURL = errors.New("invalid url")
	// ErrObjectMissing 表示引用的存储对象不存在。
	ErrObjectMissing = errors.New("storage object not found")
	// ErrConflict 表示乐观并发检查失败，文档已被并发修改。
	ErrConflict = errors.New("document modified concurrently")
	// ErrInvalidPath 表示字段路径为空或格式不合法。
	ErrInvalidPath = errors.New("invalid field path")
)

// ObjectStore 是补丁层需要的最小存储能力：存在性检查与可访问 URL。
type ObjectStore interface {
	ObjectExists(ctx context.Context, objectKey string) (bool, error)
	PublicURL(objectKey string) string
}

// Service 对当前简历的结构化文档做定点修改。
// 每个操作都是整份文档的读-改-写，通过 version 列做乐观并发检查，
// 未触及的字段保证逐字节不变。
type Service struct {
	db    *gorm.DB
	store ObjectStore
}

// NewService 构造补丁服务。
func NewService(db *gorm.DB, store ObjectStore) *Service {
	return &Service{db: db, store: store}
}

// SetField 设置顶层或点路径字段，路径上缺失的中间对象会被创建。
func (s *Service) SetField(ctx context.Context, userID uint, path string, value any) (datatypes.JSON, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}

	resume, err := s.activeResume(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated, err := sjson.SetBytes(documentBytes(resume), path, value)
	if err != nil {
		return nil, fmt.Errorf("set field %q: %w", path, err)
	}

	if err := s.write(ctx, resume, updated); err != nil {
		return nil, err
	}
	return datatypes.JSON(updated), nil
}

// ImageTarget 枚举允许写入图片 URL 的文档位置。
type ImageTarget struct {
	collection string
	subfield   string
	topLevel   string
}

var (
	// TargetProfilePicture 写入顶层 profilePicture。
	TargetProfilePicture = ImageTarget{topLevel: "profilePicture"}
	// TargetSchoolLogo 写入 education[i].logo。
	TargetSchoolLogo = ImageTarget{collection: "education", subfield: "logo"}
	// TargetCompanyLogo 写入 experience[i].companyLogo。
	TargetCompanyLogo = ImageTarget{collection: "experience", subfield: "companyLogo"}
	// TargetProjectImage 写入 projects[i].projectPicture。
	TargetProjectImage = ImageTarget{collection: "projects", subfield: "projectPicture"}
)

// SetImage 把已上传对象的可访问 URL 写入目标图片字段。
// 先确认对象存在，再做越界检查，任何一步失败都不会改动文档。
func (s *Service) SetImage(ctx context.Context, userID uint, target ImageTarget, index int, objectKey string) (string, error) {
	exists, err := s.store.ObjectExists(ctx, objectKey)
	if err != nil {
		return "", fmt.Errorf("check object %q: %w", objectKey, err)
	}
	if !exists {
		return "", ErrObjectMissing
	}
	imageURL := s.store.PublicURL(objectKey)

	resume, err := s.activeResume(ctx, userID)
	if err != nil {
		return "", err
	}
	doc := documentBytes(resume)

	var path string
	if target.topLevel != "" {
		path = target.topLevel
	} else {
		if err := checkArrayIndex(doc, target.collection, index); err != nil {
			return "", err
		}
		path = fmt.Sprintf("%s.%d.%s", target.collection, index, target.subfield)
	}

	updated, err := sjson.SetBytes(doc, path, imageURL)
	if err != nil {
		return "", fmt.Errorf("set image at %q: %w", path, err)
	}

	if err := s.write(ctx, resume, updated); err != nil {
		return "", err
	}
	return imageURL, nil
}

// ProjectLinks 记录一次项目链接更新；nil 表示该链接不动。
type ProjectLinks struct {
	GithubLink *string
	LiveLink   *string
}

// SetProjectLinks 更新指定项目的 github/live 链接。
// 非空链接必须是带 scheme 和 host 的绝对 URL，校验失败不改动存储。
func (s *Service) SetProjectLinks(ctx context.Context, userID uint, index int, links ProjectLinks) (datatypes.JSON, error) {
	for _, link := range []*string{links.GithubLink, links.LiveLink} {
		if link == nil || *link == "" {
			continue
		}
		if !validLink(*link) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidURL, *link)
		}
	}

	resume, err := s.activeResume(ctx, userID)
	if err != nil {
		return nil, err
	}
	doc := documentBytes(resume)

	if err := checkArrayIndex(doc, "projects", index); err != nil {
		return nil, err
	}

	updated := doc
	if links.GithubLink != nil {
		updated, err = sjson.SetBytes(updated, fmt.Sprintf("projects.%d.githubLink", index), *links.GithubLink)
		if err != nil {
			return nil, fmt.Errorf("set github link: %w", err)
		}
	}
	if links.LiveLink != nil {
		updated, err = sjson.SetBytes(updated, fmt.Sprintf("projects.%d.liveLink", index), *links.LiveLink)
		if err != nil {
			return nil, fmt.Errorf("set live link: %w", err)
		}
	}

	if err := s.write(ctx, resume, updated); err != nil {
		return nil, err
	}
	return datatypes.JSON(updated), nil
}

// activeResume 优先走账号上的 ActiveResumeID 外键，缺失时回退到最近一份。
func (s *Service) activeResume(ctx context.Context, userID uint) (*database.Resume, error) {
	var user database.User
	if err := s.db.WithContext(ctx).
		Select("id", "active_resume_id").
		First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoResume
		}
		return nil, err
	}

	if user.ActiveResumeID != nil {
		var resume database.Resume
		err := s.db.WithContext(ctx).
			Where("id = ? AND user_id = ?", *user.ActiveResumeID, userID).
			First(&resume).Error
		if err == nil {
			return &resume, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	var latest database.Resume
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoResume
	}
	if err != nil {
		return nil, err
	}
	return &latest, nil
}

// write 带版本条件写回整份文档；命中 0 行说明有并发写入。
func (s *Service) write(ctx context.Context, resume *database.Resume, doc []byte) error {
	res := s.db.WithContext(ctx).Model(&database.Resume{}).
		Where("id = ? AND version = ?", resume.ID, resume.Version).
		Updates(map[string]any{
			"fields":  datatypes.JSON(doc),
			"version": resume.Version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("write document: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func documentBytes(resume *database.Resume) []byte {
	if len(resume.Fields) == 0 {
		return []byte("{}")
	}
	return []byte(resume.Fields)
}

func checkArrayIndex(doc []byte, collection string, index int) error {
	arr := gjson.GetBytes(doc, collection)
	if !arr.Exists() || !arr.IsArray() {
		return fmt.Errorf("%w: %s", ErrNotArray, collection)
	}
	if index < 0 || index >= len(arr.Array()) {
		return fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, collection, index)
	}
	return nil
}

func validatePath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" || strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") {
		return ErrInvalidPath
	}
	if path == "schema_version" {
		return ErrInvalidPath
	}
	return nil
}

func validLink(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
