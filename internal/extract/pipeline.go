package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"foliogen/internal/database"
	"foliogen/internal/portfolio"
)

// 解析失败策略。lenient 复刻线上观察到的行为：写入占位文档并标记
// processed；strict 把解析失败当作提取失败，标记 error 且不动文档。
const (
	PolicyLenient = "lenient"
	PolicyStrict  = "strict"
)

var (
	// ErrResumeGone 表示任务执行时简历记录已不存在（例如处理中途被删除）。
	ErrResumeGone = errors.New("resume record no longer exists")
	// ErrDecodeFailed 表示模型输出无法解析为合法文档（仅 strict 策略下对外可见）。
	ErrDecodeFailed = errors.New("oracle response is not valid json")
)

// Pipeline 将简历纯文本转换为结构化作品集文档。
// 流程固定且串行：状态置 processing → 调用补全服务 → 解析 → 一次性
// 写回文档与终态。调用方（队列 worker）负责重试与通知。
type Pipeline struct {
	db     *gorm.DB
	oracle Oracle
	policy string
	logger *slog.Logger
}

// NewPipeline 构造提取流水线。
func NewPipeline(db *gorm.DB, oracle Oracle, policy string, logger *slog.Logger) *Pipeline {
	if policy != PolicyStrict {
		policy = PolicyLenient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		db:     db,
		oracle: oracle,
		policy: policy,
		logger: logger,
	}
}

// Run 对指定简历执行一次完整提取。
// 记录缺失返回 ErrResumeGone；补全服务失败时状态已被置为 error，
// 原样返回错误交由队列决定是否重试。
func (p *Pipeline) Run(ctx context.Context, resumeID uint) error {
	log := p.logger.With(slog.Uint64("resume_id", uint64(resumeID)))

	var resume database.Resume
	if err := p.db.WithContext(ctx).First(&resume, resumeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResumeGone
		}
		return fmt.Errorf("load resume: %w", err)
	}

	if resume.Status == database.StatusProcessed {
		log.Warn("resume already processed, skipping")
		return nil
	}

	// 调用前恰好一次状态写入。
	if err := p.setStatus(ctx, resume.ID, database.StatusProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	raw, err := p.oracle.Complete(ctx, systemPrompt, buildUserPrompt(resume.ResumeText))
	if err != nil {
		log.Error("oracle call failed", slog.Any("error", err))
		if statusErr := p.setStatus(ctx, resume.ID, database.StatusError); statusErr != nil {
			log.Error("mark error status failed", slog.Any("error", statusErr))
		}
		return err
	}

	doc, decodeErr := p.decode(raw)
	if decodeErr != nil {
		log.Warn("decode oracle response failed",
			slog.String("policy", p.policy),
			slog.Any("error", decodeErr),
		)
		if p.policy == PolicyStrict {
			if statusErr := p.setStatus(ctx, resume.ID, database.StatusError); statusErr != nil {
				log.Error("mark error status failed", slog.Any("error", statusErr))
			}
			return fmt.Errorf("%w: %v", ErrDecodeFailed, decodeErr)
		}
		doc = portfolio.PlaceholderDocument(portfolio.ParseFailedNotes)
	}

	if err := p.storeResult(ctx, &resume, doc); err != nil {
		return fmt.Errorf("store extraction result: %w", err)
	}

	log.Info("resume extraction completed",
		slog.Bool("decoded", decodeErr == nil),
	)
	return nil
}

// decode 去掉代码围栏后解析为文档。空响应视作解析失败。
func (p *Pipeline) decode(raw string) (*portfolio.Document, error) {
	clean := stripCodeFence(raw)
	if clean == "" {
		return nil, errors.New("no data received from oracle")
	}
	if !strings.HasPrefix(clean, "{") {
		return nil, fmt.Errorf("response is not a json object")
	}
	return portfolio.Decode([]byte(clean))
}

func (p *Pipeline) setStatus(ctx context.Context, resumeID uint, status string) error {
	return p.db.WithContext(ctx).Model(&database.Resume{}).
		Where("id = ?", resumeID).
		Update("status", status).Error
}

// storeResult 一次性写入文档与终态，并把账号的作品集标记置位。
func (p *Pipeline) storeResult(ctx context.Context, resume *database.Resume, doc *portfolio.Document) error {
	data, err := portfolio.Encode(doc)
	if err != nil {
		return err
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&database.Resume{}).
			Where("id = ?", resume.ID).
			Updates(map[string]any{
				"fields":  datatypes.JSON(data),
				"status":  database.StatusProcessed,
				"version": gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		// 提取期间记录被删除：整个写回作废，账号标记也不能动。
		if res.RowsAffected == 0 {
			return ErrResumeGone
		}

		return tx.Model(&database.User{}).
			Where("id = ?", resume.UserID).
			Update("has_generated_portfolio", true).Error
	})
}
