package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"phPortfolio/internal/apperror"
	"phPortfolio/internal/database"
)

// AvatarStore 是头像资产管理器的契约（internal/media 提供 Cloudinary 实现）。
// Upload 失败时调用方不得持久化任何引用；Delete 失败由调用方记日志吞掉。
type AvatarStore interface {
	Upload(ctx context.Context, data []byte, fileName string) (*AvatarRef, error)
	Delete(ctx context.Context, publicID string) error
}

// ArtifactRemover 删除档案关联的导出产物（MinIO 对象）。
type ArtifactRemover interface {
	DeleteObject(ctx context.Context, objectKey string) error
}

// Store 拥有档案文档的全部读写路径。
// 所有写操作在产生副作用之前完成归属校验；单文档写入的原子性交给底层存储。
type Store struct {
	db        *gorm.DB
	avatars   AvatarStore
	artifacts ArtifactRemover
	logger    *slog.Logger
}

// NewStore 构造档案存储。artifacts 可为 nil（不清理导出产物）。
func NewStore(db *gorm.DB, avatars AvatarStore, artifacts ArtifactRemover, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, avatars: avatars, artifacts: artifacts, logger: logger}
}

// CreateInput 描述创建档案所需的数据。
type CreateInput struct {
	Document       Document
	AvatarData     []byte
	AvatarFileName string
}

// Create 持久化一份新档案。
// 同一属主下 personal.name 重复时拒绝（按属主限定，不是全局唯一）。
func (s *Store) Create(ctx context.Context, ownerID uint, input CreateInput) (*Record, error) {
	doc := input.Document
	doc.Normalize()

	if doc.Personal.Name == "" {
		return nil, apperror.Validation("personal.name is required")
	}

	var existing []database.Profile
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Find(&existing).Error; err != nil {
		return nil, apperror.Upstream("query profiles", err)
	}
	for i := range existing {
		record, err := decodeProfile(&existing[i])
		if err != nil {
			continue
		}
		if strings.EqualFold(record.Document.Personal.Name, doc.Personal.Name) {
			return nil, apperror.Conflict("a profile with this name already exists")
		}
	}

	if len(input.AvatarData) > 0 {
		ref, err := s.avatars.Upload(ctx, input.AvatarData, input.AvatarFileName)
		if err != nil {
			return nil, apperror.Upstream("upload avatar", err)
		}
		doc.Personal.Avatar = ref
	}

	model := database.Profile{UserID: ownerID}
	if err := encodeDocument(&model, doc); err != nil {
		return nil, apperror.Internal("encode profile", err)
	}

	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		// 档案没写进去，不能留下孤儿头像资产。
		if doc.Personal.Avatar != nil {
			s.bestEffortAvatarDelete(ctx, doc.Personal.Avatar.PublicID)
		}
		return nil, apperror.Upstream("create profile", err)
	}

	return decodeProfile(&model)
}

// Get 读取一份档案。公开路径，不做归属校验（作品集按 URL 可见）。
func (s *Store) Get(ctx context.Context, profileID uint) (*Record, error) {
	var model database.Profile
	if err := s.db.WithContext(ctx).First(&model, profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("profile")
		}
		return nil, apperror.Upstream("query profile", err)
	}
	return decodeProfile(&model)
}

// ListByOwner 返回某属主的全部档案，按最近更新排序。
func (s *Store) ListByOwner(ctx context.Context, ownerID uint) ([]Record, error) {
	var models []database.Profile
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&models).Error; err != nil {
		return nil, apperror.Upstream("list profiles", err)
	}

	records := make([]Record, 0, len(models))
	for i := range models {
		record, err := decodeProfile(&models[i])
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

// Update 描述一次部分更新。nil 的列表字段不触及；非 nil 的整体替换。
// Personal 走深合并（见 merge.go），头像槽位只通过替换协议变更。
type Update struct {
	Personal       map[string]any
	Education      *[]Education
	Experience     *[]Experience
	Projects       *[]Project
	Skills         *SkillGroupList
	Certifications *[]Certification
	CustomSections *[]CustomSection
	SectionOrder   *[]string
	AvatarData     []byte
	AvatarFileName string
	RemoveAvatar   bool
}

// ApplyUpdate 对档案执行部分更新。
// 归属校验先于一切副作用；头像替换遵循「先传新、再存引用、最后删旧」。
func (s *Store) ApplyUpdate(ctx context.Context, profileID, requesterID uint, upd Update) (*Record, error) {
	var model database.Profile
	if err := s.db.WithContext(ctx).First(&model, profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("profile")
		}
		return nil, apperror.Upstream("query profile", err)
	}
	if model.UserID != requesterID {
		return nil, apperror.Forbidden("not the profile owner")
	}

	record, err := decodeProfile(&model)
	if err != nil {
		return nil, err
	}
	doc := record.Document

	doc.Personal, err = mergePersonal(doc.Personal, upd.Personal)
	if err != nil {
		return nil, apperror.Internal("merge personal", err)
	}

	if upd.Education != nil {
		doc.Education = *upd.Education
	}
	if upd.Experience != nil {
		doc.Experience = *upd.Experience
	}
	if upd.Projects != nil {
		doc.Projects = *upd.Projects
	}
	if upd.Skills != nil {
		doc.Skills = *upd.Skills
	}
	if upd.Certifications != nil {
		doc.Certifications = *upd.Certifications
	}
	if upd.CustomSections != nil {
		doc.CustomSections = *upd.CustomSections
	}
	if upd.SectionOrder != nil {
		doc.SectionOrder = *upd.SectionOrder
	}

	oldAvatar := doc.Personal.Avatar
	replacedAvatar := false
	var uploadedAvatar *AvatarRef

	switch {
	case len(upd.AvatarData) > 0:
		// 上传成功之前绝不动旧资产，失败时用户还保有原头像。
		ref, err := s.avatars.Upload(ctx, upd.AvatarData, upd.AvatarFileName)
		if err != nil {
			return nil, apperror.Upstream("upload avatar", err)
		}
		doc.Personal.Avatar = ref
		uploadedAvatar = ref
		replacedAvatar = true
	case upd.RemoveAvatar:
		doc.Personal.Avatar = nil
		replacedAvatar = oldAvatar != nil
	}

	doc.Normalize()
	if err := encodeDocument(&model, doc); err != nil {
		return nil, apperror.Internal("encode profile", err)
	}
	if err := s.db.WithContext(ctx).Save(&model).Error; err != nil {
		// 新引用没写进去，刚上传的资产不能留成孤儿。
		if uploadedAvatar != nil {
			s.bestEffortAvatarDelete(ctx, uploadedAvatar.PublicID)
		}
		return nil, apperror.Upstream("save profile", err)
	}

	// 引用已持久化，旧资产的清理是尽力而为，失败不回滚。
	if replacedAvatar && oldAvatar != nil {
		s.bestEffortAvatarDelete(ctx, oldAvatar.PublicID)
	}

	return decodeProfile(&model)
}

// Delete 删除档案，幂等：目标不存在返回 (false, nil)。
// 关联头像与导出产物做尽力而为清理，清理失败不阻塞删除。
func (s *Store) Delete(ctx context.Context, profileID, requesterID uint) (bool, error) {
	var model database.Profile
	if err := s.db.WithContext(ctx).First(&model, profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, apperror.Upstream("query profile", err)
	}
	if model.UserID != requesterID {
		return false, apperror.Forbidden("not the profile owner")
	}

	record, err := decodeProfile(&model)
	if err == nil && record.Document.Personal.Avatar != nil {
		s.bestEffortAvatarDelete(ctx, record.Document.Personal.Avatar.PublicID)
	}
	if s.artifacts != nil && model.ExportKey != "" {
		if err := s.artifacts.DeleteObject(ctx, model.ExportKey); err != nil {
			s.logger.Warn("delete export artifact failed",
				slog.String("object_key", model.ExportKey),
				slog.Any("error", err),
			)
		}
	}

	if err := s.db.WithContext(ctx).Delete(&database.Profile{}, profileID).Error; err != nil {
		return false, apperror.Upstream("delete profile", err)
	}
	return true, nil
}

// DeleteField 从数组字段中移除单个元素，或清空头像槽位。
// fieldPath 取值：education / experience / projects / certification（按元素 id），
// skills（按分组 header）、customSections（按分区 name）、
// customSections.<name>.items（按记录 order）、personal.avatar。
func (s *Store) DeleteField(ctx context.Context, profileID, requesterID uint, fieldPath, itemIDOrValue string) (*Record, error) {
	if strings.TrimSpace(fieldPath) == "" {
		return nil, apperror.Validation("fieldPath is required")
	}

	var model database.Profile
	if err := s.db.WithContext(ctx).First(&model, profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("profile")
		}
		return nil, apperror.Upstream("query profile", err)
	}
	if model.UserID != requesterID {
		return nil, apperror.Forbidden("not the profile owner")
	}

	record, err := decodeProfile(&model)
	if err != nil {
		return nil, err
	}
	doc := record.Document

	var removedAvatar *AvatarRef

	switch fieldPath {
	case "education":
		doc.Education = deleteByID(doc.Education, itemIDOrValue, func(e Education) string { return e.ID })
	case "experience":
		doc.Experience = deleteByID(doc.Experience, itemIDOrValue, func(e Experience) string { return e.ID })
	case "projects":
		doc.Projects = deleteByID(doc.Projects, itemIDOrValue, func(p Project) string { return p.ID })
	case "certification":
		doc.Certifications = deleteByID(doc.Certifications, itemIDOrValue, func(c Certification) string { return c.ID })
	case "skills":
		groups := make(SkillGroupList, 0, len(doc.Skills))
		for _, g := range doc.Skills {
			if !strings.EqualFold(g.Header, itemIDOrValue) {
				groups = append(groups, g)
			}
		}
		doc.Skills = groups
	case "customSections":
		sections := make([]CustomSection, 0, len(doc.CustomSections))
		for _, sec := range doc.CustomSections {
			if !strings.EqualFold(sec.Name, itemIDOrValue) {
				sections = append(sections, sec)
			}
		}
		doc.CustomSections = sections
	case "personal.avatar":
		removedAvatar = doc.Personal.Avatar
		doc.Personal.Avatar = nil
	default:
		// customSections.<name>.items：从某个分区中移除单条记录（按 order）。
		sectionName, ok := customItemsFieldPath(fieldPath)
		if !ok {
			return nil, apperror.Validation(fmt.Sprintf("unsupported field path %q", fieldPath))
		}
		order, err := strconv.Atoi(itemIDOrValue)
		if err != nil {
			return nil, apperror.Validation("itemId must be the item order number")
		}
		if !removeCustomItem(doc.CustomSections, sectionName, order) {
			return nil, apperror.NotFound("custom section")
		}
	}

	if err := encodeDocument(&model, doc); err != nil {
		return nil, apperror.Internal("encode profile", err)
	}
	if err := s.db.WithContext(ctx).Save(&model).Error; err != nil {
		return nil, apperror.Upstream("save profile", err)
	}

	// 槽位清空已持久化，旧资产的删除是尽力而为。
	if removedAvatar != nil {
		s.bestEffortAvatarDelete(ctx, removedAvatar.PublicID)
	}

	return decodeProfile(&model)
}

// customItemsFieldPath 解析 customSections.<name>.items 形式的 fieldPath，
// 返回分区名。其他形式返回 ok=false。
func customItemsFieldPath(fieldPath string) (string, bool) {
	rest, found := strings.CutPrefix(fieldPath, "customSections.")
	if !found {
		return "", false
	}
	name, found := strings.CutSuffix(rest, ".items")
	if !found || name == "" {
		return "", false
	}
	return name, true
}

// removeCustomItem 从指定分区中删掉 order 匹配的记录。分区不存在时返回 false。
func removeCustomItem(sections []CustomSection, sectionName string, order int) bool {
	for i := range sections {
		if !strings.EqualFold(sections[i].Name, sectionName) {
			continue
		}
		items := make([]CustomItem, 0, len(sections[i].Items))
		for _, item := range sections[i].Items {
			if item.Order != order {
				items = append(items, item)
			}
		}
		sections[i].Items = items
		return true
	}
	return false
}

// SetExportResult 记录异步导出的产物位置与状态（worker 调用）。
func (s *Store) SetExportResult(ctx context.Context, profileID uint, objectKey, status string) error {
	err := s.db.WithContext(ctx).
		Model(&database.Profile{}).
		Where("id = ?", profileID).
		Updates(map[string]any{
			"export_key":    objectKey,
			"export_status": status,
		}).Error
	if err != nil {
		return apperror.Upstream("update export result", err)
	}
	return nil
}

func deleteByID[T any](items []T, id string, idOf func(T) string) []T {
	result := make([]T, 0, len(items))
	for _, item := range items {
		if idOf(item) != id {
			result = append(result, item)
		}
	}
	return result
}

func (s *Store) bestEffortAvatarDelete(ctx context.Context, publicID string) {
	if s.avatars == nil || strings.TrimSpace(publicID) == "" {
		return
	}
	if err := s.avatars.Delete(ctx, publicID); err != nil {
		s.logger.Warn("delete avatar asset failed",
			slog.String("public_id", publicID),
			slog.Any("error", err),
		)
	}
}

func encodeDocument(model *database.Profile, doc Document) error {
	fields := []struct {
		target *datatypes.JSON
		value  any
	}{
		{&model.Personal, doc.Personal},
		{&model.Education, doc.Education},
		{&model.Experience, doc.Experience},
		{&model.Projects, doc.Projects},
		{&model.Skills, doc.Skills},
		{&model.Certifications, doc.Certifications},
		{&model.CustomSections, doc.CustomSections},
		{&model.SectionOrder, doc.SectionOrder},
	}
	for _, f := range fields {
		raw, err := json.Marshal(f.value)
		if err != nil {
			return err
		}
		*f.target = datatypes.JSON(raw)
	}
	return nil
}

func decodeProfile(model *database.Profile) (*Record, error) {
	record := Record{
		ID:           model.ID,
		OwnerID:      model.UserID,
		ExportKey:    model.ExportKey,
		ExportStatus: model.ExportStatus,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}

	fields := []struct {
		raw    datatypes.JSON
		target any
	}{
		{model.Personal, &record.Document.Personal},
		{model.Education, &record.Document.Education},
		{model.Experience, &record.Document.Experience},
		{model.Projects, &record.Document.Projects},
		{model.Skills, &record.Document.Skills},
		{model.Certifications, &record.Document.Certifications},
		{model.CustomSections, &record.Document.CustomSections},
		{model.SectionOrder, &record.Document.SectionOrder},
	}
	for _, f := range fields {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.target); err != nil {
			return nil, apperror.Internal("decode profile", err)
		}
	}

	return &record, nil
}
