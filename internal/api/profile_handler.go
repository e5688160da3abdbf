package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"

	"phPortfolio/internal/api/middleware"
	"phPortfolio/internal/apperror"
	"phPortfolio/internal/profile"
)

const maxAvatarBytes = 5 * 1024 * 1024

// 头像上传的校验错误，统一走 apperror 映射到 HTTP 状态。
var (
	errAvatarTooLarge  = apperror.Validation("avatar exceeds size limit")
	errAvatarNotImage  = apperror.Validation("avatar must be an image")
	errAvatarMalicious = apperror.Validation("malicious file detected")
	errAvatarRead      = apperror.Internal("read avatar upload", nil)
	errAvatarScan      = apperror.Internal("scan avatar upload", nil)
)

// ProfileHandler 负责档案文档的增删改查。
type ProfileHandler struct {
	store     *profile.Store
	logger    *slog.Logger
	clamdAddr string
}

// NewProfileHandler 构造 ProfileHandler。
func NewProfileHandler(store *profile.Store, logger *slog.Logger, clamdAddr string) *ProfileHandler {
	return &ProfileHandler{
		store:     store,
		logger:    logger,
		clamdAddr: clamdAddr,
	}
}

// CreateProfile 创建一份新档案。
// multipart 请求时 document 字段携带 JSON 文档、avatar 字段携带头像文件；
// 纯 JSON 请求时整个请求体即文档。
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var input profile.CreateInput
	if isMultipart(c) {
		rawDoc := c.PostForm("document")
		if rawDoc == "" {
			BadRequest(c, "missing document field")
			return
		}
		if err := json.Unmarshal([]byte(rawDoc), &input.Document); err != nil {
			BadRequest(c, "invalid document json")
			return
		}
		data, fileName, err := h.readAvatarFile(c)
		if err != nil {
			RespondError(c, err)
			return
		}
		input.AvatarData = data
		input.AvatarFileName = fileName
	} else {
		if err := c.ShouldBindJSON(&input.Document); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}

	record, err := h.store.Create(c.Request.Context(), userID, input)
	if err != nil {
		h.loggerFromContext(c).Info("create profile failed", slog.Any("error", err))
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// ListProfiles 列出当前用户的全部档案。
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	records, err := h.store.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		h.loggerFromContext(c).Error("list profiles failed", slog.Any("error", err))
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetProfile 返回一份档案。公开路径，作品集页面按 URL 访问。
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	profileID, ok := parseProfileID(c)
	if !ok {
		NotFound(c, "profile not found")
		return
	}

	record, err := h.store.Get(c.Request.Context(), profileID)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

type updateProfileRequest struct {
	Personal       map[string]any           `json:"personal"`
	Education      *[]profile.Education     `json:"education"`
	Experience     *[]profile.Experience    `json:"experience"`
	Projects       *[]profile.Project       `json:"projects"`
	Skills         *profile.SkillGroupList  `json:"skills"`
	Certifications *[]profile.Certification `json:"certification"`
	CustomSections *[]profile.CustomSection `json:"customSections"`
	SectionOrder   *[]string                `json:"sectionOrder"`
	RemoveAvatar   bool                     `json:"removeAvatar"`
}

// UpdateProfile 对档案执行部分更新：personal 深合并，列表整体替换。
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	profileID, ok := parseProfileID(c)
	if !ok {
		NotFound(c, "profile not found")
		return
	}

	var upd profile.Update
	if isMultipart(c) {
		if rawDoc := c.PostForm("document"); rawDoc != "" {
			var req updateProfileRequest
			if err := json.Unmarshal([]byte(rawDoc), &req); err != nil {
				BadRequest(c, "invalid document json")
				return
			}
			upd = req.toUpdate()
		}
		data, fileName, err := h.readAvatarFile(c)
		if err != nil {
			RespondError(c, err)
			return
		}
		upd.AvatarData = data
		upd.AvatarFileName = fileName
	} else {
		var req updateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
		upd = req.toUpdate()
	}

	record, err := h.store.ApplyUpdate(c.Request.Context(), profileID, userID, upd)
	if err != nil {
		h.loggerFromContext(c).Info("update profile failed", slog.Any("error", err))
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (r updateProfileRequest) toUpdate() profile.Update {
	return profile.Update{
		Personal:       r.Personal,
		Education:      r.Education,
		Experience:     r.Experience,
		Projects:       r.Projects,
		Skills:         r.Skills,
		Certifications: r.Certifications,
		CustomSections: r.CustomSections,
		SectionOrder:   r.SectionOrder,
		RemoveAvatar:   r.RemoveAvatar,
	}
}

// DeleteProfile 删除档案。目标不存在不算错误，deleted 标记为 false。
func (h *ProfileHandler) DeleteProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	profileID, ok := parseProfileID(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"deleted": false})
		return
	}

	deleted, err := h.store.Delete(c.Request.Context(), profileID, userID)
	if err != nil {
		h.loggerFromContext(c).Info("delete profile failed", slog.Any("error", err))
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// DeleteField 删除档案中某个数组元素或清空头像槽位。
func (h *ProfileHandler) DeleteField(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	profileID, ok := parseProfileID(c)
	if !ok {
		NotFound(c, "profile not found")
		return
	}

	fieldPath := c.Query("fieldPath")
	itemID := c.Query("itemId")

	record, err := h.store.DeleteField(c.Request.Context(), profileID, userID, fieldPath, itemID)
	if err != nil {
		h.loggerFromContext(c).Info("delete field failed",
			slog.String("field_path", fieldPath),
			slog.Any("error", err),
		)
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// UploadAvatar 上传并替换头像，遵循「先传新、再存引用、最后删旧」。
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	profileID, ok := parseProfileID(c)
	if !ok {
		NotFound(c, "profile not found")
		return
	}

	data, fileName, err := h.readAvatarFile(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	if len(data) == 0 {
		BadRequest(c, "missing avatar file")
		return
	}

	record, err := h.store.ApplyUpdate(c.Request.Context(), profileID, userID, profile.Update{
		AvatarData:     data,
		AvatarFileName: fileName,
	})
	if err != nil {
		h.loggerFromContext(c).Info("upload avatar failed", slog.Any("error", err))
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// RemoveAvatar 清空头像槽位并尽力删除远端资产。
func (h *ProfileHandler) RemoveAvatar(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	profileID, ok := parseProfileID(c)
	if !ok {
		NotFound(c, "profile not found")
		return
	}

	record, err := h.store.DeleteField(c.Request.Context(), profileID, userID, "personal.avatar", "")
	if err != nil {
		h.loggerFromContext(c).Info("remove avatar failed", slog.Any("error", err))
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// readAvatarFile 读取 multipart 请求中的头像文件并在配置了 clamd 时扫描。
// 没有头像字段不是错误，返回空数据。
func (h *ProfileHandler) readAvatarFile(c *gin.Context) ([]byte, string, error) {
	file, err := c.FormFile("avatar")
	if err != nil {
		return nil, "", nil
	}
	if file.Size > maxAvatarBytes {
		return nil, "", errAvatarTooLarge
	}

	if err := h.scanUpload(file); err != nil {
		return nil, "", err
	}

	reader, err := file.Open()
	if err != nil {
		return nil, "", errAvatarRead
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, maxAvatarBytes+1))
	if err != nil {
		return nil, "", errAvatarRead
	}
	if len(data) > maxAvatarBytes {
		return nil, "", errAvatarTooLarge
	}

	// 按内容嗅探而不是信任 multipart 里的 Content-Type
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return nil, "", errAvatarNotImage
	}

	return data, file.Filename, nil
}

// scanUpload 在上传前做病毒扫描；clamd 未配置时跳过。
func (h *ProfileHandler) scanUpload(file *multipart.FileHeader) error {
	if strings.TrimSpace(h.clamdAddr) == "" {
		return nil
	}

	reader, err := file.Open()
	if err != nil {
		return errAvatarRead
	}
	defer reader.Close()

	clamdClient := clamd.NewClamd(h.clamdAddr)
	abortChan := make(chan bool)
	scanChan, err := clamdClient.ScanStream(reader, abortChan)
	if err != nil {
		h.logger.Error("scan avatar failed", slog.String("error", err.Error()))
		return errAvatarScan
	}
	defer close(abortChan)

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return errAvatarMalicious
		}
	}
	return nil
}

func (h *ProfileHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

func parseProfileID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}
