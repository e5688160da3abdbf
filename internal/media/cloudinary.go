package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"

	"phPortfolio/internal/config"
	"phPortfolio/internal/profile"
)

// 头像的固定上传变换：方形缩略图 + 人脸感知裁剪。
const avatarTransformation = "c_thumb,g_face,h_400,w_400"

// AvatarManager 基于 Cloudinary 管理头像资产。
// 实现 profile.AvatarStore：Upload 失败时调用方不持久化引用，
// Delete 失败由调用方记日志后继续（清理绝不阻塞本地写入）。
type AvatarManager struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewAvatarManager 根据配置初始化 Cloudinary 客户端。
func NewAvatarManager(cfg config.CloudinaryConfig) (*AvatarManager, error) {
	if cfg.CloudName == "" {
		return nil, errors.New("cloudinary cloud name is required")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}

	folder := strings.TrimSpace(cfg.Folder)
	if folder == "" {
		folder = "portfolio-avatars"
	}

	return &AvatarManager{cld: cld, folder: folder}, nil
}

// Upload 上传头像并返回稳定引用。
// 失败时不返回任何部分引用，调用方据此保证不落库半成品。
func (m *AvatarManager) Upload(ctx context.Context, data []byte, fileName string) (*profile.AvatarRef, error) {
	if len(data) == 0 {
		return nil, errors.New("avatar data is empty")
	}

	result, err := m.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:       uuid.NewString(),
		Folder:         m.folder,
		Transformation: avatarTransformation,
	})
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("upload avatar: %s", result.Error.Message)
	}

	return &profile.AvatarRef{
		URL:          result.SecureURL,
		PublicID:     result.PublicID,
		OriginalName: fileName,
		Mimetype:     guessMimetype(fileName, result.Format),
		ResourceType: result.ResourceType,
	}, nil
}

// Delete 删除远端头像资产。
// 远端资产已不存在视为成功；其余错误返回给调用方记日志。
func (m *AvatarManager) Delete(ctx context.Context, publicID string) error {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return nil
	}

	result, err := m.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("destroy avatar %q: %w", publicID, err)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("destroy avatar %q: %s", publicID, result.Result)
	}
	return nil
}

func guessMimetype(fileName, format string) string {
	if ext := filepath.Ext(fileName); ext != "" {
		if mt := mime.TypeByExtension(ext); mt != "" {
			return mt
		}
	}
	if format != "" {
		return "image/" + format
	}
	return "application/octet-stream"
}
