package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"fintrack/apperror"
	"fintrack/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 上传文件对外访问前缀
const uploadURLPrefix = "/uploads"

var (
	imageTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	}
	receiptTypes = map[string]string{
		"image/jpeg":      ".jpg",
		"image/png":       ".png",
		"image/gif":       ".gif",
		"image/webp":      ".webp",
		"application/pdf": ".pdf",
	}
)

// Uploader 保存用户上传的文件
type Uploader struct {
	dir     string
	maxSize int64
}

// NewUploader 创建上传器
func NewUploader(cfg config.UploadConfig) *Uploader {
	dir := cfg.Dir
	if dir == "" {
		dir = "uploads"
	}
	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = 5 << 20
	}
	return &Uploader{dir: dir, maxSize: maxSize}
}

// Dir 上传目录
func (u *Uploader) Dir() string {
	return u.dir
}

// Save 保存表单文件 field，按内容识别类型，返回 /uploads/<subdir>/<name>
func (u *Uploader) Save(c *gin.Context, field, subdir string, allowed map[string]string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", apperror.BadRequest("No file uploaded")
	}
	if fh.Size > u.maxSize {
		return "", apperror.BadRequest(fmt.Sprintf("File too large, maximum size is %d MB", u.maxSize>>20))
	}

	ext, err := detectType(fh, allowed)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(u.dir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperror.Internal(err)
	}
	name := uuid.NewString() + ext
	if err := c.SaveUploadedFile(fh, filepath.Join(dir, name)); err != nil {
		return "", apperror.Internal(err)
	}
	return path.Join(uploadURLPrefix, subdir, name), nil
}

// Remove 删除之前保存的文件，文件不存在时忽略
func (u *Uploader) Remove(urlPath string) error {
	if u == nil || !strings.HasPrefix(urlPath, uploadURLPrefix+"/") {
		return nil
	}
	rel := strings.TrimPrefix(urlPath, uploadURLPrefix+"/")
	if strings.Contains(rel, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(u.dir, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func detectType(fh *multipart.FileHeader, allowed map[string]string) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", apperror.Internal(err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", apperror.Internal(err)
	}
	contentType := http.DetectContentType(head[:n])
	ext, ok := allowed[contentType]
	if !ok {
		if _, pdf := allowed["application/pdf"]; pdf {
			return "", apperror.BadRequest("Only image files (JPEG, PNG, GIF, WebP) or PDF are allowed")
		}
		return "", apperror.BadRequest("Only image files (JPEG, PNG, GIF, WebP) are allowed")
	}
	return ext, nil
}
