package form

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/Keril-png/hw05-final/internal/pkg"
)

// MaxUploadSize 单张图片上限
const MaxUploadSize = 10 << 20

// PostForm 发帖/编辑表单
type PostForm struct {
	Group string `form:"group"`
	Text  string `form:"text" validate:"notblank"`

	ImageFile *multipart.FileHeader `form:"-" validate:"-"`
	Image     *pkg.Image            `form:"-" validate:"-"` // 校验通过的图片
	GroupID   *uint64               `form:"-" validate:"-"`
	Errors    Errors                `form:"-" validate:"-"`
}

// GroupExists 由调用方提供分组校验
type GroupExists func(ctx context.Context, id uint64) (bool, error)

// Validate 返回 false 时 Errors 里有字段错误；err 只表示校验过程本身失败
func (f *PostForm) Validate(ctx context.Context, groupExists GroupExists) (bool, error) {
	f.Errors = Errors{}
	check(f, f.Errors)

	if f.Group != "" {
		id, err := strconv.ParseUint(f.Group, 10, 64)
		if err != nil {
			f.Errors.Add("group", MsgInvalidChoice)
		} else {
			ok, err := groupExists(ctx, id)
			if err != nil {
				return false, err
			}
			if !ok {
				f.Errors.Add("group", MsgInvalidChoice)
			} else {
				f.GroupID = &id
			}
		}
	}

	if f.ImageFile != nil {
		img, err := readImage(f.ImageFile)
		if err != nil {
			if !errors.Is(err, pkg.ErrNotImage) {
				return false, err
			}
			f.Errors.Add("image", pkg.ErrNotImage.Error())
		} else {
			f.Image = img
		}
	}
	return !f.Errors.Any(), nil
}

func readImage(fh *multipart.FileHeader) (*pkg.Image, error) {
	if fh.Size > MaxUploadSize {
		return nil, pkg.ErrNotImage
	}
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, MaxUploadSize+1))
	if err != nil {
		return nil, err
	}
	return pkg.DecodeImage(data)
}

// CommentForm 评论表单
type CommentForm struct {
	Text   string `form:"text" validate:"notblank"`
	Errors Errors `form:"-" validate:"-"`
}

func (f *CommentForm) Validate() bool {
	f.Errors = Errors{}
	check(f, f.Errors)
	return !f.Errors.Any()
}
