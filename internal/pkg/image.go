package pkg

import (
	"bytes"
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

var ErrNotImage = errors.New("uploaded file is corrupted or not an image")

// MaxImageSide 超过此尺寸的图片按比例缩小
const MaxImageSide = 1920

// 解码前按声明尺寸拦截，防止小文件解出超大位图
const (
	maxDecodeSide   = 10000
	maxDecodePixels = 50_000_000
)

var contentTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
}

var extensions = map[string]string{
	"jpeg": "jpg",
	"png":  "png",
	"gif":  "gif",
	"bmp":  "bmp",
	"tiff": "tiff",
}

// Image 校验通过并重新编码后的图片
type Image struct {
	Data        []byte
	Ext         string
	ContentType string
}

// DecodeImage 完整解码一次，解不出来就不是图片
func DecodeImage(data []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, ErrNotImage
	}
	if cfg.Width > maxDecodeSide || cfg.Height > maxDecodeSide || cfg.Width*cfg.Height > maxDecodePixels {
		return nil, ErrNotImage
	}
	ext, ok := extensions[format]
	if !ok {
		return nil, ErrNotImage
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrNotImage
	}

	b := img.Bounds()
	if b.Dx() <= MaxImageSide && b.Dy() <= MaxImageSide {
		return &Image{Data: data, Ext: ext, ContentType: contentTypes[format]}, nil
	}

	f, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return nil, ErrNotImage
	}
	var buf bytes.Buffer
	if err = imaging.Encode(&buf, imaging.Fit(img, MaxImageSide, MaxImageSide, imaging.Lanczos), f); err != nil {
		return nil, err
	}
	return &Image{Data: buf.Bytes(), Ext: ext, ContentType: contentTypes[format]}, nil
}
