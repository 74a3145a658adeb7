package rembg

import (
	"context"
	"image"
)

// Segmenter 把图像像素分为前景/背景，输出 alpha 蒙版
// 推理由外部模型完成，这里只是能力接口，测试可替换实现
type Segmenter interface {
	Segment(ctx context.Context, img image.Image) (*image.Alpha, error)
}

// Opaque 无模型兜底：全部像素视为前景
type Opaque struct{}

func NewOpaque() *Opaque {
	return &Opaque{}
}

func (o *Opaque) Segment(_ context.Context, img image.Image) (*image.Alpha, error) {
	b := img.Bounds()
	mask := image.NewAlpha(image.Rect(0, 0, b.Dx(), b.Dy()))
	for i := range mask.Pix {
		mask.Pix[i] = 255
	}
	return mask, nil
}
