package photo

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// 证件照默认规格：35mm x 45mm @ 300 DPI
const (
	DefaultCols        = 4
	DefaultRows        = 4
	DefaultPhotoWidth  = 413
	DefaultPhotoHeight = 531
)

// GridSpec 排版参数（列数、行数、单张尺寸）
type GridSpec struct {
	Cols        int `json:"cols"`
	Rows        int `json:"rows"`
	PhotoWidth  int `json:"photo_width"`
	PhotoHeight int `json:"photo_height"`
}

// DefaultGridSpec 返回 4x4 证件照排版
func DefaultGridSpec() GridSpec {
	return GridSpec{
		Cols:        DefaultCols,
		Rows:        DefaultRows,
		PhotoWidth:  DefaultPhotoWidth,
		PhotoHeight: DefaultPhotoHeight,
	}
}

// Validate 校验四个字段均为正数
func (s GridSpec) Validate() error {
	switch {
	case s.Cols < 1:
		return fmt.Errorf("%w: cols must be >= 1, got %d", ErrInvalidArgument, s.Cols)
	case s.Rows < 1:
		return fmt.Errorf("%w: rows must be >= 1, got %d", ErrInvalidArgument, s.Rows)
	case s.PhotoWidth < 1:
		return fmt.Errorf("%w: photo_width must be >= 1, got %d", ErrInvalidArgument, s.PhotoWidth)
	case s.PhotoHeight < 1:
		return fmt.Errorf("%w: photo_height must be >= 1, got %d", ErrInvalidArgument, s.PhotoHeight)
	}
	return nil
}

// CanvasSize 输出画布尺寸：cols*photo_width x rows*photo_height，无边距
func (s GridSpec) CanvasSize() (int, int) {
	return s.Cols * s.PhotoWidth, s.Rows * s.PhotoHeight
}

// Layout 排版引擎，MaxCanvasPixels 为 0 表示不限制
type Layout struct {
	MaxCanvasPixels int
}

func NewLayout(maxCanvasPixels int) *Layout {
	return &Layout{MaxCanvasPixels: maxCanvasPixels}
}

// BuildPassportGrid 把源图缩放到单张尺寸后按行优先平铺到白底画布上
//
//	源图只缩放一次，每个格子复用同一份缩放结果
//	格子 (r, c) 占据 [c*w, r*h) 到 [(c+1)*w, (r+1)*h)
func (l *Layout) BuildPassportGrid(src image.Image, spec GridSpec) (image.Image, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	// 尺寸校验全部用除法，防止恶意参数让乘法回绕绕过上限
	if spec.Cols > math.MaxInt/spec.PhotoWidth || spec.Rows > math.MaxInt/spec.PhotoHeight {
		return nil, fmt.Errorf("%w: canvas dimensions overflow", ErrResourceLimit)
	}
	canvasW, canvasH := spec.CanvasSize()
	if canvasW > math.MaxInt/canvasH {
		return nil, fmt.Errorf("%w: canvas dimensions overflow", ErrResourceLimit)
	}
	if l.MaxCanvasPixels > 0 && canvasW > l.MaxCanvasPixels/canvasH {
		return nil, fmt.Errorf("%w: canvas %dx%d exceeds %d pixels",
			ErrResourceLimit, canvasW, canvasH, l.MaxCanvasPixels)
	}

	if src == nil || src.Bounds().Dx() < 1 || src.Bounds().Dy() < 1 {
		return nil, fmt.Errorf("%w: source image has no pixels", ErrImageProcessing)
	}

	// 单张缩放（非等比），对齐原服务的 LANCZOS 重采样
	cell := resize.Resize(uint(spec.PhotoWidth), uint(spec.PhotoHeight), src, resize.Lanczos3)

	// 白底画布
	canvas := image.NewNRGBA(image.Rect(0, 0, canvasW, canvasH))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for r := 0; r < spec.Rows; r++ {
		for c := 0; c < spec.Cols; c++ {
			x := c * spec.PhotoWidth
			y := r * spec.PhotoHeight
			rect := image.Rect(x, y, x+spec.PhotoWidth, y+spec.PhotoHeight)
			// 带 alpha 的源图叠加到白底上，不透明源图等价于直接覆盖
			draw.Draw(canvas, rect, cell, cell.Bounds().Min, draw.Over)
		}
	}

	return canvas, nil
}
