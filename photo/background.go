package photo

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"
)

// ParseHexColor 解析 #RRGGBB（# 可省略）
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("%w: color %q must be #RRGGBB", ErrInvalidArgument, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: color %q is not hex", ErrInvalidArgument, s)
	}
	return color.NRGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 255,
	}, nil
}

// ExtractAlpha 取出图像自带的 alpha 通道作为蒙版
func ExtractAlpha(img image.Image) *image.Alpha {
	src := ToNRGBA(img)
	b := src.Bounds()
	mask := image.NewAlpha(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := y * src.Stride
		for x := 0; x < b.Dx(); x++ {
			mask.Pix[y*mask.Stride+x] = src.Pix[row+x*4+3]
		}
	}
	return mask
}

// ApplyMask 把蒙版写入图像 alpha 通道，前景保留、背景透明
// 蒙版小于图像时，越界区域按全透明处理
func ApplyMask(img image.Image, mask *image.Alpha) *image.NRGBA {
	out := cloneNRGBA(img)
	b := out.Bounds()
	mw, mh := mask.Bounds().Dx(), mask.Bounds().Dy()
	for y := 0; y < b.Dy(); y++ {
		row := y * out.Stride
		for x := 0; x < b.Dx(); x++ {
			var a uint8
			if x < mw && y < mh {
				a = maskAt(mask, x, y)
			}
			out.Pix[row+x*4+3] = a
		}
	}
	return out
}

// ReplaceBackground 逐像素合成：out = fg*a + bg*(1-a)
// 蒙版尺寸与源图不一致时视为参数错误
func ReplaceBackground(src image.Image, mask *image.Alpha, bg color.NRGBA) (image.Image, error) {
	if mask == nil {
		return nil, fmt.Errorf("%w: alpha mask is nil", ErrInvalidArgument)
	}
	fg := ToNRGBA(src)
	b := fg.Bounds()
	if mask.Bounds().Dx() != b.Dx() || mask.Bounds().Dy() != b.Dy() {
		return nil, fmt.Errorf("%w: mask %dx%d does not match image %dx%d",
			ErrInvalidArgument, mask.Bounds().Dx(), mask.Bounds().Dy(), b.Dx(), b.Dy())
	}

	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := y * fg.Stride
		orow := y * out.Stride
		for x := 0; x < b.Dx(); x++ {
			a := int(maskAt(mask, x, y))
			i := row + x*4
			o := orow + x*4
			out.Pix[o] = blend(fg.Pix[i], bg.R, a)
			out.Pix[o+1] = blend(fg.Pix[i+1], bg.G, a)
			out.Pix[o+2] = blend(fg.Pix[i+2], bg.B, a)
			out.Pix[o+3] = 255
		}
	}
	return out, nil
}

func blend(fg, bg uint8, a int) uint8 {
	return uint8((int(fg)*a + int(bg)*(255-a) + 127) / 255)
}

func maskAt(mask *image.Alpha, x, y int) uint8 {
	return mask.Pix[y*mask.Stride+x]
}

// ToNRGBA 统一转成 NRGBA 便于按字节处理
func ToNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Bounds().Min == (image.Point{}) {
		return nrgba
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func cloneNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
