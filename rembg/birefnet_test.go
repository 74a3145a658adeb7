package rembg

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaos-io/idphoto/photo"
)

func testSource() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 60), uint8(y * 60), 30, 255})
		}
	}
	return img
}

func TestBiRefNetSegment(t *testing.T) {
	t.Parallel()

	// 模拟推理后端：校验请求，返回左半前景/右半背景的 RGBA PNG
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/remove", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(10<<20))
		assert.Equal(t, BiRefNetModel, r.FormValue("model"))

		file, _, err := r.FormFile("image")
		require.NoError(t, err)
		defer func() {
			_ = file.Close()
		}()

		uploaded, err := png.Decode(file)
		require.NoError(t, err)
		b := uploaded.Bounds()

		cut := image.NewNRGBA(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				a := uint8(255)
				if x >= b.Max.X/2 {
					a = 0
				}
				cut.SetNRGBA(x, y, color.NRGBA{10, 20, 30, a})
			}
		}

		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, cut))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
	defer server.Close()

	seg := NewBiRefNet(server.URL, "", 5*time.Second)
	mask, err := seg.Segment(context.Background(), testSource())
	require.NoError(t, err)

	require.Equal(t, 4, mask.Bounds().Dx())
	require.Equal(t, 4, mask.Bounds().Dy())
	for y := 0; y < 4; y++ {
		assert.EqualValues(t, 255, mask.Pix[y*mask.Stride+0])
		assert.EqualValues(t, 255, mask.Pix[y*mask.Stride+1])
		assert.EqualValues(t, 0, mask.Pix[y*mask.Stride+2])
		assert.EqualValues(t, 0, mask.Pix[y*mask.Stride+3])
	}
}

func TestBiRefNetConfiguredModel(t *testing.T) {
	t.Parallel()

	// 配置的模型名要透传给后端，缺省时回落到 BiRefNet
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(10<<20))
		gotModel = r.FormValue("model")

		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 4))))
		_, _ = w.Write(buf.Bytes())
	}))
	defer server.Close()

	seg := NewBiRefNet(server.URL, "u2net", 5*time.Second)
	_, err := seg.Segment(context.Background(), testSource())
	require.NoError(t, err)
	assert.Equal(t, "u2net", gotModel)

	assert.Equal(t, BiRefNetModel, NewBiRefNet(server.URL, "", time.Second).model)
}

func TestBiRefNetSegmentBackendError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("model not loaded"))
	}))
	defer server.Close()

	seg := NewBiRefNet(server.URL, "", 5*time.Second)
	_, err := seg.Segment(context.Background(), testSource())
	require.Error(t, err)
	assert.ErrorIs(t, err, photo.ErrImageProcessing)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestBiRefNetSegmentInvalidResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a png"))
	}))
	defer server.Close()

	seg := NewBiRefNet(server.URL, "", 5*time.Second)
	_, err := seg.Segment(context.Background(), testSource())
	assert.ErrorIs(t, err, photo.ErrImageProcessing)
}

func TestOpaqueSegment(t *testing.T) {
	t.Parallel()

	mask, err := NewOpaque().Segment(context.Background(), testSource())
	require.NoError(t, err)

	for _, a := range mask.Pix {
		assert.EqualValues(t, 255, a)
	}
}
