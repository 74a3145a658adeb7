package rembg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"time"

	"github.com/chaos-io/idphoto/photo"
	nhttp "github.com/chaos-io/idphoto/util/http"
)

const (
	BiRefNetModel = "BiRefNet"

	removePath = "api/remove"
)

// BiRefNet 调用远端抠图推理服务
//
//	curl -X POST "$BASE_URL/api/remove" \
//	  -F "image=@my_image.png" \
//	  -F "model=BiRefNet"
//
// 返回带 alpha 的 PNG，alpha 通道即前景蒙版
type BiRefNet struct {
	baseURL string
	model   string
	timeout time.Duration
	cli     nhttp.IClient
}

func NewBiRefNet(baseURL, model string, timeout time.Duration) *BiRefNet {
	if model == "" {
		model = BiRefNetModel
	}
	return &BiRefNet{
		baseURL: ensureSlash(baseURL),
		model:   model,
		timeout: timeout,
		cli:     nhttp.NewHTTPClient(),
	}
}

func (b *BiRefNet) Segment(ctx context.Context, img image.Image) (*image.Alpha, error) {
	body, contentType, err := encodeUpload(img, b.model)
	if err != nil {
		return nil, err
	}

	var respBody []byte
	reqParam := &nhttp.RequestParam{
		RequestURI: b.baseURL + removePath,
		Method:     "POST",
		Header:     map[string]string{"Content-Type": contentType},
		Body:       body,
		Response:   &respBody,
		Timeout:    b.timeout,
	}
	if err := b.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("%w: segmentation backend: %v", photo.ErrImageProcessing, err)
	}

	cut, err := png.Decode(bytes.NewReader(respBody))
	if err != nil {
		return nil, fmt.Errorf("%w: backend returned invalid png: %v", photo.ErrImageProcessing, err)
	}
	return photo.ExtractAlpha(cut), nil
}

// encodeUpload 把图像编码为 PNG 并打包成 multipart 表单
func encodeUpload(img image.Image, model string) (io.Reader, string, error) {
	data, err := photo.EncodePNG(img)
	if err != nil {
		return nil, "", err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", "image.png")
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(data)); err != nil {
		return nil, "", fmt.Errorf("copy form file: %w", err)
	}

	_ = writer.WriteField("model", model)
	_ = writer.Close()

	return body, writer.FormDataContentType(), nil
}

func ensureSlash(s string) string {
	if s == "" || s[len(s)-1] == '/' {
		return s
	}
	return s + "/"
}
