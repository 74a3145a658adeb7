package photo

import "errors"

// 错误分类：客户端参数错误 / 图像处理失败 / 资源上限
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrImageProcessing = errors.New("image processing failed")
	ErrResourceLimit   = errors.New("resource limit exceeded")
)
