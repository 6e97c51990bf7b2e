package xlog

import "errors"

// ErrEmptyFilename SetRotation 的文件名为空
var ErrEmptyFilename = errors.New("xlog: empty rotation filename")
