package xreport

import "errors"

// ErrEmptyEndpoint 未配置上报地址
var ErrEmptyEndpoint = errors.New("xreport: empty endpoint")
