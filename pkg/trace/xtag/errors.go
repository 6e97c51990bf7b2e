package xtag

import "errors"

// ErrTagNotFound 表示 (category, field) 未注册。
// 属于编程错误：调用方应在查询非默认项前先用 Has 判断。
var ErrTagNotFound = errors.New("xtag: tag not found")
