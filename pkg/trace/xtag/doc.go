// Package xtag 维护 span 标签的线上名称（wire tag key）。
//
// # 设计理念
//
// 拦截器从不硬编码 http.status_code 之类的标签字符串，而是通过
// (category, field) 二元组向 [Registry] 查询。不同团队可通过配置覆盖
// 标签名（如把 http.status_code 改为 http.response.status），
// 而无需修改任何拦截代码。
//
// # 生命周期
//
//   - 进程启动时由 [New] 创建，内置默认值见 [Defaults]
//   - 通过 [Registry.Apply] 合并部署配置中的覆盖项（递归合并，未指定的默认值保持不变）
//   - 之后视为只读，可被任意 goroutine 并发读取
//
// Apply 不是并发安全的，只应在启动阶段、共享给拦截器之前调用。
//
// # 查询
//
//   - [Registry.Get]: 不存在时返回 [ErrTagNotFound]
//   - [Registry.Has]: 存在性判断，永不失败
//   - [Registry.Key]: 不存在时返回空字符串，用于已知默认项或 Has 之后的查询
//
// 覆盖值为空字符串表示禁用该标签，拦截器遇到空 key 时跳过打标。
package xtag
