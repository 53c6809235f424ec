// Package lib 包含基础设施工具库
//
// 本目录包含与架构组件无关的通用工具库：
//
//   - log: 组件日志封装（log/slog）
//   - poll: 轮询上下文、唤醒器、定时器与后台任务
//   - queue: 有界 FIFO 队列
//   - codec: 长度前缀帧读写
//
// # 与 pkg/ 其他目录的关系
//
// pkg/ 目录包含以下内容：
//
//   - interfaces/: 组件公共接口（架构核心）
//   - types/: 公共类型定义（架构核心）
//   - handler/, behaviour/: 协议实现的通用构件
//   - lib/: 基础设施工具库（本目录）
//
// # 使用示例
//
//	import (
//	    "github.com/dep2p/go-p2pcore/pkg/lib/log"
//	    "github.com/dep2p/go-p2pcore/pkg/lib/poll"
//	)
package lib
