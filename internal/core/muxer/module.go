// Package muxer 提供流多路复用器的 Fx 装配
//
// 目前只有 yamux 一种实现，列表顺序即协商时的提议顺序。
package muxer

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-p2pcore/config"
	"github.com/dep2p/go-p2pcore/internal/core/muxer/yamux"
	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
)

// Params 多路复用依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Result 多路复用输出
type Result struct {
	fx.Out

	StreamMuxers []pkgif.StreamMuxer `name:"stream_muxers"`
}

// New 按配置创建多路复用器列表
func New(cfg *config.Config) ([]pkgif.StreamMuxer, error) {
	y, err := yamux.New(yamux.ConfigFromUnified(cfg))
	if err != nil {
		return nil, err
	}
	return []pkgif.StreamMuxer{y}, nil
}

// ProvideStreamMuxers 提供多路复用器列表
func ProvideStreamMuxers(p Params) (Result, error) {
	muxers, err := New(p.UnifiedCfg)
	if err != nil {
		return Result{}, err
	}
	return Result{StreamMuxers: muxers}, nil
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("muxer",
		fx.Provide(ProvideStreamMuxers),
	)
}
