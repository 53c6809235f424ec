package negotiate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	mss "github.com/multiformats/go-multistream"

	"github.com/dep2p/go-p2pcore/pkg/types"
)

// deadliner 支持截止时间的流
type deadliner interface {
	SetDeadline(t time.Time) error
}

// Select 作为拨号方协商协议
//
// 按 protocols 的顺序提议，返回对端接受的第一个。
func Select(ctx context.Context, rwc io.ReadWriteCloser, protocols []types.ProtocolID) (types.ProtocolID, error) {
	if len(protocols) == 0 {
		return "", ErrNoProtocols
	}

	var selected string
	err := run(ctx, rwc, func() error {
		var err error
		selected, err = mss.SelectOneOf(types.ProtocolStrings(protocols), rwc)
		return err
	})
	if err != nil {
		if errors.Is(err, mss.ErrNotSupported[string]{}) {
			return "", fmt.Errorf("%w: %w %v", ErrNegotiationFailed, ErrNoCommonProtocol, protocols)
		}
		return "", err
	}
	return types.ProtocolID(selected), nil
}

// Listen 作为监听方协商协议
//
// 接受对端第一个本地支持的提议。
func Listen(ctx context.Context, rwc io.ReadWriteCloser, protocols []types.ProtocolID) (types.ProtocolID, error) {
	if len(protocols) == 0 {
		return "", ErrNoProtocols
	}

	mux := mss.NewMultistreamMuxer[string]()
	for _, p := range protocols {
		mux.AddHandler(string(p), nil)
	}

	var selected string
	err := run(ctx, rwc, func() error {
		var err error
		selected, _, err = mux.Negotiate(rwc)
		return err
	})
	if err != nil {
		return "", err
	}
	return types.ProtocolID(selected), nil
}

// run 在 ctx 约束下执行协商
//
// 流支持截止时间时使用 ctx 的截止时间；ctx 被取消时关闭流使阻塞的读写返回。
// 失败时关闭流。
func run(ctx context.Context, rwc io.ReadWriteCloser, fn func() error) error {
	if err := ctx.Err(); err != nil {
		_ = rwc.Close()
		return fmt.Errorf("%w: %w", ErrNegotiationFailed, err)
	}

	dl, hasDeadline := rwc.(deadliner)
	if d, ok := ctx.Deadline(); ok && hasDeadline {
		_ = dl.SetDeadline(d)
		defer func() { _ = dl.SetDeadline(time.Time{}) }()
	}

	stop := context.AfterFunc(ctx, func() { _ = rwc.Close() })
	err := fn()
	if !stop() {
		// ctx 已触发关闭
		return fmt.Errorf("%w: %w", ErrNegotiationFailed, ctx.Err())
	}
	if err != nil {
		_ = rwc.Close()
		if errors.Is(err, mss.ErrNotSupported[string]{}) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrNegotiationFailed, err)
	}
	return nil
}
