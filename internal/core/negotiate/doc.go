// Package negotiate 实现协议协商（multistream-select）
//
// 协商在连接本身上进行：拨号方按偏好顺序提议协议标识，监听方接受第一个
// 支持的提议或回复 "na"，公共前缀情况下一次往返即可完成。
//
// 每条连接依次协商三次：安全协议、多路复用协议、每个子流的应用协议。
// 本包是纯两方协议，不持有任何共享状态，可被成千上万条连接并发使用。
//
// # 失败语义
//
//   - 协议列表为空：ErrNoProtocols
//   - 没有共同协议：拨号方返回 ErrNoCommonProtocol 并关闭流，
//     监听方随之读到 EOF，返回 ErrNegotiationFailed
//   - 对端违反帧格式：ErrNegotiationFailed（包装底层错误）
//   - ctx 取消或到期：中止协商并关闭流
//
// 所有失败都满足 errors.Is(err, ErrNegotiationFailed)，失败时 rwc 已被关闭。
package negotiate
