// Package reqresp 实现通用的请求/响应协议
//
// 每个请求使用一个独立子流：发起方写入一帧后半关闭写端，
// 响应方读取请求、由应用给出响应后写回一帧并关闭子流。
//
// 帧格式（codec 长度前缀帧内的 protobuf 线格式）:
//
//	field 1 (varint) 请求 ID
//	field 2 (bytes)  负载
//
// 响应携带请求的 ID，发起方据此校验对应关系。
//
// Behaviour 维护一个 LRU 地址簿：向未连接的节点发送请求时先拨号，
// 连接建立后再投递排队的请求。拨号失败、超时、连接关闭都以
// OutboundFailure 报告；入站侧的失败以 InboundFailure 报告。
//
// Behaviour 只能在轮询线程中使用；其他 goroutine 通过 Swarm 的
// Control().Do 调用 SendRequest/SendResponse。
package reqresp
