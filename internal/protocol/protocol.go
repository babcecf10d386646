// Package protocol implements the binary framing used on the realtime
// websocket connection. Every frame starts with a varint message-kind tag;
// the rest of the frame is kind-specific and opaque to the relay.
package protocol

import (
	"encoding/binary"
	"errors"
)

// Message kinds (leading varint tag).
const (
	MessageSync      uint64 = 0
	MessageAwareness uint64 = 1
)

// Sync sub-kinds (varint following the sync tag).
const (
	SyncStep1  uint64 = 0 // state vector request
	SyncStep2  uint64 = 1 // diff reply
	SyncUpdate uint64 = 2 // incremental update
)

var (
	ErrEmptyFrame  = errors.New("empty frame")
	ErrBadVarint   = errors.New("malformed varint")
	ErrTruncated   = errors.New("truncated frame")
	ErrUnknownStep = errors.New("unknown sync step")
)

// DecodeFrame splits a frame into its kind tag and kind-specific body.
func DecodeFrame(frame []byte) (kind uint64, body []byte, err error) {
	if len(frame) == 0 {
		return 0, nil, ErrEmptyFrame
	}
	kind, n := binary.Uvarint(frame)
	if n <= 0 {
		return 0, nil, ErrBadVarint
	}
	return kind, frame[n:], nil
}

// DecodeSync splits a sync body into its step and payload.
func DecodeSync(body []byte) (step uint64, payload []byte, err error) {
	if len(body) == 0 {
		return 0, nil, ErrTruncated
	}
	step, n := binary.Uvarint(body)
	if n <= 0 {
		return 0, nil, ErrBadVarint
	}
	if step > SyncUpdate {
		return 0, nil, ErrUnknownStep
	}
	return step, body[n:], nil
}

// EncodeSync builds a complete sync frame.
func EncodeSync(step uint64, payload []byte) []byte {
	buf := make([]byte, 0, 2*binary.MaxVarintLen64+len(payload))
	buf = binary.AppendUvarint(buf, MessageSync)
	buf = binary.AppendUvarint(buf, step)
	return append(buf, payload...)
}

// EncodeAwareness builds a complete awareness frame.
func EncodeAwareness(payload []byte) []byte {
	buf := make([]byte, 0, binary.MaxVarintLen64+len(payload))
	buf = binary.AppendUvarint(buf, MessageAwareness)
	return append(buf, payload...)
}
