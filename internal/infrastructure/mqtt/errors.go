package mqtt

import "errors"

// Sentinel errors, matched with errors.Is.
var (
	ErrNotConnected    = errors.New("mqtt: not connected")
	ErrConnectFailed   = errors.New("mqtt: connect failed")
	ErrPublishFailed   = errors.New("mqtt: publish failed")
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")
	ErrBadTopic        = errors.New("mqtt: bad topic")
	ErrBadQoS          = errors.New("mqtt: bad qos")
)
