package sdo

import "errors"

var (
	ErrInvalidArgs = errors.New("error in arguments")
	ErrNoResources = errors.New("maximum number of outstanding requests reached")
	ErrNoQueue     = errors.New("no request queue for node")
	ErrNodeExists  = errors.New("node already has a request queue")
	ErrQueueFull   = errors.New("request queue is full")
	ErrQueueClosed = errors.New("request queue is closed")
	ErrNotPending  = errors.New("request was already started")
)
