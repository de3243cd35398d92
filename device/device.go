package device

import (
	"errors"
)

var ERR_SEEK = errors.New("could not seek to given position")
var ERR_BADCALL = errors.New("bad call")
var ERR_BOUNDS = errors.New("read/write past end of device")

type CallNumber int

const (
	DEV_READ CallNumber = iota
	DEV_WRITE
	DEV_CLOSE
)

type m_dev_req struct {
	call CallNumber
	buf  []byte
	pos  int64
}

type m_dev_res struct {
	err error
}
