package service

import (
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/repository"
)

// ValidationError 请求参数不合法，未产生任何写入
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError 订单不存在或不属于当前门店
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// TerminalStateError 订单当前状态不允许该操作
type TerminalStateError struct {
	Status string
	Op     string
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("cannot %s purchase order in status %s", e.Op, e.Status)
}

// StorageError 存储层失败；对外只暴露通用信息
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s purchase order", e.Op)
}

func (e *StorageError) Unwrap() error { return e.Err }

// wrapStorage 把未分类的底层错误包装为 StorageError，已分类的错误原样返回
func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var nf *NotFoundError
	var ts *TerminalStateError
	var se *StorageError
	if errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &ts) || errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func orderNotFound(id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Resource: "purchase order", ID: id}
	}
	return err
}
