// Package apperror mendefinisikan jenis kesalahan yang dipakai inti keuangan.
// Handler HTTP menerjemahkan Kind ke status code; service hanya mengembalikan *Error.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindValidation   Kind = iota + 1 // input tidak valid, ditolak sebelum menyentuh storage
	KindNotFound                     // id/kode yang direferensikan tidak ada
	KindInvalidState                 // operasi tidak sah untuk status sekarang
	KindConflict                     // tabrakan nomor/kode, budget aktif tumpang tindih
	KindIntegrity                    // akan membuat buku besar tidak seimbang
	KindDependency                   // dependensi wajib tidak terpasang (mis. akun kas)
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Integrity(format string, args ...any) *Error {
	return &Error{Kind: KindIntegrity, Message: fmt.Sprintf(format, args...)}
}

func Dependency(format string, args ...any) *Error {
	return &Error{Kind: KindDependency, Message: fmt.Sprintf(format, args...)}
}

// Wrap membungkus error storage tanpa mengubah jenisnya kalau sudah *Error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindIntegrity, Message: message, Err: err}
}

// KindOf mengembalikan Kind dari err, 0 kalau bukan *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

// StatusCode memetakan Kind ke status HTTP. Dipakai handler, bukan service.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState, KindConflict:
		return http.StatusConflict
	case KindDependency:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
