// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

// Exit is the terminal outcome of a fiber: a success value or a Cause.
// The zero Exit is a failure with EmptyCause.
type Exit struct {
	success bool
	value   any
	failure Cause
}

// Success creates a successful Exit carrying v.
func Success(v any) Exit {
	return Exit{success: true, value: v}
}

// Failure creates a failed Exit carrying c.
// A nil cause is normalized to EmptyCause.
func Failure(c Cause) Exit {
	if c == nil {
		c = EmptyCause{}
	}
	return Exit{failure: c}
}

// IsSuccess reports whether the Exit carries a success value.
func (e Exit) IsSuccess() bool {
	return e.success
}

// IsFailure reports whether the Exit carries a Cause.
func (e Exit) IsFailure() bool {
	return !e.success
}

// Value returns the success value and true, or nil and false.
func (e Exit) Value() (any, bool) {
	if e.success {
		return e.value, true
	}
	return nil, false
}

// Cause returns the failure cause and true, or nil and false.
func (e Exit) Cause() (Cause, bool) {
	if e.success {
		return nil, false
	}
	return e.failure, true
}

// Interrupted reports whether the Exit is a failure whose cause
// contains an interruption.
func (e Exit) Interrupted() bool {
	return !e.success && Interrupted(e.failure)
}
