package errors

import "errors"

var (
	ErrConfigInvalid     = errors.New("configuration invalid")
	ErrCredentialsFailed = errors.New("credential activation failed")
	ErrImagePullFailed   = errors.New("image pull failed")
	ErrImageBuildFailed  = errors.New("image build failed")
	ErrRunFailed         = errors.New("build job run failed")
	ErrPublishFailed     = errors.New("image publish failed")
	ErrRuntimeFailed     = errors.New("container runtime operation failed")
	ErrFileSystemFailed  = errors.New("filesystem operation failed")
)

type TrampolineError struct {
	Type        error
	Context     string
	Cause       string
	Suggestion  string
	OriginalErr error
}

func (e *TrampolineError) Error() string {
	return e.OriginalErr.Error()
}

func (e *TrampolineError) Unwrap() error {
	return e.OriginalErr
}

func NewTrampolineError(errorType error, context, cause, suggestion string, originalErr error) *TrampolineError {
	return &TrampolineError{
		Type:        errorType,
		Context:     context,
		Cause:       cause,
		Suggestion:  suggestion,
		OriginalErr: originalErr,
	}
}

func NewConfigError(context, cause, suggestion string, originalErr error) *TrampolineError {
	return NewTrampolineError(ErrConfigInvalid, context, cause, suggestion, originalErr)
}

func NewCredentialsError(context, cause, suggestion string, originalErr error) *TrampolineError {
	return NewTrampolineError(ErrCredentialsFailed, context, cause, suggestion, originalErr)
}

func NewImagePullError(context, cause, suggestion string, originalErr error) *TrampolineError {
	return NewTrampolineError(ErrImagePullFailed, context, cause, suggestion, originalErr)
}

func NewImageBuildError(context, cause, suggestion string, originalErr error) *TrampolineError {
	return NewTrampolineError(ErrImageBuildFailed, context, cause, suggestion, originalErr)
}

func NewRunError(context, cause, suggestion string, originalErr error) *TrampolineError {
	return NewTrampolineError(ErrRunFailed, context, cause, suggestion, originalErr)
}

func NewPublishError(context, cause, suggestion string, originalErr error) *TrampolineError {
	return NewTrampolineError(ErrPublishFailed, context, cause, suggestion, originalErr)
}

func NewRuntimeError(context, cause, suggestion string, originalErr error) *TrampolineError {
	return NewTrampolineError(ErrRuntimeFailed, context, cause, suggestion, originalErr)
}

func NewFileSystemError(context, cause, suggestion string, originalErr error) *TrampolineError {
	return NewTrampolineError(ErrFileSystemFailed, context, cause, suggestion, originalErr)
}
