package dockerengine

import "errors"

var (
	// ErrUnsupportedLanguage names the case of a lang not present in the
	// language-to-image mapping. Execute reports that case as an error
	// result and does not return this sentinel.
	ErrUnsupportedLanguage = errors.New("dockerengine: unsupported language")

	// ErrRuntimeUnreachable is returned when the container runtime client
	// cannot be reached even after one reinitialisation attempt.
	ErrRuntimeUnreachable = errors.New("dockerengine: container runtime unreachable")

	// ErrImagePullFailed is returned when the Image Coordinator cannot
	// make the requested image present locally.
	ErrImagePullFailed = errors.New("dockerengine: image pull failed")

	// ErrContainerStartTimeout is returned when a created container does
	// not report running within the start deadline.
	ErrContainerStartTimeout = errors.New("dockerengine: container did not reach running state in time")
)
