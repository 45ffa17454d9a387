package resolve

import "fmt"

// SourceNotFoundError reports a literal source path that does not exist.
type SourceNotFoundError struct {
	Path string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("Source file %s does not exist.", e.Path)
}

// InvalidSourceError reports a source that exists but cannot be uploaded,
// such as a directory, or a pattern that cannot be parsed.
type InvalidSourceError struct {
	Path   string
	Reason string
}

func (e *InvalidSourceError) Error() string {
	return fmt.Sprintf("Source %s is invalid: %s", e.Path, e.Reason)
}
