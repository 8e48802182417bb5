package catalog

import "fmt"

// FetchError reports a failure of an external data collaborator, such as the
// spreadsheet API, while reading names or rows.
type FetchError struct {
	Op     string
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("fetch %s %q: %v", e.Op, e.Source, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Code is used by handler summaries as err_code.
func (e *FetchError) Code() string { return "fetch_error" }
